package documents

import "strings"

// Stats are informational approximations of what the retrieval engine built
// from a document. Downstream consumers must never treat them as ground truth.
type Stats struct {
	ChunkCount         int
	EntitiesExtracted  int
	RelationshipsFound int
}

// Estimator produces processing statistics for ingested text. The default is
// a lexical approximation; an implementation with real introspection into the
// retrieval engine can supply exact values without changing the pipeline.
type Estimator interface {
	Estimate(text string) Stats
}

// TextEstimator derives statistics from fixed formulas over the raw text.
type TextEstimator struct {
	ChunkTokenSize int
}

// NewTextEstimator returns the default estimator with an 800-character chunk
// size matching the engine's chunking configuration.
func NewTextEstimator() *TextEstimator {
	return &TextEstimator{ChunkTokenSize: 800}
}

// Estimate computes chunk count from text length, entities from sentence
// terminators and relationships from conjunction markers.
func (e *TextEstimator) Estimate(text string) Stats {
	return Stats{
		ChunkCount:         len(text) / e.ChunkTokenSize,
		EntitiesExtracted:  strings.Count(text, ".") / 10,
		RelationshipsFound: strings.Count(text, " and ") + strings.Count(text, " with "),
	}
}
