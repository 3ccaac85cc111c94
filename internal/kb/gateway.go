// Package kb abstracts the external retrieval engine behind a Gateway
// interface and ships a pgvector-backed default implementation.
package kb

import (
	"context"
	"errors"

	"github.com/covenantrix/rag/internal/llm"
)

// ErrGateway tags retrieval-engine failures so callers can degrade instead of
// propagating them.
var ErrGateway = errors.New("knowledge base gateway error")

// QueryParams tunes a retrieval call. The defaults used by the query
// orchestrator are wide on purpose: legal text rewards precision over brevity.
type QueryParams struct {
	Mode              string
	TopK              int
	ChunkTopK         int
	MaxEntityTokens   int
	MaxRelationTokens int
	MaxTotalTokens    int
	History           []llm.Turn
	ResponseType      string
	EnableRerank      bool
	Model             string
	Temperature       float64
}

// Gateway is the boundary to the retrieval engine. Insert and Query may block
// on network calls; callers supply the context deadline. PurgeDocument is
// best-effort: implementations without native per-document deletion may only
// scrub what they can reach.
type Gateway interface {
	Insert(ctx context.Context, docID, text string) error
	Query(ctx context.Context, prompt string, params QueryParams) (string, error)
	PurgeDocument(ctx context.Context, docID, originalName string) error
}
