package documents

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/covenantrix/rag/internal/kb"
	"github.com/covenantrix/rag/internal/ledger"
)

var (
	// ErrInsufficientText is returned when extraction yields fewer than 10
	// usable characters.
	ErrInsufficientText = errors.New("insufficient text extracted from document")
	// ErrInsertFailed is returned when the knowledge-base insert fails; the
	// pipeline aborts with no metadata written.
	ErrInsertFailed = errors.New("knowledge base insertion failed")
)

// minPipelineChars is the minimum extracted length the pipeline accepts.
const minPipelineChars = 10

// ProgressFunc receives staged progress while a document is processed.
type ProgressFunc func(stage string, percent int)

// Processor runs the ingestion pipeline: extract, classify, insert into the
// knowledge base, derive statistics, persist metadata. Metadata is written
// only after every prior stage succeeds; that makes the pipeline atomic with
// respect to the ledger, not with respect to the external engine.
type Processor struct {
	extractor *Extractor
	estimator Estimator
	gateway   kb.Gateway
	store     *ledger.Store
}

// NewProcessor creates a Processor. A nil estimator gets the default lexical
// one.
func NewProcessor(extractor *Extractor, gateway kb.Gateway, store *ledger.Store, estimator Estimator) *Processor {
	if estimator == nil {
		estimator = NewTextEstimator()
	}
	return &Processor{
		extractor: extractor,
		estimator: estimator,
		gateway:   gateway,
		store:     store,
	}
}

// Process ingests one document and returns its metadata record.
func (p *Processor) Process(ctx context.Context, path, folderID string, progress ProgressFunc) (*ledger.DocumentMetadata, error) {
	start := time.Now()
	report := func(stage string, pct int) {
		if progress != nil {
			progress(stage, pct)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat document: %w", err)
	}
	docID := DocumentID(filepath.Base(path), info.ModTime())

	report("Extracting text", 20)
	text, diag, err := p.extractor.Extract(path)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(text)) < minPipelineChars {
		return nil, fmt.Errorf("%w (length: %d): document may be empty, corrupted, or require OCR processing",
			ErrInsufficientText, len(text))
	}

	report("Classifying document", 40)
	docType := Classify(text, filepath.Base(path))

	report("Building knowledge graph", 60)
	if err := p.gateway.Insert(ctx, docID, text); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInsertFailed, err)
	}

	report("Extracting entities and relationships", 80)
	stats := p.estimator.Estimate(text)

	report("Finalizing", 100)
	meta := ledger.DocumentMetadata{
		ID:                 docID,
		OriginalName:       filepath.Base(path),
		FilePath:           path,
		FolderID:           folderID,
		FileSize:           diag.FileSize,
		PageCount:          diag.PageCount,
		ProcessedAt:        time.Now(),
		DocumentType:       docType,
		ProcessingTime:     time.Since(start).Seconds(),
		ChunkCount:         stats.ChunkCount,
		EntitiesExtracted:  stats.EntitiesExtracted,
		RelationshipsFound: stats.RelationshipsFound,
	}
	if err := p.store.Upsert(meta); err != nil {
		return nil, fmt.Errorf("failed to persist metadata: %w", err)
	}
	return &meta, nil
}

// DocumentID derives a deterministic id from the original filename and source
// modification time. Same inputs always produce the same id; a re-upload with
// identical name and mtime therefore overwrites the existing ledger record
// rather than creating a duplicate. Truncated-hash collisions across distinct
// inputs are possible but not handled.
func DocumentID(name string, mtime time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s_%d", name, mtime.UnixNano())))
	return hex.EncodeToString(sum[:])[:16]
}
