// Package service wires the document pipeline, knowledge base and query
// orchestrator into one facade for transport layers.
package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/covenantrix/rag/config"
	"github.com/covenantrix/rag/internal/conversation"
	"github.com/covenantrix/rag/internal/documents"
	"github.com/covenantrix/rag/internal/kb"
	"github.com/covenantrix/rag/internal/ledger"
	"github.com/covenantrix/rag/internal/llm"
	"github.com/covenantrix/rag/internal/persona"
	"github.com/covenantrix/rag/internal/query"
)

// Status reports the progress of an in-flight ingestion.
type Status struct {
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
}

// Deps holds the service's collaborators. Tests inject stubs here; production
// wiring comes from Build.
type Deps struct {
	Gateway    kb.Gateway
	Completer  llm.Completer
	Models     query.ModelResolver
	Extractor  *documents.Extractor
	Estimator  documents.Estimator
	WorkingDir string
	UploadDir  string
}

// Service is the core public surface consumed by any transport.
type Service struct {
	store         *ledger.Store
	processor     *documents.Processor
	deleter       *documents.Deleter
	personas      *persona.Registry
	orchestrator  *query.Orchestrator
	analytics     *query.Aggregator
	conversations *conversation.Store
	uploadDir     string

	mu       sync.Mutex
	statuses map[string]Status

	closers []func()
}

func New(deps Deps) *Service {
	if deps.Extractor == nil {
		deps.Extractor = documents.NewExtractor()
	}

	store := ledger.New(deps.WorkingDir)
	caches := kb.NewCaches(deps.WorkingDir)
	personas := persona.NewRegistry()
	analytics := query.NewAggregator()
	conversations := conversation.NewStore()

	return &Service{
		store:         store,
		processor:     documents.NewProcessor(deps.Extractor, deps.Gateway, store, deps.Estimator),
		deleter:       documents.NewDeleter(store, deps.Gateway, caches),
		personas:      personas,
		orchestrator:  query.NewOrchestrator(deps.Gateway, personas, conversations, analytics, deps.Completer, deps.Models),
		analytics:     analytics,
		conversations: conversations,
		uploadDir:     deps.UploadDir,
		statuses:      make(map[string]Status),
	}
}

// Build assembles a production service from configuration: a langchaingo
// client and a pgvector-backed knowledge base.
func Build(cfg *config.Config) (*Service, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %v", errs[0])
	}

	apiKey, err := cfg.APIKey()
	if err != nil {
		return nil, err
	}

	client, err := llm.NewClient(llm.Config{
		Provider:       cfg.LLM.Provider,
		BaseURL:        cfg.LLM.BaseURL,
		APIKey:         apiKey,
		StandardModel:  cfg.LLM.StandardModel,
		PremiumModel:   cfg.LLM.PremiumModel,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
	})
	if err != nil {
		return nil, fmt.Errorf("llm client: %w", err)
	}

	gateway, err := kb.NewPGVector(kb.PGVectorConfig{
		ConnString:   cfg.Database.ConnectionString,
		TableName:    cfg.Database.TableName,
		VectorDim:    cfg.Database.VectorDim,
		ChunkSize:    cfg.Processing.ChunkSize,
		ChunkOverlap: cfg.Processing.ChunkOverlap,
		BatchSize:    cfg.Database.BatchSize,
		EmbedRate:    cfg.Processing.EmbedRate,
	}, client.Embedder(), client)
	if err != nil {
		return nil, fmt.Errorf("knowledge base: %w", err)
	}

	for _, dir := range []string{cfg.Paths.WorkingDir, cfg.Paths.UploadDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			gateway.Close()
			return nil, fmt.Errorf("create directory: %w", err)
		}
	}

	svc := New(Deps{
		Gateway:    gateway,
		Completer:  client,
		Models:     client,
		WorkingDir: cfg.Paths.WorkingDir,
		UploadDir:  cfg.Paths.UploadDir,
	})
	svc.closers = append(svc.closers, gateway.Close)
	return svc, nil
}

// Close releases held resources.
func (s *Service) Close() {
	for _, c := range s.closers {
		c()
	}
}

// SaveUpload writes an uploaded document to the upload directory under a
// unique name and returns its path.
func (s *Service) SaveUpload(originalName string, r io.Reader) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	path := filepath.Join(s.uploadDir, fmt.Sprintf("%s_%s", uuid.New().String()[:8], filepath.Base(originalName)))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path, nil
}

// ProcessDocument ingests one file. Progress is visible through Status while
// the call runs and via the optional callback.
func (s *Service) ProcessDocument(ctx context.Context, path, folderID string, progress documents.ProgressFunc) (*ledger.DocumentMetadata, error) {
	s.setStatus(path, Status{Status: "processing", Progress: 0, Message: "Starting"})
	defer s.clearStatus(path)

	meta, err := s.processor.Process(ctx, path, folderID, func(stage string, percent int) {
		s.setStatus(path, Status{Status: "processing", Progress: percent, Message: stage})
		if progress != nil {
			progress(stage, percent)
		}
	})
	if err != nil {
		return nil, err
	}
	return meta, nil
}

// Status reports ingestion progress for a path, if one is in flight.
func (s *Service) Status(path string) (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statuses[path]
	return st, ok
}

func (s *Service) setStatus(path string, st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[path] = st
}

func (s *Service) clearStatus(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.statuses, path)
}

func (s *Service) Query(ctx context.Context, text string, qc query.Context, conversationID string) query.Response {
	return s.orchestrator.Query(ctx, text, qc, conversationID)
}

func (s *Service) SuggestFollowUps(ctx context.Context, originalQuery string, resp query.Response, qc query.Context) []string {
	return s.orchestrator.SuggestFollowUps(ctx, originalQuery, resp, qc)
}

func (s *Service) ListDocuments(folderID string) ([]ledger.DocumentMetadata, error) {
	return s.store.List(folderID)
}

func (s *Service) DeleteDocument(ctx context.Context, id string) bool {
	return s.deleter.DeleteByID(ctx, id)
}

func (s *Service) DeleteDocumentByName(ctx context.Context, name string) bool {
	return s.deleter.DeleteByName(ctx, name)
}

func (s *Service) ClearAllDocuments(ctx context.Context) int {
	return s.deleter.ClearAll(ctx)
}

func (s *Service) Analytics() query.Summary {
	return s.analytics.Summarize()
}

func (s *Service) Personas() []persona.Persona {
	return s.personas.All()
}

func (s *Service) Modes() []query.Mode {
	return query.Modes()
}
