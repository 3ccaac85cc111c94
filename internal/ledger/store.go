package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ErrNotFound is returned by Get when no record exists for the given id.
var ErrNotFound = errors.New("document metadata not found")

// DocumentMetadata is one ledger record describing a processed document.
// ChunkCount, EntitiesExtracted and RelationshipsFound are heuristic
// estimates, not figures reported by the retrieval engine.
type DocumentMetadata struct {
	ID                 string    `json:"id"`
	OriginalName       string    `json:"original_name"`
	FilePath           string    `json:"file_path"`
	FolderID           string    `json:"folder_id"`
	FileSize           int64     `json:"file_size"`
	PageCount          int       `json:"page_count,omitempty"`
	ProcessedAt        time.Time `json:"processed_at"`
	DocumentType       string    `json:"document_type"`
	ProcessingTime     float64   `json:"processing_time"`
	ChunkCount         int       `json:"chunk_count"`
	EntitiesExtracted  int       `json:"entities_extracted"`
	RelationshipsFound int       `json:"relationships_found"`
}

// Store persists document metadata as a single JSON ledger keyed by id.
//
// The read-modify-write cycle is not safe under concurrent writers; callers
// that ingest or delete from multiple goroutines must serialize access.
type Store struct {
	path string
}

// New creates a Store backed by document_metadata.json inside workDir.
func New(workDir string) *Store {
	return &Store{path: filepath.Join(workDir, "document_metadata.json")}
}

// Path returns the ledger file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) load() (map[string]DocumentMetadata, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]DocumentMetadata{}, nil
		}
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	records := map[string]DocumentMetadata{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse ledger: %w", err)
	}
	return records, nil
}

func (s *Store) save(records map[string]DocumentMetadata) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	return nil
}

// Upsert inserts or replaces the record keyed by meta.ID.
func (s *Store) Upsert(meta DocumentMetadata) error {
	records, err := s.load()
	if err != nil {
		return err
	}
	records[meta.ID] = meta
	return s.save(records)
}

// Get retrieves a record by id, returning ErrNotFound for unknown ids.
func (s *Store) Get(id string) (*DocumentMetadata, error) {
	records, err := s.load()
	if err != nil {
		return nil, err
	}
	meta, ok := records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &meta, nil
}

// List returns all records, newest first. A non-empty folderID restricts the
// result to that folder.
func (s *Store) List(folderID string) ([]DocumentMetadata, error) {
	records, err := s.load()
	if err != nil {
		return nil, err
	}

	var docs []DocumentMetadata
	for _, meta := range records {
		if folderID == "" || meta.FolderID == folderID {
			docs = append(docs, meta)
		}
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].ProcessedAt.After(docs[j].ProcessedAt)
	})
	return docs, nil
}

// Remove deletes the record for id. It reports whether a record was present.
func (s *Store) Remove(id string) (bool, error) {
	records, err := s.load()
	if err != nil {
		return false, err
	}
	if _, ok := records[id]; !ok {
		return false, nil
	}
	delete(records, id)
	if err := s.save(records); err != nil {
		return false, err
	}
	return true, nil
}
