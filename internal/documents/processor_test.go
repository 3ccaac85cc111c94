package documents

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covenantrix/rag/internal/kb"
	"github.com/covenantrix/rag/internal/ledger"
)

// mockGateway implements kb.Gateway for pipeline tests.
type mockGateway struct {
	insertErr error
	queryErr  error
	purgeErr  error
	inserted  map[string]string
	purged    []string
}

func newMockGateway() *mockGateway {
	return &mockGateway{inserted: map[string]string{}}
}

func (m *mockGateway) Insert(ctx context.Context, docID, text string) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted[docID] = text
	return nil
}

func (m *mockGateway) Query(ctx context.Context, prompt string, params kb.QueryParams) (string, error) {
	if m.queryErr != nil {
		return "", m.queryErr
	}
	return "answer", nil
}

func (m *mockGateway) PurgeDocument(ctx context.Context, docID, originalName string) error {
	m.purged = append(m.purged, docID)
	return m.purgeErr
}

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func contractText() string {
	return strings.Repeat("This binding agreement was executed by the parties. ", 20)
}

func TestProcess_Success(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "deal.txt", contractText())
	gateway := newMockGateway()
	store := ledger.New(dir)

	var stages []string
	var percents []int
	meta, err := NewProcessor(NewExtractor(), gateway, store, nil).Process(
		context.Background(), path, "folder-1",
		func(stage string, pct int) {
			stages = append(stages, stage)
			percents = append(percents, pct)
		})
	require.NoError(t, err)

	assert.Equal(t, "deal.txt", meta.OriginalName)
	assert.Equal(t, "folder-1", meta.FolderID)
	assert.Equal(t, TypeContract, meta.DocumentType)
	assert.Len(t, meta.ID, 16)
	assert.Equal(t, []int{20, 40, 60, 80, 100}, percents)
	assert.Len(t, stages, 5)

	// Inserted into the gateway and persisted to the ledger.
	assert.Contains(t, gateway.inserted, meta.ID)
	got, err := store.Get(meta.ID)
	require.NoError(t, err)
	assert.Equal(t, meta.DocumentType, got.DocumentType)
}

func TestProcess_InsufficientText(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "empty.txt", "   hi    ")
	gateway := newMockGateway()
	store := ledger.New(dir)

	_, err := NewProcessor(NewExtractor(), gateway, store, nil).Process(
		context.Background(), path, "default", nil)
	assert.ErrorIs(t, err, ErrInsufficientText)
	assert.Empty(t, gateway.inserted)
}

func TestProcess_InsertFailureWritesNoMetadata(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "deal.txt", contractText())
	gateway := newMockGateway()
	gateway.insertErr = errors.New("engine down")
	store := ledger.New(dir)

	_, err := NewProcessor(NewExtractor(), gateway, store, nil).Process(
		context.Background(), path, "default", nil)
	assert.ErrorIs(t, err, ErrInsertFailed)

	docs, lerr := store.List("")
	require.NoError(t, lerr)
	assert.Empty(t, docs)
}

func TestDocumentID_Deterministic(t *testing.T) {
	mtime := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	a := DocumentID("lease.pdf", mtime)
	b := DocumentID("lease.pdf", mtime)
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)

	// Changing the modification time changes the id.
	c := DocumentID("lease.pdf", mtime.Add(time.Second))
	assert.NotEqual(t, a, c)

	// So does the name.
	d := DocumentID("contract.pdf", mtime)
	assert.NotEqual(t, a, d)
}

func TestProcess_SameFileSameID(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "deal.txt", contractText())
	gateway := newMockGateway()
	store := ledger.New(dir)
	processor := NewProcessor(NewExtractor(), gateway, store, nil)

	first, err := processor.Process(context.Background(), path, "default", nil)
	require.NoError(t, err)
	second, err := processor.Process(context.Background(), path, "default", nil)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	docs, err := store.List("")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}
