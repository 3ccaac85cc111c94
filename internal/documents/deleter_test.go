package documents

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covenantrix/rag/internal/kb"
	"github.com/covenantrix/rag/internal/ledger"
)

func seedDoc(t *testing.T, store *ledger.Store, id, name string, processedAt time.Time) {
	t.Helper()
	require.NoError(t, store.Upsert(ledger.DocumentMetadata{
		ID:           id,
		OriginalName: name,
		ProcessedAt:  processedAt,
		DocumentType: TypeGeneralDocument,
	}))
}

func TestDeleteByID_UnknownID(t *testing.T) {
	dir := t.TempDir()
	store := ledger.New(dir)
	seedDoc(t, store, "keep", "keep.pdf", time.Now())

	deleted := NewDeleter(store, newMockGateway(), nil).DeleteByID(context.Background(), "missing")
	assert.False(t, deleted)

	docs, err := store.List("")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestDeleteByID_RemovesLedgerAndPurges(t *testing.T) {
	dir := t.TempDir()
	store := ledger.New(dir)
	seedDoc(t, store, "doc1", "lease.pdf", time.Now())
	gateway := newMockGateway()

	deleted := NewDeleter(store, gateway, nil).DeleteByID(context.Background(), "doc1")
	assert.True(t, deleted)

	_, err := store.Get("doc1")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	assert.Equal(t, []string{"doc1"}, gateway.purged)

	docs, err := store.List("")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDeleteByID_PurgeFailureStillDeletesLedgerEntry(t *testing.T) {
	// Ledger-authoritative ordering: the ledger entry is gone even when the
	// engine-side purge fails.
	dir := t.TempDir()
	store := ledger.New(dir)
	seedDoc(t, store, "doc1", "lease.pdf", time.Now())
	gateway := newMockGateway()
	gateway.purgeErr = errors.New("engine unreachable")

	deleted := NewDeleter(store, gateway, nil).DeleteByID(context.Background(), "doc1")
	assert.True(t, deleted)

	_, err := store.Get("doc1")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestDeleteByID_RemovesSourceFile(t *testing.T) {
	dir := t.TempDir()
	store := ledger.New(dir)
	tmpFile := filepath.Join(dir, "upload.pdf")
	require.NoError(t, os.WriteFile(tmpFile, []byte("pdf"), 0644))
	require.NoError(t, store.Upsert(ledger.DocumentMetadata{
		ID:           "doc1",
		OriginalName: "upload.pdf",
		FilePath:     tmpFile,
		ProcessedAt:  time.Now(),
	}))

	assert.True(t, NewDeleter(store, newMockGateway(), nil).DeleteByID(context.Background(), "doc1"))

	_, err := os.Stat(tmpFile)
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteByID_ScrubsCaches(t *testing.T) {
	dir := t.TempDir()
	store := ledger.New(dir)
	seedDoc(t, store, "doc1", "lease.pdf", time.Now())

	cache := map[string]string{"chunk-doc1-0": "stale", "chunk-other": "keep"}
	data, err := json.Marshal(cache)
	require.NoError(t, err)
	cachePath := filepath.Join(dir, "kv_store_text_chunks.json")
	require.NoError(t, os.WriteFile(cachePath, data, 0644))

	deleter := NewDeleter(store, newMockGateway(), kb.NewCaches(dir))
	assert.True(t, deleter.DeleteByID(context.Background(), "doc1"))

	remaining := map[string]string{}
	raw, err := os.ReadFile(cachePath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &remaining))
	assert.Len(t, remaining, 1)
	assert.Contains(t, remaining, "chunk-other")
}

func TestDeleteByName_PicksMostRecent(t *testing.T) {
	dir := t.TempDir()
	store := ledger.New(dir)
	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	seedDoc(t, store, "older", "lease.pdf", base)
	seedDoc(t, store, "newer", "lease.pdf", base.Add(time.Hour))
	gateway := newMockGateway()

	assert.True(t, NewDeleter(store, gateway, nil).DeleteByName(context.Background(), "lease.pdf"))

	_, err := store.Get("newer")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	_, err = store.Get("older")
	assert.NoError(t, err)
}

func TestDeleteByName_Unknown(t *testing.T) {
	store := ledger.New(t.TempDir())
	assert.False(t, NewDeleter(store, newMockGateway(), nil).DeleteByName(context.Background(), "ghost.pdf"))
}

func TestClearAll(t *testing.T) {
	dir := t.TempDir()
	store := ledger.New(dir)
	seedDoc(t, store, "a", "a.pdf", time.Now())
	seedDoc(t, store, "b", "b.pdf", time.Now())
	seedDoc(t, store, "c", "c.pdf", time.Now())

	graphPath := filepath.Join(dir, "graph_chunk_entity_relation.graphml")
	require.NoError(t, os.WriteFile(graphPath, []byte("<graphml/>"), 0644))

	count := NewDeleter(store, newMockGateway(), kb.NewCaches(dir)).ClearAll(context.Background())
	assert.Equal(t, 3, count)

	docs, err := store.List("")
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, err = os.Stat(graphPath)
	assert.True(t, os.IsNotExist(err))
}
