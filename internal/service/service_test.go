package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covenantrix/rag/internal/kb"
	"github.com/covenantrix/rag/internal/llm"
	"github.com/covenantrix/rag/internal/query"
)

type fakeGateway struct {
	answer   string
	inserted map[string]string
}

func (g *fakeGateway) Insert(ctx context.Context, docID, text string) error {
	if g.inserted == nil {
		g.inserted = make(map[string]string)
	}
	g.inserted[docID] = text
	return nil
}

func (g *fakeGateway) Query(ctx context.Context, prompt string, params kb.QueryParams) (string, error) {
	return g.answer, nil
}

func (g *fakeGateway) PurgeDocument(ctx context.Context, docID, originalName string) error {
	return nil
}

type fakeCompleter struct{}

func (fakeCompleter) Complete(ctx context.Context, prompt, systemPrompt string, history []llm.Turn, opts llm.Options) (string, error) {
	return "1. A follow-up?", nil
}

type fakeModels struct{}

func (fakeModels) ModelForTier(tier string) string { return "test-model" }

func newTestService(t *testing.T, gw *fakeGateway) *Service {
	t.Helper()
	return New(Deps{
		Gateway:    gw,
		Completer:  fakeCompleter{},
		Models:     fakeModels{},
		WorkingDir: t.TempDir(),
		UploadDir:  t.TempDir(),
	})
}

func TestProcessListDeleteRoundTrip(t *testing.T) {
	gw := &fakeGateway{answer: "ok"}
	svc := newTestService(t, gw)

	path := filepath.Join(t.TempDir(), "lease.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("the tenant shall pay rent monthly. ", 20)), 0644))

	meta, err := svc.ProcessDocument(context.Background(), path, "folder-1", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, gw.inserted[meta.ID])

	docs, err := svc.ListDocuments("")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, meta.ID, docs[0].ID)

	assert.True(t, svc.DeleteDocument(context.Background(), meta.ID))
	docs, err = svc.ListDocuments("")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestStatusVisibleDuringProcessing(t *testing.T) {
	gw := &fakeGateway{}
	svc := newTestService(t, gw)

	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("contract terms. ", 10)), 0644))

	var seen []Status
	_, err := svc.ProcessDocument(context.Background(), path, "", func(stage string, percent int) {
		st, ok := svc.Status(path)
		require.True(t, ok)
		seen = append(seen, st)
	})
	require.NoError(t, err)
	require.NotEmpty(t, seen)
	assert.Equal(t, 100, seen[len(seen)-1].Progress)

	// cleared once the call returns
	_, ok := svc.Status(path)
	assert.False(t, ok)
}

func TestSaveUploadUniquifiesNames(t *testing.T) {
	svc := newTestService(t, &fakeGateway{})

	p1, err := svc.SaveUpload("brief.pdf", strings.NewReader("a"))
	require.NoError(t, err)
	p2, err := svc.SaveUpload("brief.pdf", strings.NewReader("b"))
	require.NoError(t, err)

	assert.NotEqual(t, p1, p2)
	assert.True(t, strings.HasSuffix(p1, "_brief.pdf"))

	data, err := os.ReadFile(p1)
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))
}

func TestQueryFeedsAnalytics(t *testing.T) {
	svc := newTestService(t, &fakeGateway{answer: "According to clause 2, yes."})

	resp := svc.Query(context.Background(), "is it allowed?", query.Context{}, "")
	assert.NotEmpty(t, resp.Answer)
	assert.Greater(t, resp.Confidence, 0.0)

	assert.Equal(t, 1, svc.Analytics().TotalQueries)
}

func TestCatalogues(t *testing.T) {
	svc := newTestService(t, &fakeGateway{})
	assert.Len(t, svc.Personas(), 5)
	assert.Len(t, svc.Modes(), 5)
}
