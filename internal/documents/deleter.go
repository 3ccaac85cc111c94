package documents

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/covenantrix/rag/internal/kb"
	"github.com/covenantrix/rag/internal/ledger"
)

// Deleter removes documents from the metadata ledger and best-effort purges
// the retrieval engine's state. Deletion is ledger-authoritative: the ledger
// entry goes first and is never restored if the engine-side purge fails, so a
// partial failure leaves auxiliary caches stale, never the ledger wrong.
type Deleter struct {
	store   *ledger.Store
	gateway kb.Gateway
	caches  *kb.Caches
	logger  *log.Logger
}

// NewDeleter creates a Deleter. caches may be nil when the engine keeps no
// file-based state.
func NewDeleter(store *ledger.Store, gateway kb.Gateway, caches *kb.Caches) *Deleter {
	return &Deleter{
		store:   store,
		gateway: gateway,
		caches:  caches,
		logger:  log.New(os.Stderr, "deleter: ", log.LstdFlags),
	}
}

// DeleteByID removes one document. It reports only a boolean outcome; purge
// failures are logged, not surfaced, so callers cannot distinguish a clean
// delete from a partially purged one without inspecting logs.
func (d *Deleter) DeleteByID(ctx context.Context, docID string) bool {
	meta, err := d.store.Get(docID)
	if err != nil {
		if !errors.Is(err, ledger.ErrNotFound) {
			d.logger.Printf("lookup failed for %s: %v", docID, err)
		}
		return false
	}

	if _, err := d.store.Remove(docID); err != nil {
		d.logger.Printf("failed to remove ledger entry %s: %v", docID, err)
		return false
	}

	if err := d.gateway.PurgeDocument(ctx, docID, meta.OriginalName); err != nil {
		d.logger.Printf("best-effort purge failed for %s: %v", docID, err)
	}
	if d.caches != nil {
		for _, key := range d.caches.ScrubEntries(docID, meta.OriginalName) {
			d.logger.Printf("removed cached entry: %s", key)
		}
	}

	if meta.FilePath != "" {
		if err := os.Remove(meta.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			d.logger.Printf("could not remove file %s: %v", meta.FilePath, err)
		}
	}
	return true
}

// DeleteByName deletes the document with the given original filename. When
// several records share the name the most recently processed one is deleted
// and the ambiguity is logged.
func (d *Deleter) DeleteByName(ctx context.Context, filename string) bool {
	docs, err := d.store.List("")
	if err != nil {
		d.logger.Printf("failed to list documents: %v", err)
		return false
	}

	var matches []ledger.DocumentMetadata
	for _, doc := range docs {
		if doc.OriginalName == filename {
			matches = append(matches, doc)
		}
	}
	if len(matches) == 0 {
		return false
	}
	if len(matches) > 1 {
		d.logger.Printf("multiple documents named %s; deleting the most recent (%s)", filename, matches[0].ID)
	}

	// List is sorted newest first.
	return d.DeleteByID(ctx, matches[0].ID)
}

// ClearAll deletes every ledger entry through the regular path, then removes
// the engine's known storage artifacts outright. Returns the number of
// records it cleared, which equals the count present before the call unless a
// mid-loop ledger write fails.
func (d *Deleter) ClearAll(ctx context.Context) int {
	docs, err := d.store.List("")
	if err != nil {
		d.logger.Printf("failed to list documents: %v", err)
		return 0
	}

	cleared := 0
	for _, doc := range docs {
		if d.DeleteByID(ctx, doc.ID) {
			cleared++
		}
	}

	if d.caches != nil {
		d.caches.RemoveAll()
	}
	return cleared
}
