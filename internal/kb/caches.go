package kb

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// scanArtifacts are the engine-side key/value caches scrubbed entry-by-entry
// when a single document is deleted.
var scanArtifacts = []string{
	"kv_store_doc_status.json",
	"kv_store_full_docs.json",
	"kv_store_text_chunks.json",
}

// resetArtifacts are removed outright by a full reset.
var resetArtifacts = []string{
	"document_metadata.json",
	"graph_chunk_entity_relation.graphml",
	"kv_store_doc_status.json",
	"kv_store_full_docs.json",
	"kv_store_full_entities.json",
	"kv_store_full_relations.json",
	"kv_store_llm_response_cache.json",
	"kv_store_text_chunks.json",
	"vdb_chunks.json",
	"vdb_entities.json",
	"vdb_relationships.json",
}

// Caches scrubs auxiliary file-based state some retrieval engines keep in
// their working directory. The substring scan is inherently lossy: it removes
// entries whose keys mention the document, nothing more. Engines with native
// deletion should rely on Gateway.PurgeDocument instead.
type Caches struct {
	workDir string
	logger  *log.Logger
}

// NewCaches creates a scrubber rooted at workDir.
func NewCaches(workDir string) *Caches {
	return &Caches{
		workDir: workDir,
		logger:  log.New(os.Stderr, "kb: ", log.LstdFlags),
	}
}

// ScrubEntries removes, from every known cache file, entries whose key
// contains the document id or its original filename. Per-file failures are
// logged and skipped; callers get back only the keys actually removed.
func (c *Caches) ScrubEntries(docID, originalName string) []string {
	var removed []string

	for _, name := range scanArtifacts {
		path := filepath.Join(c.workDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				c.logger.Printf("could not read cache %s: %v", name, err)
			}
			continue
		}

		entries := map[string]json.RawMessage{}
		if err := json.Unmarshal(data, &entries); err != nil {
			c.logger.Printf("could not parse cache %s: %v", name, err)
			continue
		}

		var stale []string
		for key := range entries {
			if strings.Contains(key, docID) || (originalName != "" && strings.Contains(key, originalName)) {
				stale = append(stale, key)
			}
		}
		if len(stale) == 0 {
			continue
		}
		for _, key := range stale {
			delete(entries, key)
		}

		out, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			c.logger.Printf("could not marshal cache %s: %v", name, err)
			continue
		}
		if err := os.WriteFile(path, out, 0644); err != nil {
			c.logger.Printf("could not rewrite cache %s: %v", name, err)
			continue
		}
		removed = append(removed, stale...)
	}
	return removed
}

// RemoveAll deletes every known storage artifact file. Missing files are
// fine; other failures are logged and skipped.
func (c *Caches) RemoveAll() {
	for _, name := range resetArtifacts {
		path := filepath.Join(c.workDir, name)
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.logger.Printf("could not remove storage file %s: %v", name, err)
		}
	}
}
