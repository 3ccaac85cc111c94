package kb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/tmc/langchaingo/embeddings"
	"golang.org/x/time/rate"

	"github.com/covenantrix/rag/internal/llm"
)

// PGVectorConfig configures the pgvector-backed gateway.
type PGVectorConfig struct {
	ConnString   string
	TableName    string
	VectorDim    int
	ChunkSize    int     // characters per chunk
	ChunkOverlap int     // percent of words carried into the next chunk
	BatchSize    int     // texts embedded per provider call
	EmbedRate    float64 // embedding calls per second
}

// PGVector stores chunk embeddings in Postgres and answers queries by cosine
// search plus completion-provider synthesis.
type PGVector struct {
	config    PGVectorConfig
	pool      *pgxpool.Pool
	embedder  embeddings.Embedder
	completer llm.Completer
	limiter   *rate.Limiter
}

// NewPGVector connects, ensures the schema exists and returns the gateway.
func NewPGVector(config PGVectorConfig, embedder embeddings.Embedder, completer llm.Completer) (*PGVector, error) {
	if config.TableName == "" {
		config.TableName = "kb_chunks"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 1536
	}
	if config.ChunkSize == 0 {
		config.ChunkSize = 800
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 12
	}
	if config.BatchSize == 0 {
		config.BatchSize = 32
	}
	if config.EmbedRate == 0 {
		config.EmbedRate = 2
	}

	poolConfig, err := pgxpool.ParseConfig(config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	g := &PGVector{
		config:    config,
		pool:      pool,
		embedder:  embedder,
		completer: completer,
		limiter:   rate.NewLimiter(rate.Limit(config.EmbedRate), 1),
	}

	if err := g.initialize(); err != nil {
		pool.Close()
		return nil, err
	}
	return g, nil
}

func (g *PGVector) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := g.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			document_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d),
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`, g.config.TableName, g.config.VectorDim)
	if _, err := g.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`, g.config.TableName, g.config.TableName)
	if _, err := g.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (g *PGVector) Close() {
	g.pool.Close()
}

// Insert chunks the text, embeds each chunk and batch-inserts the rows.
func (g *PGVector) Insert(ctx context.Context, docID, text string) error {
	chunks := splitText(text, g.config.ChunkSize, g.config.ChunkOverlap)
	if len(chunks) == 0 {
		return nil
	}

	for start := 0; start < len(chunks); start += g.config.BatchSize {
		end := start + g.config.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		if err := g.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrGateway, err)
		}
		vectors, err := g.embedder.EmbedDocuments(ctx, chunks[start:end])
		if err != nil {
			return fmt.Errorf("%w: failed to embed chunks: %v", ErrGateway, err)
		}

		batch := &pgx.Batch{}
		stmt := fmt.Sprintf(`
			INSERT INTO %s (id, document_id, chunk_index, content, embedding)
			VALUES ($1, $2, $3, $4, $5)`, g.config.TableName)
		for i, vec := range vectors {
			batch.Queue(stmt, uuid.New(), docID, start+i, chunks[start+i], pgvector.NewVector(vec))
		}

		br := g.pool.SendBatch(ctx, batch)
		for range vectors {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("%w: failed to insert chunk: %v", ErrGateway, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("%w: %v", ErrGateway, err)
		}
	}
	return nil
}

// Query embeds the prompt, retrieves the nearest chunks and synthesizes an
// answer through the completion provider.
func (g *PGVector) Query(ctx context.Context, prompt string, params QueryParams) (string, error) {
	vec, err := g.embedder.EmbedQuery(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: failed to embed query: %v", ErrGateway, err)
	}

	limit := params.ChunkTopK
	if limit <= 0 {
		limit = 15
	}

	rows, err := g.pool.Query(ctx, fmt.Sprintf(`
		SELECT content FROM %s
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2`, g.config.TableName),
		pgvector.NewVector(vec), limit)
	if err != nil {
		return "", fmt.Errorf("%w: failed to search chunks: %v", ErrGateway, err)
	}
	defer rows.Close()

	var excerpts []string
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return "", fmt.Errorf("%w: failed to scan chunk: %v", ErrGateway, err)
		}
		excerpts = append(excerpts, content)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrGateway, err)
	}

	answer, err := g.completer.Complete(ctx, prompt, buildRetrievalContext(excerpts), params.History, llm.Options{
		Model:       params.Model,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTotalTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGateway, err)
	}
	return answer, nil
}

// PurgeDocument removes all chunk rows for the document. Unlike file-cache
// engines this store supports native per-document deletion.
func (g *PGVector) PurgeDocument(ctx context.Context, docID, originalName string) error {
	_, err := g.pool.Exec(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE document_id = $1", g.config.TableName), docID)
	if err != nil {
		return fmt.Errorf("%w: failed to purge document: %v", ErrGateway, err)
	}
	return nil
}

// buildRetrievalContext formats retrieved excerpts into a system framing for
// the synthesis call.
func buildRetrievalContext(excerpts []string) string {
	if len(excerpts) == 0 {
		return "You are answering a question about a document knowledge base. No relevant excerpts were retrieved; say so when the question requires document evidence."
	}

	var b strings.Builder
	b.WriteString("You are answering a question using excerpts retrieved from a document knowledge base.\n\n")
	b.WriteString("## Relevant Text Excerpts:\n")
	for i, excerpt := range excerpts {
		fmt.Fprintf(&b, "\n### Excerpt %d:\n%s\n", i+1, excerpt)
	}
	b.WriteString("\nGround your answer in these excerpts and cite them when possible.")
	return b.String()
}

// splitText splits text into word-bounded chunks of roughly chunkSize
// characters, carrying overlapPercent of each chunk's words into the next.
func splitText(text string, chunkSize, overlapPercent int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	size := 0

	for _, word := range words {
		wordSize := len(word) + 1
		if size+wordSize > chunkSize && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))

			overlap := len(current) * overlapPercent / 100
			if overlap > 0 && overlap < len(current) {
				current = current[len(current)-overlap:]
				size = len(strings.Join(current, " "))
			} else {
				current = nil
				size = 0
			}
		}
		current = append(current, word)
		size += wordSize
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}
