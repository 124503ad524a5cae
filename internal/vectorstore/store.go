// Package vectorstore maintains the chunk table: embedded slices of source
// files and meeting transcripts, searched by HNSW cosine similarity.
package vectorstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/davidgraf/repolens/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// Embedder produces embedding vectors for texts.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Querier is the database surface the store needs.
type Querier interface {
	DB() *surrealdb.DB
}

// Document is one chunk of text to be embedded and stored.
type Document struct {
	Project    string
	Path       string
	Source     string
	ChunkIndex int
	Content    string
}

// Store embeds documents and persists them as chunk records.
type Store struct {
	client    Querier
	embedder  Embedder
	batchSize int
}

// New creates a store. batchSize bounds how many documents are embedded
// and inserted per round trip.
func New(client Querier, embedder Embedder, batchSize int) *Store {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Store{client: client, embedder: embedder, batchSize: batchSize}
}

// AddDocuments embeds and inserts documents in batches. Returns the number
// of chunks stored. A failure in one batch aborts the remainder: callers
// clear the project's chunks before re-adding, so a partial insert is
// repaired by the next indexing run.
func (s *Store) AddDocuments(ctx context.Context, docs []Document) (int, error) {
	stored := 0
	for start := 0; start < len(docs); start += s.batchSize {
		end := min(start+s.batchSize, len(docs))
		batch := docs[start:end]

		texts := make([]string, len(batch))
		for i, d := range batch {
			texts[i] = d.Content
		}

		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return stored, fmt.Errorf("embed batch at offset %d: %w", start, err)
		}

		rows := make([]models.ChunkInput, len(batch))
		for i, d := range batch {
			rows[i] = models.ChunkInput{
				Project:    d.Project,
				Path:       d.Path,
				Source:     d.Source,
				ChunkIndex: d.ChunkIndex,
				Content:    d.Content,
				Embedding:  vectors[i],
			}
		}

		_, err = surrealdb.Query[any](ctx, s.client.DB(), `
			INSERT INTO chunk $rows
		`, map[string]any{"rows": rows})
		if err != nil {
			return stored, fmt.Errorf("insert chunk batch at offset %d: %w", start, err)
		}
		stored += len(batch)
	}

	slog.Debug("chunks stored", "count", stored)
	return stored, nil
}

// SimilaritySearch returns up to k chunks nearest to the query within one
// project, ordered most similar first. The HNSW operator picks nearest
// neighbours across the whole chunk table and the project filter applies
// afterwards, so the operator over-fetches by 4x; a project holding few of
// the table-wide nearest chunks can still come back with fewer than k.
func (s *Store) SimilaritySearch(ctx context.Context, query, projectID string, k int) ([]models.Chunk, error) {
	emb, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// HNSW with ef=40 for better recall.
	sql := fmt.Sprintf(`
		SELECT id, project, path, source, chunk_index, content
		FROM chunk
		WHERE embedding <|%d,40|> $emb AND project = $project
		LIMIT %d
	`, k*4, k)

	results, err := surrealdb.Query[[]models.Chunk](ctx, s.client.DB(), sql, map[string]any{
		"emb":     emb,
		"project": projectID,
	})
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return []models.Chunk{}, nil
	}
	return (*results)[0].Result, nil
}

// DeleteProject removes every chunk belonging to a project.
func (s *Store) DeleteProject(ctx context.Context, projectID string) error {
	_, err := surrealdb.Query[any](ctx, s.client.DB(), `
		DELETE chunk WHERE project = $project
	`, map[string]any{"project": projectID})
	if err != nil {
		return fmt.Errorf("delete project chunks: %w", err)
	}
	return nil
}

// DeletePath removes the chunks of one file or meeting within a project.
func (s *Store) DeletePath(ctx context.Context, projectID, path string) error {
	_, err := surrealdb.Query[any](ctx, s.client.DB(), `
		DELETE chunk WHERE project = $project AND path = $path
	`, map[string]any{"project": projectID, "path": path})
	if err != nil {
		return fmt.Errorf("delete path chunks: %w", err)
	}
	return nil
}
