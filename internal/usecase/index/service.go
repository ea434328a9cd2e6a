// Package index is the content-addressed vector index: it embeds chunk
// text and stores the vectors with their payloads, and answers similarity
// queries against them.
package index

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/porsa-ai/porsa/internal/domain"
)

// Service wraps an embedding provider and a vector store. Provider and
// store failures on the hot path are absorbed: logged and turned into
// empty results, so callers treat empty as "no evidence" rather than a
// fatal condition.
type Service struct {
	store  VectorStore
	embed  Embedder
	dim    int
	logger *zap.Logger
}

// New creates an index service. dim is the embedding dimension, fixed for
// the lifetime of the collection.
func New(store VectorStore, embed Embedder, dim int, logger *zap.Logger) *Service {
	return &Service{store: store, embed: embed, dim: dim, logger: logger}
}

// EnsureCollection creates the backing collection if it does not exist.
// Safe to call repeatedly and concurrently; "already exists" is not an
// error.
func (s *Service) EnsureCollection(ctx context.Context) error {
	if err := s.store.EnsureIndex(ctx, s.dim); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}
	return nil
}

// Upsert embeds all chunk texts in one batch call and writes them as
// points keyed by the content hash of the text. Re-upserting unchanged
// content overwrites in place, so repeated ingestion never grows the
// index. Returns the generated ids in input order; on an embedding or
// store failure it returns nil and nothing is written.
func (s *Service) Upsert(ctx context.Context, chunks []domain.Chunk) []string {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	batch, err := s.embed.EmbedBatch(ctx, texts)
	if err != nil {
		s.logger.Warn("embedding failed, skipping upsert",
			zap.Int("chunks", len(chunks)), zap.Error(err))
		return nil
	}
	if len(batch.Embeddings) != len(chunks) {
		s.logger.Warn("embedding count mismatch, skipping upsert",
			zap.Int("chunks", len(chunks)), zap.Int("embeddings", len(batch.Embeddings)))
		return nil
	}

	ids := make([]string, len(chunks))
	points := make([]domain.Point, len(chunks))
	for i, c := range chunks {
		ids[i] = domain.ChunkID(c.Text)
		points[i] = domain.Point{
			ID:     ids[i],
			Vector: batch.Embeddings[i],
			Text:   c.Text,
			Payload: domain.Payload{
				URL:        c.URL,
				Title:      c.Title,
				ChunkIndex: c.Index,
			},
		}
	}

	if err := s.store.UpsertPoints(ctx, points); err != nil {
		s.logger.Warn("vector store upsert failed",
			zap.Int("points", len(points)), zap.Error(err))
		return nil
	}
	return ids
}

// Search embeds the query once, runs a nearest-neighbor lookup capped at
// topK, and returns the matches at or above threshold ordered by
// descending score. Failures are absorbed into an empty result.
func (s *Service) Search(ctx context.Context, query string, topK int, threshold float64) []domain.RetrievalResult {
	batch, err := s.embed.EmbedBatch(ctx, []string{query})
	if err != nil || len(batch.Embeddings) != 1 {
		s.logger.Warn("query embedding failed", zap.Error(err))
		return nil
	}

	matches, err := s.store.Search(ctx, batch.Embeddings[0], topK)
	if err != nil {
		s.logger.Warn("vector search failed", zap.Error(err))
		return nil
	}

	results := matches[:0]
	for _, m := range matches {
		if m.Score >= threshold {
			results = append(results, m)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// DropCollection irreversibly removes the collection and every indexed
// vector in it.
func (s *Service) DropCollection(ctx context.Context) error {
	if err := s.store.Drop(ctx); err != nil {
		return fmt.Errorf("drop collection: %w", err)
	}
	return nil
}

// Count reports the number of indexed points.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count points: %w", err)
	}
	return n, nil
}
