package index

import (
	"context"

	"github.com/porsa-ai/porsa/internal/domain"
)

// VectorStore defines the storage contract for the index. Satisfied by the
// Redis FT.SEARCH repository and the embedded bolt store.
type VectorStore interface {
	EnsureIndex(ctx context.Context, dim int) error
	UpsertPoints(ctx context.Context, points []domain.Point) error
	Search(ctx context.Context, vector []float32, k int) ([]domain.RetrievalResult, error)
	Drop(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

// Embedder vectorizes text into embeddings, batched.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
