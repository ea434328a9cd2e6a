// Package vector stores chunk embeddings in Redis hashes behind an
// FT.SEARCH vector index.
package vector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/porsa-ai/porsa/internal/db"
	"github.com/porsa-ai/porsa/internal/domain"
)

// store is the consumer interface over the database facade (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Config holds naming for keys and the FT index.
type Config struct {
	Collection string
	KeyPrefix  string
}

// Repo implements the index usecase's vector store over Redis.
type Repo struct {
	store store
	cfg   Config
}

// New creates a Redis-backed vector repository.
func New(s store, cfg Config) *Repo {
	return &Repo{store: s, cfg: cfg}
}

// EnsureIndex creates the FT index if it does not exist yet. Safe to call
// repeatedly.
func (r *Repo) EnsureIndex(ctx context.Context, dim int) error {
	idxName := r.indexName()

	exists, err := r.store.IndexExists(ctx, idxName)
	if err != nil {
		return fmt.Errorf("check index %s: %w", idxName, err)
	}
	if exists {
		return nil
	}

	def, err := db.NewIndex(idxName).
		Prefix(r.keyPrefix()).
		Text("text").
		Tag("url").
		Numeric("chunk_index").
		VectorHNSW("vector", dim, db.DistanceCosine, 16, 200).
		Build()
	if err != nil {
		return fmt.Errorf("build index definition: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", idxName, err)
	}
	return nil
}

// UpsertPoints writes points as hashes in one pipelined round-trip. Point IDs
// are content hashes, so re-upserting the same text overwrites in place and
// the index does not grow.
func (r *Repo) UpsertPoints(ctx context.Context, points []domain.Point) error {
	if len(points) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(points))
	for i, p := range points {
		items[i] = db.HashSetItem{
			Key:    r.pointKey(p.ID),
			Fields: buildHashFields(&p),
		}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

// Search runs a KNN query and converts hits into retrieval results. Scores
// are cosine similarities in [0, 1]; threshold filtering is the caller's job.
func (r *Repo) Search(ctx context.Context, vector []float32, k int) ([]domain.RetrievalResult, error) {
	q := &db.KNNQuery{
		IndexName:    r.indexName(),
		Vector:       vector,
		K:            k,
		ReturnFields: []string{"text", "url", "title", "chunk_index", "extra", "__vector_score"},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", r.cfg.Collection, err)
	}
	if sr == nil || sr.Total == 0 {
		return nil, nil
	}

	results := make([]domain.RetrievalResult, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		results = append(results, parseEntry(entry))
	}
	return results, nil
}

// Drop removes the FT index and all point keys. A missing index is not an
// error.
func (r *Repo) Drop(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, r.indexName()); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", r.indexName(), err)
	}

	keys, err := r.store.Scan(ctx, r.keyPrefix()+"*")
	if err != nil {
		return fmt.Errorf("scan point keys: %w", err)
	}
	for _, key := range keys {
		if err := r.store.Del(ctx, key); err != nil {
			return fmt.Errorf("del %s: %w", key, err)
		}
	}
	return nil
}

// Count returns the number of indexed points.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.indexName(), "*")
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", r.cfg.Collection, err)
	}
	return n, nil
}

func (r *Repo) keyPrefix() string {
	return fmt.Sprintf("%s%s:", r.cfg.KeyPrefix, r.cfg.Collection)
}

func (r *Repo) pointKey(id string) string {
	return r.keyPrefix() + id
}

func (r *Repo) indexName() string {
	return strings.TrimSuffix(r.keyPrefix(), ":") + "-idx"
}
