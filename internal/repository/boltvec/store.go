// Package boltvec is a bbolt-backed vector store for single-node
// deployments without Redis. Brute-force cosine search over an in-memory
// mirror of the points bucket; fine for corpora in the tens of thousands
// of chunks.
package boltvec

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.etcd.io/bbolt"

	"github.com/porsa-ai/porsa/internal/domain"
)

var bucketPoints = []byte("points")

// Store implements the index usecase's vector store over bbolt.
type Store struct {
	db  *bbolt.DB
	dim int

	mu     sync.RWMutex
	points map[string]storedPoint
}

type storedPoint struct {
	Vector  []float32      `json:"v"`
	Text    string         `json:"t"`
	Payload domain.Payload `json:"p"`
}

// NewStore opens (or creates) the bbolt file at path.
func NewStore(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	return &Store{db: db, points: make(map[string]storedPoint)}, nil
}

// Close releases the underlying file.
func (s *Store) Close() {
	_ = s.db.Close()
}

// Ping reports readiness. The file is local, so an open handle is ready.
func (s *Store) Ping(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("bolt store is closed")
	}
	return nil
}

// EnsureIndex creates the points bucket and loads existing points into
// memory. Safe to call repeatedly; the expected dimension is pinned on the
// first call.
func (s *Store) EnsureIndex(_ context.Context, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dim == 0 {
		s.dim = dim
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPoints)
		return err
	})
	if err != nil {
		return fmt.Errorf("create points bucket: %w", err)
	}

	return s.loadPoints()
}

// loadPoints mirrors the bucket into memory. Caller holds s.mu.
func (s *Store) loadPoints() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketPoints)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var sp storedPoint
			if err := json.Unmarshal(v, &sp); err != nil {
				return nil // skip corrupted entries
			}
			s.points[string(k)] = sp
			return nil
		})
	})
}

// UpsertPoints writes points keyed by their content hash. Re-upserting the
// same text overwrites in place.
func (s *Store) UpsertPoints(_ context.Context, points []domain.Point) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketPoints)
		if err != nil {
			return fmt.Errorf("points bucket: %w", err)
		}

		for _, p := range points {
			if s.dim > 0 && len(p.Vector) != s.dim {
				return fmt.Errorf("point %s: expected dim %d, got %d: %w",
					p.ID, s.dim, len(p.Vector), domain.ErrVectorDimMismatch)
			}

			sp := storedPoint{Vector: p.Vector, Text: p.Text, Payload: p.Payload}
			data, err := json.Marshal(sp)
			if err != nil {
				return fmt.Errorf("marshal point %s: %w", p.ID, err)
			}
			if err := b.Put([]byte(p.ID), data); err != nil {
				return fmt.Errorf("put point %s: %w", p.ID, err)
			}

			s.points[p.ID] = sp
		}
		return nil
	})
}

// Search scores every point against the query vector and returns the top k
// by cosine similarity, descending.
func (s *Store) Search(_ context.Context, vector []float32, k int) ([]domain.RetrievalResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dim > 0 && len(vector) != s.dim {
		return nil, fmt.Errorf("expected dim %d, got %d: %w", s.dim, len(vector), domain.ErrVectorDimMismatch)
	}
	if len(s.points) == 0 {
		return nil, nil
	}

	scored := make([]domain.RetrievalResult, 0, len(s.points))
	for _, sp := range s.points {
		scored = append(scored, domain.RetrievalResult{
			Text:     sp.Text,
			Score:    cosineSimilarity(vector, sp.Vector),
			Metadata: sp.Payload,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k < len(scored) {
		scored = scored[:k]
	}
	return scored, nil
}

// Drop removes all points.
func (s *Store) Drop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketPoints) == nil {
			return nil
		}
		return tx.DeleteBucket(bucketPoints)
	})
	if err != nil {
		return fmt.Errorf("drop points bucket: %w", err)
	}

	s.points = make(map[string]storedPoint)
	return nil
}

// Count returns the number of stored points.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points), nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
