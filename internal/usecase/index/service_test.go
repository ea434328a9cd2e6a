package index

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/porsa-ai/porsa/internal/domain"
)

// --- Mocks ---

type mockStore struct {
	ensureDim    int
	ensureErr    error
	upserted     []domain.Point
	upsertErr    error
	searchVector []float32
	searchK      int
	searchOut    []domain.RetrievalResult
	searchErr    error
	dropped      bool
	count        int
}

func (m *mockStore) EnsureIndex(_ context.Context, dim int) error {
	m.ensureDim = dim
	return m.ensureErr
}

func (m *mockStore) UpsertPoints(_ context.Context, points []domain.Point) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, points...)
	return nil
}

func (m *mockStore) Search(_ context.Context, vector []float32, k int) ([]domain.RetrievalResult, error) {
	m.searchVector = vector
	m.searchK = k
	return m.searchOut, m.searchErr
}

func (m *mockStore) Drop(_ context.Context) error {
	m.dropped = true
	return nil
}

func (m *mockStore) Count(_ context.Context) (int, error) {
	return m.count, nil
}

type mockEmbedder struct {
	batches [][]string
	out     [][]float32
	err     error
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batches = append(m.batches, texts)
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	out := m.out
	if out == nil {
		out = make([][]float32, len(texts))
		for i := range out {
			out[i] = []float32{float32(i), 1}
		}
	}
	return domain.BatchEmbeddingResult{Embeddings: out}, nil
}

func newService(store *mockStore, embed *mockEmbedder) *Service {
	return New(store, embed, 2, zap.NewNop())
}

// --- Tests ---

func TestUpsert(t *testing.T) {
	store := &mockStore{}
	embed := &mockEmbedder{}
	s := newService(store, embed)

	chunks := []domain.Chunk{
		{Text: "تهران پایتخت ایران است", Index: 0, URL: "https://a", Title: "ایران"},
		{Text: "اصفهان نصف جهان", Index: 1, URL: "https://a", Title: "ایران"},
	}

	ids := s.Upsert(context.Background(), chunks)
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %d", len(ids))
	}
	if ids[0] != domain.ChunkID(chunks[0].Text) || ids[1] != domain.ChunkID(chunks[1].Text) {
		t.Errorf("ids are not content hashes: %v", ids)
	}
	if len(embed.batches) != 1 || len(embed.batches[0]) != 2 {
		t.Errorf("expected one batch embed call with 2 texts, got %v", embed.batches)
	}
	if len(store.upserted) != 2 {
		t.Fatalf("expected 2 points stored, got %d", len(store.upserted))
	}
	p := store.upserted[1]
	if p.ID != ids[1] || p.Text != chunks[1].Text || p.Payload.ChunkIndex != 1 || p.Payload.URL != "https://a" {
		t.Errorf("unexpected point: %+v", p)
	}
}

func TestUpsert_SameContentSameIDs(t *testing.T) {
	store := &mockStore{}
	s := newService(store, &mockEmbedder{})

	chunks := []domain.Chunk{{Text: "same text", Index: 0}}
	first := s.Upsert(context.Background(), chunks)
	second := s.Upsert(context.Background(), chunks)

	if first[0] != second[0] {
		t.Errorf("ids differ across runs: %q vs %q", first[0], second[0])
	}
}

func TestUpsert_EmbeddingFailureAbsorbed(t *testing.T) {
	store := &mockStore{}
	embed := &mockEmbedder{err: errors.New("provider down")}
	s := newService(store, embed)

	ids := s.Upsert(context.Background(), []domain.Chunk{{Text: "x"}})
	if ids != nil {
		t.Errorf("expected nil ids, got %v", ids)
	}
	if len(store.upserted) != 0 {
		t.Errorf("index mutated despite embedding failure: %v", store.upserted)
	}
}

func TestUpsert_StoreFailureAbsorbed(t *testing.T) {
	store := &mockStore{upsertErr: errors.New("store down")}
	s := newService(store, &mockEmbedder{})

	ids := s.Upsert(context.Background(), []domain.Chunk{{Text: "x"}})
	if ids != nil {
		t.Errorf("expected nil ids, got %v", ids)
	}
}

func TestUpsert_Empty(t *testing.T) {
	embed := &mockEmbedder{}
	s := newService(&mockStore{}, embed)

	if ids := s.Upsert(context.Background(), nil); ids != nil {
		t.Errorf("expected nil ids, got %v", ids)
	}
	if len(embed.batches) != 0 {
		t.Errorf("embedder called for empty input")
	}
}

func TestSearch_FiltersAndOrders(t *testing.T) {
	store := &mockStore{searchOut: []domain.RetrievalResult{
		{Text: "high", Score: 0.9},
		{Text: "low", Score: 0.4},
		{Text: "mid", Score: 0.6},
	}}
	s := newService(store, &mockEmbedder{out: [][]float32{{0.5, 0.5}}})

	results := s.Search(context.Background(), "query", 5, 0.5)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Text != "high" || results[1].Text != "mid" {
		t.Errorf("wrong order: %+v", results)
	}
	if store.searchK != 5 {
		t.Errorf("topK = %d, want 5", store.searchK)
	}
}

func TestSearch_EmbeddingFailureAbsorbed(t *testing.T) {
	s := newService(&mockStore{}, &mockEmbedder{err: errors.New("provider down")})

	if results := s.Search(context.Background(), "query", 5, 0.5); results != nil {
		t.Errorf("expected nil results, got %v", results)
	}
}

func TestSearch_StoreFailureAbsorbed(t *testing.T) {
	store := &mockStore{searchErr: errors.New("store down")}
	s := newService(store, &mockEmbedder{out: [][]float32{{1, 0}}})

	if results := s.Search(context.Background(), "query", 5, 0.5); results != nil {
		t.Errorf("expected nil results, got %v", results)
	}
}

func TestEnsureCollection(t *testing.T) {
	store := &mockStore{}
	s := newService(store, &mockEmbedder{})

	if err := s.EnsureCollection(context.Background()); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	if store.ensureDim != 2 {
		t.Errorf("dim = %d, want 2", store.ensureDim)
	}
}

func TestDropCollection(t *testing.T) {
	store := &mockStore{}
	s := newService(store, &mockEmbedder{})

	if err := s.DropCollection(context.Background()); err != nil {
		t.Fatalf("DropCollection: %v", err)
	}
	if !store.dropped {
		t.Error("store not dropped")
	}
}
