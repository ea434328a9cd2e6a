package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/porsa-ai/porsa/internal/domain"
	"github.com/porsa-ai/porsa/internal/repository/history"
	healthuc "github.com/porsa-ai/porsa/internal/usecase/health"
)

// --- Mocks ---

type mockQuery struct {
	resp    domain.QueryResponse
	err     error
	lastWeb bool
	lastK   int
}

func (m *mockQuery) Process(_ context.Context, _ string, useWebSearch bool, topK int) (domain.QueryResponse, error) {
	m.lastWeb = useWebSearch
	m.lastK = topK
	return m.resp, m.err
}

type mockIngest struct {
	urlResult   domain.IngestResult
	crawlResult domain.CrawlResult
	lastURL     string
	lastPages   int
}

func (m *mockIngest) IngestURL(_ context.Context, url string) (domain.IngestResult, error) {
	m.lastURL = url
	return m.urlResult, nil
}

func (m *mockIngest) IngestSite(_ context.Context, url string, maxPages int, _ []string) (domain.CrawlResult, error) {
	m.lastURL = url
	m.lastPages = maxPages
	return m.crawlResult, nil
}

type mockHealth struct{ report healthuc.Report }

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

type mockHistory struct {
	searches []history.SearchRecord
	docs     []history.DocumentRecord
	lastLim  int
}

func (m *mockHistory) RecentSearches(_ context.Context, limit int) ([]history.SearchRecord, error) {
	m.lastLim = limit
	return m.searches, nil
}

func (m *mockHistory) Documents(_ context.Context, limit int) ([]history.DocumentRecord, error) {
	m.lastLim = limit
	return m.docs, nil
}

func newTestServer(q *mockQuery, ing *mockIngest, h *mockHealth, hist HistoryReader) http.Handler {
	if h == nil {
		h = &mockHealth{report: healthuc.Report{
			Status:        healthuc.Healthy,
			Checks:        map[string]healthuc.CheckResult{"vector_store": healthuc.CheckOK},
			IndexedChunks: -1,
		}}
	}
	return NewServer(q, ing, h, hist, zap.NewNop()).Routes()
}

// --- Tests ---

func TestHandleSearch(t *testing.T) {
	q := &mockQuery{resp: domain.QueryResponse{
		Answer:        "پاسخ",
		Sources:       []string{"https://a"},
		Query:         "سؤال",
		SearchResults: []domain.RetrievalResult{{Text: "متن", Score: 0.9}},
	}}
	handler := newTestServer(q, &mockIngest{}, nil, nil)

	body := `{"query": "سؤال", "use_web_search": true, "top_k": 7}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !q.lastWeb || q.lastK != 7 {
		t.Errorf("params not forwarded: web=%v k=%d", q.lastWeb, q.lastK)
	}

	var resp domain.QueryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer != "پاسخ" || len(resp.SearchResults) != 1 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandleSearch_EmptyQuery(t *testing.T) {
	handler := newTestServer(&mockQuery{}, &mockIngest{}, nil, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{}`)))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleSearch_ConfigErrorIs400(t *testing.T) {
	q := &mockQuery{err: domain.ErrInvalidChunking}
	handler := newTestServer(q, &mockIngest{}, nil, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query":"x"}`)))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleIngestURL(t *testing.T) {
	ing := &mockIngest{urlResult: domain.IngestResult{Success: true, URL: "https://a", ChunksCount: 4}}
	handler := newTestServer(&mockQuery{}, ing, nil, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ingest-url", strings.NewReader(`{"url":"https://a"}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ing.lastURL != "https://a" {
		t.Errorf("url = %q", ing.lastURL)
	}

	var result domain.IngestResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.Success || result.ChunksCount != 4 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestHandleIngestURL_MissingURL(t *testing.T) {
	handler := newTestServer(&mockQuery{}, &mockIngest{}, nil, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ingest-url", strings.NewReader(`{}`)))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleCrawl_DefaultsMaxPages(t *testing.T) {
	ing := &mockIngest{crawlResult: domain.CrawlResult{Success: true, PagesCount: 2}}
	handler := newTestServer(&mockQuery{}, ing, nil, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/crawl", strings.NewReader(`{"url":"https://a"}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ing.lastPages != 10 {
		t.Errorf("maxPages = %d, want default 10", ing.lastPages)
	}
}

func TestHandleHealth_Degraded503(t *testing.T) {
	h := &mockHealth{report: healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{
			"vector_store": healthuc.CheckError,
		},
		IndexedChunks: -1,
	}}
	handler := newTestServer(&mockQuery{}, &mockIngest{}, h, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}

	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "degraded" || resp.IndexedChunks != nil {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandleHealth_IncludesIndexedChunks(t *testing.T) {
	h := &mockHealth{report: healthuc.Report{
		Status:        healthuc.Healthy,
		Checks:        map[string]healthuc.CheckResult{"vector_store": healthuc.CheckOK},
		IndexedChunks: 12,
	}}
	handler := newTestServer(&mockQuery{}, &mockIngest{}, h, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.IndexedChunks == nil || *resp.IndexedChunks != 12 {
		t.Errorf("indexed_chunks = %v", resp.IndexedChunks)
	}
}

func TestHandleRecentSearches(t *testing.T) {
	hist := &mockHistory{searches: []history.SearchRecord{{Query: "سؤال", SearchType: "semantic"}}}
	handler := newTestServer(&mockQuery{}, &mockIngest{}, nil, hist)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history/searches?limit=5", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if hist.lastLim != 5 {
		t.Errorf("limit = %d, want 5", hist.lastLim)
	}

	var records []history.SearchRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 1 || records[0].Query != "سؤال" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestHandleHistory_NilStoreReturnsEmptyList(t *testing.T) {
	handler := newTestServer(&mockQuery{}, &mockIngest{}, nil, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history/documents", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("body = %q, want []", body)
	}
}
