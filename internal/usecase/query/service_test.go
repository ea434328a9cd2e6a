package query

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/porsa-ai/porsa/internal/domain"
	"github.com/porsa-ai/porsa/internal/metrics"
	"github.com/porsa-ai/porsa/internal/text"
)

func TestMain(m *testing.M) {
	metrics.RegisterPipelineMetrics()
	os.Exit(m.Run())
}

// --- Mocks ---

type mockSearcher struct {
	// one result set per call, in order; the last set repeats
	sets       [][]domain.RetrievalResult
	calls      int
	thresholds []float64
}

func (m *mockSearcher) Search(_ context.Context, _ string, _ int, threshold float64) []domain.RetrievalResult {
	m.thresholds = append(m.thresholds, threshold)
	i := m.calls
	if i >= len(m.sets) {
		i = len(m.sets) - 1
	}
	m.calls++
	if i < 0 {
		return nil
	}
	return m.sets[i]
}

type mockWeb struct {
	pages []domain.Page
	calls int
}

func (m *mockWeb) SearchWeb(_ context.Context, _ string, _ int) []domain.Page {
	m.calls++
	return m.pages
}

type mockIngester struct {
	pages []domain.Page
	err   error
}

func (m *mockIngester) IngestPage(_ context.Context, page domain.Page) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.pages = append(m.pages, page)
	return 1, nil
}

type mockCompleter struct {
	answer   string
	err      error
	messages []domain.Message
}

func (m *mockCompleter) Complete(_ context.Context, messages []domain.Message) (string, error) {
	m.messages = messages
	return m.answer, m.err
}

type mockHistory struct {
	queries []string
	types   []string
}

func (m *mockHistory) RecordSearch(_ context.Context, query, _ string, _ []string, searchType string) error {
	m.queries = append(m.queries, query)
	m.types = append(m.types, searchType)
	return nil
}

func testConfig() Config {
	return Config{
		TopK:              5,
		ScoreThreshold:    0.5,
		WebScoreThreshold: 0.3,
		MinLocalResults:   2,
		WebMaxResults:     3,
		ContextChars:      1000,
		EchoResults:       3,
	}
}

func newService(searcher *mockSearcher, web *mockWeb, ing *mockIngester, comp *mockCompleter, h *mockHistory) *Service {
	var hist History
	if h != nil {
		hist = h
	}
	return New(searcher, web, ing, comp, text.NewNormalizer(nil), hist, testConfig(), zap.NewNop())
}

func result(txt, url string, score float64) domain.RetrievalResult {
	return domain.RetrievalResult{Text: txt, Score: score, Metadata: domain.Payload{URL: url}}
}

// --- Tests ---

func TestProcess_NoResults(t *testing.T) {
	searcher := &mockSearcher{}
	web := &mockWeb{}
	comp := &mockCompleter{answer: "should not be used"}
	h := &mockHistory{}
	s := newService(searcher, web, &mockIngester{}, comp, h)

	resp, err := s.Process(context.Background(), "سؤال بی‌جواب", false, 5)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if resp.Answer != notFoundAnswer {
		t.Errorf("answer = %q", resp.Answer)
	}
	if len(resp.Sources) != 0 || len(resp.SearchResults) != 0 {
		t.Errorf("expected empty sources and results: %+v", resp)
	}
	if web.calls != 0 {
		t.Errorf("web search invoked without the flag")
	}
	if comp.messages != nil {
		t.Errorf("generation invoked on the no-results path")
	}
	if len(h.queries) != 1 {
		t.Errorf("history not recorded")
	}
}

func TestProcess_FallbackTriggersOnceAndLowersThreshold(t *testing.T) {
	searcher := &mockSearcher{sets: [][]domain.RetrievalResult{
		{result("کم", "https://a", 0.6)},
		{result("کم", "https://a", 0.6), result("وب", "https://b", 0.35)},
	}}
	web := &mockWeb{pages: []domain.Page{{URL: "https://b", Title: "ب", Content: "محتوا"}}}
	ing := &mockIngester{}
	comp := &mockCompleter{answer: "پاسخ"}
	h := &mockHistory{}
	s := newService(searcher, web, ing, comp, h)

	resp, err := s.Process(context.Background(), "سؤال", true, 5)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if web.calls != 1 {
		t.Fatalf("web search calls = %d, want 1", web.calls)
	}
	if len(ing.pages) != 1 || ing.pages[0].URL != "https://b" {
		t.Errorf("augmented pages not ingested: %v", ing.pages)
	}
	if searcher.calls != 2 {
		t.Fatalf("search calls = %d, want 2", searcher.calls)
	}
	if searcher.thresholds[0] != 0.5 || searcher.thresholds[1] != 0.3 {
		t.Errorf("thresholds = %v, want [0.5 0.3]", searcher.thresholds)
	}
	if len(resp.SearchResults) != 2 {
		t.Errorf("expected re-search results, got %+v", resp.SearchResults)
	}
	if h.types[0] != "hybrid" {
		t.Errorf("search type = %q, want hybrid", h.types[0])
	}
}

func TestProcess_EnoughLocalResultsSkipsFallback(t *testing.T) {
	searcher := &mockSearcher{sets: [][]domain.RetrievalResult{{
		result("۱", "https://a", 0.9),
		result("۲", "https://b", 0.8),
		result("۳", "https://c", 0.7),
	}}}
	web := &mockWeb{pages: []domain.Page{{URL: "https://x"}}}
	s := newService(searcher, web, &mockIngester{}, &mockCompleter{answer: "پاسخ"}, nil)

	if _, err := s.Process(context.Background(), "سؤال", true, 5); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if web.calls != 0 {
		t.Errorf("web search invoked despite enough local results")
	}
	if searcher.calls != 1 {
		t.Errorf("search calls = %d, want 1", searcher.calls)
	}
}

func TestProcess_FallbackWithoutPagesKeepsOriginalResults(t *testing.T) {
	searcher := &mockSearcher{sets: [][]domain.RetrievalResult{
		{result("تنها", "https://a", 0.6)},
	}}
	web := &mockWeb{}
	h := &mockHistory{}
	s := newService(searcher, web, &mockIngester{}, &mockCompleter{answer: "پاسخ"}, h)

	resp, err := s.Process(context.Background(), "سؤال", true, 5)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if web.calls != 1 {
		t.Errorf("web search calls = %d, want 1", web.calls)
	}
	if searcher.calls != 1 {
		t.Errorf("re-search ran despite empty augmentation")
	}
	if len(resp.SearchResults) != 1 {
		t.Errorf("original results lost: %+v", resp.SearchResults)
	}
	if h.types[0] != "semantic" {
		t.Errorf("search type = %q, want semantic", h.types[0])
	}
}

func TestProcess_SourceDedupPreservesOrder(t *testing.T) {
	searcher := &mockSearcher{sets: [][]domain.RetrievalResult{{
		result("۱", "a", 0.9),
		result("۲", "b", 0.8),
		result("۳", "a", 0.7),
		result("۴", "c", 0.6),
	}}}
	s := newService(searcher, &mockWeb{}, &mockIngester{}, &mockCompleter{answer: "پاسخ"}, nil)

	resp, err := s.Process(context.Background(), "سؤال", false, 5)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(resp.Sources) != len(want) {
		t.Fatalf("sources = %v, want %v", resp.Sources, want)
	}
	for i := range want {
		if resp.Sources[i] != want[i] {
			t.Fatalf("sources = %v, want %v", resp.Sources, want)
		}
	}
}

func TestProcess_UnknownSourceMarker(t *testing.T) {
	searcher := &mockSearcher{sets: [][]domain.RetrievalResult{{
		{Text: "بدون منبع", Score: 0.9},
		{Text: "با عنوان", Score: 0.8, Metadata: domain.Payload{Title: "عنوان"}},
	}}}
	s := newService(searcher, &mockWeb{}, &mockIngester{}, &mockCompleter{answer: "پاسخ"}, nil)

	resp, _ := s.Process(context.Background(), "سؤال", false, 5)
	if len(resp.Sources) != 2 || resp.Sources[0] != unknownSource || resp.Sources[1] != "عنوان" {
		t.Errorf("sources = %v", resp.Sources)
	}
}

func TestProcess_PromptAssembly(t *testing.T) {
	long := strings.Repeat("ب", 1200)
	searcher := &mockSearcher{sets: [][]domain.RetrievalResult{{
		result("اول", "https://a", 0.9),
		result(long, "https://b", 0.8),
	}}}
	comp := &mockCompleter{answer: "پاسخ"}
	s := newService(searcher, &mockWeb{}, &mockIngester{}, comp, nil)

	if _, err := s.Process(context.Background(), "  سؤال   من  ", false, 5); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(comp.messages) != 2 || comp.messages[0].Role != domain.RoleSystem {
		t.Fatalf("unexpected messages: %+v", comp.messages)
	}

	user := comp.messages[1].Content
	if !strings.Contains(user, "سؤال: سؤال من") {
		t.Errorf("normalized query missing from prompt:\n%s", user)
	}
	if !strings.Contains(user, "متن 1:\nاول") {
		t.Errorf("first passage missing:\n%s", user)
	}
	if strings.Contains(user, long) {
		t.Error("long passage not truncated")
	}
	if !strings.Contains(user, strings.Repeat("ب", 1000)) {
		t.Error("truncated passage shorter than 1000 characters")
	}
	if !strings.Contains(user, "- https://a") || !strings.Contains(user, "- https://b") {
		t.Errorf("sources missing from prompt:\n%s", user)
	}
}

func TestProcess_GenerationFailureDegrades(t *testing.T) {
	searcher := &mockSearcher{sets: [][]domain.RetrievalResult{{
		result("متن", "https://a", 0.9),
	}}}
	comp := &mockCompleter{err: errors.New("provider down")}
	s := newService(searcher, &mockWeb{}, &mockIngester{}, comp, nil)

	resp, err := s.Process(context.Background(), "سؤال", false, 5)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if resp.Answer != degradedAnswer {
		t.Errorf("answer = %q", resp.Answer)
	}
	if len(resp.SearchResults) != 1 || len(resp.Sources) != 1 {
		t.Errorf("retrieved results lost on degrade: %+v", resp)
	}
}

func TestProcess_EchoesTopThree(t *testing.T) {
	searcher := &mockSearcher{sets: [][]domain.RetrievalResult{{
		result("۱", "a", 0.9),
		result("۲", "b", 0.8),
		result("۳", "c", 0.7),
		result("۴", "d", 0.6),
		result("۵", "e", 0.5),
	}}}
	s := newService(searcher, &mockWeb{}, &mockIngester{}, &mockCompleter{answer: "پاسخ"}, nil)

	resp, _ := s.Process(context.Background(), "سؤال", false, 5)
	if len(resp.SearchResults) != 3 {
		t.Fatalf("echoed %d results, want 3", len(resp.SearchResults))
	}
	if resp.SearchResults[0].Text != "۱" || resp.SearchResults[2].Text != "۳" {
		t.Errorf("unexpected echo: %+v", resp.SearchResults)
	}
	// Sources still cover all results, not just the echoed ones.
	if len(resp.Sources) != 5 {
		t.Errorf("sources = %v", resp.Sources)
	}
}

func TestProcess_InvalidChunkingFailsFast(t *testing.T) {
	searcher := &mockSearcher{sets: [][]domain.RetrievalResult{
		{},
	}}
	web := &mockWeb{pages: []domain.Page{{URL: "https://b", Content: "x"}}}
	ing := &mockIngester{err: domain.ErrInvalidChunking}
	s := newService(searcher, web, ing, &mockCompleter{}, nil)

	_, err := s.Process(context.Background(), "سؤال", true, 5)
	if !errors.Is(err, domain.ErrInvalidChunking) {
		t.Errorf("expected ErrInvalidChunking, got %v", err)
	}
}
