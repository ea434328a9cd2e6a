// Package query orchestrates the end-to-end retrieval pipeline: normalize
// the question, search the local index, optionally augment from the web
// and re-search, then assemble the context and generate the answer.
package query

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/porsa-ai/porsa/internal/domain"
	"github.com/porsa-ai/porsa/internal/metrics"
)

// Fixed user-facing answers.
const (
	notFoundAnswer = "متأسفانه اطلاعاتی برای پاسخ به این سؤال یافت نشد. لطفاً سؤال دیگری بپرسید یا ابتدا URLهای مرتبط را اضافه کنید."
	degradedAnswer = "متأسفانه در تولید پاسخ خطایی رخ داد. لطفاً بعداً دوباره تلاش کنید."
	unknownSource  = "منبع ناشناس"
)

// systemPrompt is the fixed generation persona: answer only from the
// supplied context, admit uncertainty, reference sources, formal Persian.
const systemPrompt = `شما یک دستیار هوشمند فارسی‌زبان هستید که وظیفه دارید به سؤالات کاربران بر اساس اطلاعات موجود پاسخ دهید.

قوانین مهم:
1. فقط از اطلاعات موجود در متن زمینه استفاده کنید
2. اگر پاسخی در متن زمینه نیست، صادقانه بگویید که نمی‌دانید
3. پاسخ‌های کامل، دقیق و قابل فهم ارائه دهید
4. از زبان فارسی رسمی و روان استفاده کنید
5. در صورت امکان، به منابع اشاره کنید

ساختار پاسخ:
- پاسخ اصلی: یک پاراگراف کامل و جامع
- توضیحات تکمیلی: جزئیات بیشتر در صورت نیاز
- منابع: لیست منابع استفاده‌شده`

// Config holds the retrieval policy knobs. The two-tier thresholds are
// deliberate: freshly augmented content is less curated, so the re-search
// after web augmentation is more permissive.
type Config struct {
	TopK              int
	ScoreThreshold    float64
	WebScoreThreshold float64
	MinLocalResults   int
	WebMaxResults     int
	ContextChars      int
	EchoResults       int
}

// Service is the retrieval orchestrator.
type Service struct {
	searcher  Searcher
	web       WebSearcher
	ingester  PageIngester
	completer Completer
	normalize Normalizer
	history   History
	cfg       Config
	logger    *zap.Logger
}

// New creates a query service. history may be nil.
func New(
	searcher Searcher, web WebSearcher, ingester PageIngester,
	completer Completer, normalize Normalizer, history History,
	cfg Config, logger *zap.Logger,
) *Service {
	return &Service{
		searcher:  searcher,
		web:       web,
		ingester:  ingester,
		completer: completer,
		normalize: normalize,
		history:   history,
		cfg:       cfg,
		logger:    logger,
	}
}

// Process answers one question. When the local index yields fewer than
// MinLocalResults matches and useWebSearch is set, it augments the index
// from a web search and re-searches once at the lowered threshold. A
// generation failure degrades to a fixed answer with the retrieved results
// intact; only a chunking misconfiguration is returned as an error.
func (s *Service) Process(ctx context.Context, rawQuery string, useWebSearch bool, topK int) (domain.QueryResponse, error) {
	if topK <= 0 {
		topK = s.cfg.TopK
	}

	query := s.normalize.Normalize(rawQuery)
	s.logger.Info("processing query",
		zap.String("query", query), zap.Bool("web_search", useWebSearch), zap.Int("top_k", topK))

	results := s.searcher.Search(ctx, query, topK, s.cfg.ScoreThreshold)
	searchType := "semantic"

	if len(results) < s.cfg.MinLocalResults && useWebSearch {
		augmented, err := s.augmentFromWeb(ctx, query)
		if err != nil {
			return domain.QueryResponse{}, err
		}
		if augmented {
			results = s.searcher.Search(ctx, query, topK, s.cfg.WebScoreThreshold)
			searchType = "hybrid"
		}
	}

	if len(results) == 0 {
		metrics.QueriesTotal.WithLabelValues("no_results").Inc()
		s.recordSearch(ctx, rawQuery, notFoundAnswer, nil, searchType)
		return domain.QueryResponse{
			Answer:        notFoundAnswer,
			Sources:       []string{},
			Query:         rawQuery,
			SearchResults: []domain.RetrievalResult{},
		}, nil
	}

	contextText := buildContext(results, s.cfg.ContextChars)
	sources := dedupSources(results)

	answer, err := s.completer.Complete(ctx, []domain.Message{
		{Role: domain.RoleSystem, Content: systemPrompt},
		{Role: domain.RoleUser, Content: buildUserPrompt(query, contextText, sources)},
	})
	if err != nil {
		s.logger.Warn("generation failed, degrading", zap.Error(err))
		metrics.QueriesTotal.WithLabelValues("degraded").Inc()
		answer = degradedAnswer
	} else {
		metrics.QueriesTotal.WithLabelValues("answered").Inc()
	}

	echo := results
	if s.cfg.EchoResults > 0 && len(echo) > s.cfg.EchoResults {
		echo = echo[:s.cfg.EchoResults]
	}

	s.recordSearch(ctx, rawQuery, answer, sources, searchType)

	return domain.QueryResponse{
		Answer:        answer,
		Sources:       sources,
		Query:         rawQuery,
		SearchResults: echo,
	}, nil
}

// augmentFromWeb searches the web and funnels every returned page through
// the ingestion path. Reports whether any page made it into the index.
func (s *Service) augmentFromWeb(ctx context.Context, query string) (bool, error) {
	metrics.WebFallbacksTotal.Inc()

	pages := s.web.SearchWeb(ctx, query, s.cfg.WebMaxResults)
	if len(pages) == 0 {
		s.logger.Info("web augmentation yielded no pages", zap.String("query", query))
		return false, nil
	}

	for _, page := range pages {
		if _, err := s.ingester.IngestPage(ctx, page); err != nil {
			return false, fmt.Errorf("ingest augmented page %s: %w", page.URL, err)
		}
	}
	s.logger.Info("augmented index from web", zap.Int("pages", len(pages)))
	return true, nil
}

func (s *Service) recordSearch(ctx context.Context, query, answer string, sources []string, searchType string) {
	if s.history == nil {
		return
	}
	if err := s.history.RecordSearch(ctx, query, answer, sources, searchType); err != nil {
		s.logger.Warn("history record failed", zap.Error(err))
	}
}

// buildContext concatenates the ranked results into numbered passages,
// each truncated to maxChars characters.
func buildContext(results []domain.RetrievalResult, maxChars int) string {
	passages := make([]string, len(results))
	for i, r := range results {
		passages[i] = fmt.Sprintf("متن %d:\n%s", i+1, truncate(r.Text, maxChars))
	}
	return strings.Join(passages, "\n\n")
}

// truncate cuts s to at most max characters, never splitting a rune.
func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// dedupSources builds the source list: url when present, else title, else
// the unknown-source marker. First-seen order, each source exactly once.
func dedupSources(results []domain.RetrievalResult) []string {
	seen := make(map[string]struct{}, len(results))
	sources := make([]string, 0, len(results))
	for _, r := range results {
		source := r.Metadata.Source()
		if source == "" {
			source = unknownSource
		}
		if _, ok := seen[source]; ok {
			continue
		}
		seen[source] = struct{}{}
		sources = append(sources, source)
	}
	return sources
}

func buildUserPrompt(query, contextText string, sources []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "سؤال: %s\n\n", query)
	fmt.Fprintf(&b, "متن زمینه:\n%s\n\n", contextText)
	b.WriteString("منابع موجود:\n")
	for _, source := range sources {
		fmt.Fprintf(&b, "- %s\n", source)
	}
	b.WriteString("\nلطفاً به سؤال پاسخ دهید.")
	return b.String()
}
