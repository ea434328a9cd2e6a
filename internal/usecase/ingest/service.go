// Package ingest runs the ingestion pipeline: fetch a page, normalize and
// chunk its content, and upsert the chunks into the vector index.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/porsa-ai/porsa/internal/domain"
	"github.com/porsa-ai/porsa/internal/text"
)

// User-facing Persian status messages.
const (
	msgFetchFailed = "خطا در دریافت محتوای URL"
	msgIngestedFmt = "%d تکه از محتوا با موفقیت اضافه شد"
	msgNoPages     = "هیچ صفحه‌ای از این آدرس دریافت نشد"
	msgCrawledFmt  = "%d صفحه و %d تکه با موفقیت اضافه شد"
)

// Config bounds the chunk windows.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
}

// Service orchestrates ingestion. A fetch failure is a reported outcome,
// not an error; only a chunking misconfiguration terminates the call.
type Service struct {
	fetcher   Fetcher
	indexer   Indexer
	normalize Normalizer
	history   History
	cfg       Config
	logger    *zap.Logger
}

// New creates an ingestion service. history may be nil.
func New(fetcher Fetcher, indexer Indexer, normalize Normalizer, history History, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		fetcher:   fetcher,
		indexer:   indexer,
		normalize: normalize,
		history:   history,
		cfg:       cfg,
		logger:    logger,
	}
}

// IngestURL fetches one page and indexes its content. A failed fetch
// yields {success:false} and leaves the index untouched.
func (s *Service) IngestURL(ctx context.Context, url string) (domain.IngestResult, error) {
	page, err := s.fetcher.Scrape(ctx, url)
	if err != nil {
		s.logger.Warn("ingest fetch failed", zap.String("url", url), zap.Error(err))
		return domain.IngestResult{Success: false, Message: msgFetchFailed}, nil
	}

	count, err := s.indexPage(ctx, page)
	if err != nil {
		return domain.IngestResult{}, err
	}

	return domain.IngestResult{
		Success:     true,
		Message:     fmt.Sprintf(msgIngestedFmt, count),
		URL:         url,
		Title:       page.Title,
		ChunksCount: count,
	}, nil
}

// IngestPage indexes an already-fetched page. Used by the retrieval
// fallback for pages acquired through web search.
func (s *Service) IngestPage(ctx context.Context, page domain.Page) (int, error) {
	return s.indexPage(ctx, page)
}

// IngestSite crawls up to maxPages pages under url and indexes each one.
// includePaths restricts the crawl to matching URL paths.
func (s *Service) IngestSite(ctx context.Context, url string, maxPages int, includePaths []string) (domain.CrawlResult, error) {
	pages := s.fetcher.Crawl(ctx, url, maxPages, includePaths)
	if len(pages) == 0 {
		return domain.CrawlResult{Success: false, Message: msgNoPages, URL: url}, nil
	}

	totalChunks := 0
	for _, page := range pages {
		count, err := s.indexPage(ctx, page)
		if err != nil {
			return domain.CrawlResult{}, err
		}
		totalChunks += count
	}

	return domain.CrawlResult{
		Success:     true,
		Message:     fmt.Sprintf(msgCrawledFmt, len(pages), totalChunks),
		URL:         url,
		PagesCount:  len(pages),
		ChunksCount: totalChunks,
	}, nil
}

// indexPage normalizes, chunks, and upserts one page, then records it in
// the history log. Returns the number of chunks produced.
func (s *Service) indexPage(ctx context.Context, page domain.Page) (int, error) {
	normalized := s.normalize.Normalize(page.Content)

	pieces, err := text.Chunk(normalized, s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	if err != nil {
		return 0, fmt.Errorf("chunk %s: %w", page.URL, err)
	}

	chunks := make([]domain.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = domain.Chunk{
			Text:  piece,
			Index: i,
			URL:   page.URL,
			Title: page.Title,
		}
	}

	ids := s.indexer.Upsert(ctx, chunks)
	if len(ids) != len(chunks) {
		s.logger.Warn("index absorbed an upsert failure",
			zap.String("url", page.URL),
			zap.Int("chunks", len(chunks)), zap.Int("indexed", len(ids)))
	}

	if s.history != nil {
		if err := s.history.RecordDocument(ctx, page.URL, page.Title, len(chunks)); err != nil {
			s.logger.Warn("history record failed", zap.String("url", page.URL), zap.Error(err))
		}
	}

	return len(chunks), nil
}
