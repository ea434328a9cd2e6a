// Package augment acquires additional source documents from the web on
// demand. It is only invoked from the retrieval fallback branch and from
// explicit ingestion requests.
package augment

import (
	"context"
	"fmt"
	"net/url"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/porsa-ai/porsa/internal/domain"
)

// Service wraps the fetch capability with the pipeline's failure policy:
// SearchWeb and Crawl never raise, they degrade to whatever pages could be
// collected. Scrape keeps its error because ingestion reports fetch
// failures to the caller.
type Service struct {
	fetcher Fetcher
	logger  *zap.Logger
}

// New creates an augmentation service.
func New(fetcher Fetcher, logger *zap.Logger) *Service {
	return &Service{fetcher: fetcher, logger: logger}
}

// Scrape fetches a single page.
func (s *Service) Scrape(ctx context.Context, pageURL string) (domain.Page, error) {
	page, err := s.fetcher.Scrape(ctx, pageURL)
	if err != nil {
		return domain.Page{}, fmt.Errorf("scrape %s: %w", pageURL, err)
	}
	return page, nil
}

// SearchWeb looks up pages for a query. Any failure (missing credentials,
// network error, non-success status) yields an empty slice, never an error.
func (s *Service) SearchWeb(ctx context.Context, query string, maxResults int) []domain.Page {
	pages, err := s.fetcher.SearchWeb(ctx, query, maxResults)
	if err != nil {
		s.logger.Warn("web search failed", zap.String("query", query), zap.Error(err))
		return nil
	}
	return pages
}

// Crawl fetches up to maxPages pages under siteURL. includePaths holds
// glob patterns matched against each page's URL path ("/docs/**"); pages
// outside the patterns are dropped even when the upstream crawler returns
// them. Partial results are kept on failure or timeout.
func (s *Service) Crawl(ctx context.Context, siteURL string, maxPages int, includePaths []string) []domain.Page {
	pages, err := s.fetcher.Crawl(ctx, siteURL, maxPages, includePaths)
	if err != nil {
		s.logger.Warn("crawl degraded",
			zap.String("url", siteURL), zap.Int("pages", len(pages)), zap.Error(err))
	}
	return filterByPaths(pages, includePaths, s.logger)
}

func filterByPaths(pages []domain.Page, patterns []string, logger *zap.Logger) []domain.Page {
	if len(patterns) == 0 || len(pages) == 0 {
		return pages
	}

	kept := pages[:0]
	for _, page := range pages {
		if matchesAny(page.URL, patterns) {
			kept = append(kept, page)
		} else {
			logger.Debug("page outside include paths", zap.String("url", page.URL))
		}
	}
	return kept
}

func matchesAny(pageURL string, patterns []string) bool {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}
