package augment

import (
	"context"

	"github.com/porsa-ai/porsa/internal/domain"
)

// Fetcher is the external scrape/crawl/search capability.
type Fetcher interface {
	Scrape(ctx context.Context, url string) (domain.Page, error)
	Crawl(ctx context.Context, url string, maxPages int, includePaths []string) ([]domain.Page, error)
	SearchWeb(ctx context.Context, query string, maxResults int) ([]domain.Page, error)
}
