package ingest

import (
	"context"

	"github.com/porsa-ai/porsa/internal/domain"
)

// Fetcher acquires pages: a single scrape for IngestURL, a bounded crawl
// for IngestSite.
type Fetcher interface {
	Scrape(ctx context.Context, url string) (domain.Page, error)
	Crawl(ctx context.Context, url string, maxPages int, includePaths []string) []domain.Page
}

// Indexer embeds chunks and stores them. Returns content-addressed ids in
// input order; empty means the index absorbed a capability failure.
type Indexer interface {
	Upsert(ctx context.Context, chunks []domain.Chunk) []string
}

// Normalizer canonicalizes free text before chunking.
type Normalizer interface {
	Normalize(s string) string
}

// History records ingested documents for auditing. Advisory: failures are
// logged, never propagated.
type History interface {
	RecordDocument(ctx context.Context, url, title string, chunks int) error
}
