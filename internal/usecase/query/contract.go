package query

import (
	"context"

	"github.com/porsa-ai/porsa/internal/domain"
)

// Searcher runs a similarity search over the local index. Failures are
// absorbed by the index; empty means no evidence.
type Searcher interface {
	Search(ctx context.Context, query string, topK int, threshold float64) []domain.RetrievalResult
}

// WebSearcher acquires pages from the web. Never errors; empty on failure.
type WebSearcher interface {
	SearchWeb(ctx context.Context, query string, maxResults int) []domain.Page
}

// PageIngester indexes a fetched page so a re-search can surface it.
type PageIngester interface {
	IngestPage(ctx context.Context, page domain.Page) (int, error)
}

// Completer generates the final answer from the assembled context.
type Completer interface {
	Complete(ctx context.Context, messages []domain.Message) (string, error)
}

// Normalizer canonicalizes the query text.
type Normalizer interface {
	Normalize(s string) string
}

// History records answered queries for auditing. Advisory.
type History interface {
	RecordSearch(ctx context.Context, query, response string, sources []string, searchType string) error
}
