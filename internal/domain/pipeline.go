package domain

// IngestResult is the outcome of ingesting one URL.
type IngestResult struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	URL         string `json:"url,omitempty"`
	Title       string `json:"title,omitempty"`
	ChunksCount int    `json:"chunks_count,omitempty"`
}

// CrawlResult is the outcome of ingesting a whole site.
type CrawlResult struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	URL         string `json:"url"`
	PagesCount  int    `json:"pages_count"`
	ChunksCount int    `json:"chunks_count"`
}

// QueryResponse is the answer envelope returned to callers. SearchResults
// echoes the top ranked matches for caller-side inspection even though only
// the assembled context was shown to the generation provider.
type QueryResponse struct {
	Answer        string            `json:"answer"`
	Sources       []string          `json:"sources"`
	Query         string            `json:"query"`
	SearchResults []RetrievalResult `json:"search_results"`
}
