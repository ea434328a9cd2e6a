// Package firecrawl talks to a Firecrawl-compatible scraping API:
// single-page scrape, async crawl with polling, and web search.
package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/porsa-ai/porsa/internal/domain"
	"github.com/porsa-ai/porsa/internal/metrics"
)

// Config holds the Firecrawl API settings.
type Config struct {
	APIKey        string
	BaseURL       string
	ScrapeTimeout time.Duration
	CrawlPoll     time.Duration
	CrawlTimeout  time.Duration
	Logger        *zap.Logger
}

// Client is a Firecrawl HTTP client.
type Client struct {
	apiKey    string
	baseURL   string
	http      *http.Client
	crawlPoll time.Duration
	crawlWait time.Duration
	logger    *zap.Logger
}

// New creates a Firecrawl client.
func New(cfg Config) *Client {
	scrapeTimeout := cfg.ScrapeTimeout
	if scrapeTimeout <= 0 {
		scrapeTimeout = 30 * time.Second
	}
	poll := cfg.CrawlPoll
	if poll <= 0 {
		poll = 2 * time.Second
	}
	wait := cfg.CrawlTimeout
	if wait <= 0 {
		wait = 60 * time.Second
	}

	return &Client{
		apiKey:    cfg.APIKey,
		baseURL:   cfg.BaseURL,
		http:      &http.Client{Timeout: scrapeTimeout},
		crawlPoll: poll,
		crawlWait: wait,
		logger:    cfg.Logger,
	}
}

type scrapeRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
}

type scrapeResponse struct {
	Success bool       `json:"success"`
	Data    scrapeData `json:"data"`
}

type scrapeData struct {
	Markdown string            `json:"markdown"`
	HTML     string            `json:"html"`
	Metadata map[string]string `json:"metadata"`
}

// Scrape fetches one page and returns its markdown content.
func (c *Client) Scrape(ctx context.Context, url string) (domain.Page, error) {
	if c.apiKey == "" {
		return domain.Page{}, fmt.Errorf("firecrawl api key not configured: %w", domain.ErrCapabilityUnavailable)
	}

	req := scrapeRequest{
		URL:             url,
		Formats:         []string{"markdown", "html"},
		OnlyMainContent: true,
	}

	var resp scrapeResponse
	if err := c.post(ctx, "/scrape", req, &resp); err != nil {
		metrics.WebFetchRequestsTotal.WithLabelValues("scrape", "error").Inc()
		return domain.Page{}, fmt.Errorf("scrape %s: %w", url, err)
	}
	metrics.WebFetchRequestsTotal.WithLabelValues("scrape", "success").Inc()

	return domain.Page{
		URL:      url,
		Title:    resp.Data.Metadata["title"],
		Content:  resp.Data.Markdown,
		HTML:     resp.Data.HTML,
		Metadata: resp.Data.Metadata,
	}, nil
}

type crawlRequest struct {
	URL           string        `json:"url"`
	Limit         int           `json:"limit"`
	IncludePaths  []string      `json:"includePaths,omitempty"`
	ScrapeOptions scrapeOptions `json:"scrapeOptions"`
}

type scrapeOptions struct {
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
}

type crawlSubmitResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

type crawlStatusResponse struct {
	Status string      `json:"status"` // "scraping", "completed", "failed"
	Data   []crawlPage `json:"data"`
}

type crawlPage struct {
	Markdown string            `json:"markdown"`
	Metadata map[string]string `json:"metadata"`
}

// Crawl submits an async crawl and polls until completion or the crawl
// budget runs out. Pages collected so far are returned even on timeout.
func (c *Client) Crawl(ctx context.Context, url string, maxPages int, includePaths []string) ([]domain.Page, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("firecrawl api key not configured: %w", domain.ErrCapabilityUnavailable)
	}

	req := crawlRequest{
		URL:          url,
		Limit:        maxPages,
		IncludePaths: includePaths,
		ScrapeOptions: scrapeOptions{
			Formats:         []string{"markdown"},
			OnlyMainContent: true,
		},
	}

	var submitted crawlSubmitResponse
	if err := c.post(ctx, "/crawl", req, &submitted); err != nil {
		metrics.WebFetchRequestsTotal.WithLabelValues("crawl", "error").Inc()
		return nil, fmt.Errorf("submit crawl %s: %w", url, err)
	}
	if submitted.ID == "" {
		metrics.WebFetchRequestsTotal.WithLabelValues("crawl", "error").Inc()
		return nil, fmt.Errorf("crawl %s: empty crawl id: %w", url, domain.ErrFetchFailed)
	}

	pages, err := c.pollCrawl(ctx, submitted.ID)
	if err != nil {
		metrics.WebFetchRequestsTotal.WithLabelValues("crawl", "error").Inc()
		return pages, err
	}
	metrics.WebFetchRequestsTotal.WithLabelValues("crawl", "success").Inc()
	return pages, nil
}

func (c *Client) pollCrawl(ctx context.Context, crawlID string) ([]domain.Page, error) {
	ctx, cancel := context.WithTimeout(ctx, c.crawlWait)
	defer cancel()

	ticker := time.NewTicker(c.crawlPoll)
	defer ticker.Stop()

	var last []domain.Page
	for {
		var status crawlStatusResponse
		if err := c.get(ctx, "/crawl/"+crawlID, &status); err != nil {
			return last, fmt.Errorf("poll crawl %s: %w", crawlID, err)
		}

		last = crawlPagesToDomain(status.Data)

		switch status.Status {
		case "completed":
			return last, nil
		case "failed":
			return last, fmt.Errorf("crawl %s failed: %w", crawlID, domain.ErrFetchFailed)
		}

		select {
		case <-ctx.Done():
			return last, fmt.Errorf("crawl %s: %w", crawlID, ctx.Err())
		case <-ticker.C:
		}
	}
}

func crawlPagesToDomain(data []crawlPage) []domain.Page {
	pages := make([]domain.Page, 0, len(data))
	for _, p := range data {
		pages = append(pages, domain.Page{
			URL:      p.Metadata["sourceURL"],
			Title:    p.Metadata["title"],
			Content:  p.Markdown,
			Metadata: p.Metadata,
		})
	}
	return pages
}

type searchRequest struct {
	Query         string        `json:"query"`
	Limit         int           `json:"limit"`
	ScrapeOptions scrapeOptions `json:"scrapeOptions"`
}

type searchResponse struct {
	Success bool         `json:"success"`
	Data    []searchPage `json:"data"`
}

type searchPage struct {
	URL      string            `json:"url"`
	Title    string            `json:"title"`
	Markdown string            `json:"markdown"`
	Metadata map[string]string `json:"metadata"`
}

// SearchWeb runs a web search and returns scraped pages for the top hits.
func (c *Client) SearchWeb(ctx context.Context, query string, maxResults int) ([]domain.Page, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("firecrawl api key not configured: %w", domain.ErrCapabilityUnavailable)
	}

	req := searchRequest{
		Query: query,
		Limit: maxResults,
		ScrapeOptions: scrapeOptions{
			Formats:         []string{"markdown"},
			OnlyMainContent: true,
		},
	}

	var resp searchResponse
	if err := c.post(ctx, "/search", req, &resp); err != nil {
		metrics.WebFetchRequestsTotal.WithLabelValues("search", "error").Inc()
		return nil, fmt.Errorf("search web: %w", err)
	}
	metrics.WebFetchRequestsTotal.WithLabelValues("search", "success").Inc()

	pages := make([]domain.Page, 0, len(resp.Data))
	for _, p := range resp.Data {
		if p.Markdown == "" {
			continue
		}
		url := p.URL
		if url == "" {
			url = p.Metadata["sourceURL"]
		}
		pages = append(pages, domain.Page{
			URL:      url,
			Title:    p.Title,
			Content:  p.Markdown,
			Metadata: p.Metadata,
		})
	}
	return pages, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	return c.send(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: status %d: %w", req.Method, req.URL.Path, resp.StatusCode, domain.ErrFetchFailed)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
