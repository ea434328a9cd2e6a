// Package chi exposes the retrieval pipeline over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/porsa-ai/porsa/internal/domain"
	"github.com/porsa-ai/porsa/internal/repository/history"
	healthuc "github.com/porsa-ai/porsa/internal/usecase/health"
)

const defaultHistoryLimit = 20

// QueryProcessor answers questions.
type QueryProcessor interface {
	Process(ctx context.Context, query string, useWebSearch bool, topK int) (domain.QueryResponse, error)
}

// Ingester adds documents to the index.
type Ingester interface {
	IngestURL(ctx context.Context, url string) (domain.IngestResult, error)
	IngestSite(ctx context.Context, url string, maxPages int, includePaths []string) (domain.CrawlResult, error)
}

// HealthService reports component health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// HistoryReader lists recent activity. May be nil-backed; the routes then
// return empty lists.
type HistoryReader interface {
	RecentSearches(ctx context.Context, limit int) ([]history.SearchRecord, error)
	Documents(ctx context.Context, limit int) ([]history.DocumentRecord, error)
}

// Server holds the HTTP handlers.
type Server struct {
	query   QueryProcessor
	ingest  Ingester
	health  HealthService
	history HistoryReader
	logger  *zap.Logger
}

// NewServer creates an HTTP API server. history may be nil.
func NewServer(query QueryProcessor, ingest Ingester, health HealthService, hist HistoryReader, logger *zap.Logger) *Server {
	return &Server{query: query, ingest: ingest, health: health, history: hist, logger: logger}
}

// Routes mounts all API routes on a fresh router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/search", s.handleSearch)
		r.Post("/ingest-url", s.handleIngestURL)
		r.Post("/crawl", s.handleCrawl)
		r.Get("/history/searches", s.handleRecentSearches)
		r.Get("/history/documents", s.handleDocuments)
		r.Get("/health", s.handleHealth)
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	return r
}

type searchRequest struct {
	Query        string `json:"query"`
	UseWebSearch bool   `json:"use_web_search"`
	TopK         int    `json:"top_k"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "query is required")
		return
	}

	resp, err := s.query.Process(r.Context(), req.Query, req.UseWebSearch, req.TopK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type ingestURLRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleIngestURL(w http.ResponseWriter, r *http.Request) {
	var req ingestURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "url is required")
		return
	}

	result, err := s.ingest.IngestURL(r.Context(), req.URL)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type crawlRequest struct {
	URL          string   `json:"url"`
	MaxPages     int      `json:"max_pages"`
	IncludePaths []string `json:"include_paths"`
}

func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	var req crawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "url is required")
		return
	}
	if req.MaxPages <= 0 {
		req.MaxPages = 10
	}

	result, err := s.ingest.IngestSite(r.Context(), req.URL, req.MaxPages, req.IncludePaths)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRecentSearches(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, []history.SearchRecord{})
		return
	}

	records, err := s.history.RecentSearches(r.Context(), queryLimit(r))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if records == nil {
		records = []history.SearchRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, []history.DocumentRecord{})
		return
	}

	records, err := s.history.Documents(r.Context(), queryLimit(r))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if records == nil {
		records = []history.DocumentRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

type healthResponse struct {
	Status        string            `json:"status"`
	Checks        map[string]string `json:"checks"`
	IndexedChunks *int              `json:"indexed_chunks,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	resp := healthResponse{Status: string(report.Status), Checks: checks}
	if report.IndexedChunks >= 0 {
		n := report.IndexedChunks
		resp.IndexedChunks = &n
	}

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrInvalidChunking) {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}

func queryLimit(r *http.Request) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return defaultHistoryLimit
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
