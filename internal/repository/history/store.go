// Package history is a sqlite audit log of ingested documents and answered
// queries. It is advisory: pipeline failures here are logged by callers, not
// propagated.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // sqlite driver
)

// Store persists ingestion and search history in sqlite.
type Store struct {
	db *sqlx.DB
}

// DocumentRecord is one ingested document.
type DocumentRecord struct {
	ID        int64     `db:"id" json:"id"`
	URL       string    `db:"url" json:"url"`
	Title     string    `db:"title" json:"title"`
	Chunks    int       `db:"chunks" json:"chunks"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SearchRecord is one answered query.
type SearchRecord struct {
	ID         int64     `db:"id" json:"id"`
	Query      string    `db:"query" json:"query"`
	Response   string    `db:"response" json:"response"`
	SourcesRaw string    `db:"sources" json:"-"`
	Sources    []string  `db:"-" json:"sources"`
	SearchType string    `db:"search_type" json:"search_type"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// New opens (or creates) the sqlite database at path.
func New(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite %s: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL DEFAULT '',
			chunks INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS search_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			query TEXT NOT NULL,
			response TEXT NOT NULL,
			sources TEXT NOT NULL DEFAULT '[]',
			search_type TEXT NOT NULL DEFAULT 'semantic',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_search_history_created ON search_history(created_at)`,
	}

	for _, stmt := range tables {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec schema statement: %w", err)
		}
	}
	return nil
}

// RecordDocument upserts a document row keyed by URL.
func (s *Store) RecordDocument(ctx context.Context, url, title string, chunks int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (url, title, chunks)
		VALUES (?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			title = excluded.title,
			chunks = excluded.chunks,
			updated_at = CURRENT_TIMESTAMP`,
		url, title, chunks,
	)
	if err != nil {
		return fmt.Errorf("record document %s: %w", url, err)
	}
	return nil
}

// RecordSearch appends one query/answer pair. searchType is "semantic" for
// purely local answers and "hybrid" when web augmentation fired.
func (s *Store) RecordSearch(ctx context.Context, query, response string, sources []string, searchType string) error {
	raw, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("marshal sources: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO search_history (query, response, sources, search_type)
		VALUES (?, ?, ?, ?)`,
		query, response, string(raw), searchType,
	)
	if err != nil {
		return fmt.Errorf("record search: %w", err)
	}
	return nil
}

// RecentSearches returns the newest records first.
func (s *Store) RecentSearches(ctx context.Context, limit int) ([]SearchRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	var records []SearchRecord
	err := s.db.SelectContext(ctx, &records, `
		SELECT id, query, response, sources, search_type, created_at
		FROM search_history
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select search history: %w", err)
	}

	for i := range records {
		if records[i].SourcesRaw != "" {
			_ = json.Unmarshal([]byte(records[i].SourcesRaw), &records[i].Sources)
		}
	}
	return records, nil
}

// Documents returns ingested documents, newest first.
func (s *Store) Documents(ctx context.Context, limit int) ([]DocumentRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	var records []DocumentRecord
	err := s.db.SelectContext(ctx, &records, `
		SELECT id, url, title, chunks, created_at, updated_at
		FROM documents
		ORDER BY updated_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select documents: %w", err)
	}
	return records, nil
}
