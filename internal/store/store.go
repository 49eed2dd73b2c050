// Package store owns all database access. The backing store is a single
// embedded SQLite file, so the pool is capped at one connection: every
// write in a run is serialized through it, which is the concurrency
// guarantee the rest of the pipeline relies on.
package store

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store handles all database operations.
type Store struct {
	db *sql.DB
}

// New creates a new Store with SQLite backend.
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Single writer against the embedded file.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// NewMemory creates an in-memory store for tests.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS meetings (
		id TEXT PRIMARY KEY,
		event_id INTEGER NOT NULL,
		date DATETIME NOT NULL,
		title TEXT NOT NULL,
		type TEXT,
		location TEXT,
		status TEXT NOT NULL,
		agenda_url TEXT,
		packet_url TEXT,
		minutes_url TEXT,
		details TEXT,
		summary TEXT,
		scraped_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS agenda_items (
		meeting_id TEXT NOT NULL REFERENCES meetings(id),
		order_num INTEGER NOT NULL,
		title TEXT NOT NULL,
		item_type TEXT NOT NULL,
		reference_number TEXT,
		outcome TEXT,
		PRIMARY KEY (meeting_id, order_num)
	);

	CREATE TABLE IF NOT EXISTS ordinances (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		number TEXT NOT NULL UNIQUE,
		title TEXT,
		status TEXT NOT NULL,
		adopted_date DATETIME,
		source_url TEXT,
		summary TEXT,
		provisional BOOLEAN NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS ordinance_meeting_links (
		ordinance_id INTEGER NOT NULL REFERENCES ordinances(id),
		meeting_id TEXT NOT NULL REFERENCES meetings(id),
		action TEXT NOT NULL,
		PRIMARY KEY (ordinance_id, meeting_id, action)
	);

	CREATE TABLE IF NOT EXISTS resolutions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		number TEXT NOT NULL UNIQUE,
		title TEXT,
		status TEXT NOT NULL,
		introduced_date DATETIME,
		adopted_date DATETIME,
		meeting_id TEXT,
		summary TEXT
	);

	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		period TEXT NOT NULL,
		url TEXT NOT NULL,
		title TEXT,
		doc_date DATETIME,
		date_source TEXT,
		summary TEXT,
		fetched_at DATETIME NOT NULL,
		UNIQUE (kind, period)
	);

	CREATE TABLE IF NOT EXISTS scrape_failures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		source_id TEXT NOT NULL,
		reason TEXT NOT NULL,
		occurred_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_meetings_date ON meetings(date);
	CREATE INDEX IF NOT EXISTS idx_agenda_items_type ON agenda_items(item_type);
	CREATE INDEX IF NOT EXISTS idx_agenda_items_ref ON agenda_items(reference_number);
	CREATE INDEX IF NOT EXISTS idx_links_ordinance ON ordinance_meeting_links(ordinance_id);
	`

	_, err := s.db.Exec(schema)
	return err
}
