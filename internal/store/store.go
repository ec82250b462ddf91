// Package store provides local SQLite persistence for tenderwatch: the
// notices the user opened and the entries collected from watchlist feeds.
package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/abelbrown/tenderwatch/internal/model"
)

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Store struct {
	db *sql.DB
	mu sync.RWMutex // Protects all database operations
}

// Visit is a notice the user opened in the panel.
type Visit struct {
	NoticeID  string
	Title     string
	Source    model.Source
	VisitedAt time.Time
	Count     int
}

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
// Uses WAL mode for better concurrent read performance (file-based DBs only).
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Shared cache so every connection in the pool sees the same database.
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS visits (
		notice_id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		source TEXT NOT NULL,
		visited_at DATETIME NOT NULL,
		visit_count INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_visits_visited ON visits(visited_at DESC);

	CREATE TABLE IF NOT EXISTS inbox (
		notice_id TEXT NOT NULL,
		watchlist TEXT NOT NULL,
		title TEXT NOT NULL,
		link TEXT,
		published_at DATETIME NOT NULL,
		fetched_at DATETIME NOT NULL,
		PRIMARY KEY (notice_id, watchlist)
	);

	CREATE INDEX IF NOT EXISTS idx_inbox_published ON inbox(published_at DESC);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
// Thread-safe: acquires write lock to prevent closing during in-flight operations.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// RecordVisit upserts n into the visit history, bumping its count.
func (s *Store) RecordVisit(n model.Notice, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO visits (notice_id, title, source, visited_at, visit_count)
		VALUES (?, ?, ?, ?, 1)
		ON CONFLICT(notice_id) DO UPDATE SET
			title = excluded.title,
			source = excluded.source,
			visited_at = excluded.visited_at,
			visit_count = visits.visit_count + 1
	`, n.ID, n.Title, string(n.Source), at.UTC())
	if err != nil {
		return fmt.Errorf("record visit %s: %w", n.ID, err)
	}
	return nil
}

// RecentVisits returns the most recently opened notices, newest first.
func (s *Store) RecentVisits(limit int) ([]Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT notice_id, title, source, visited_at, visit_count
		FROM visits
		ORDER BY visited_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visits []Visit
	for rows.Next() {
		var v Visit
		var source string
		if err := rows.Scan(&v.NoticeID, &v.Title, &source, &v.VisitedAt, &v.Count); err != nil {
			return nil, err
		}
		v.Source = model.ParseSource(source)
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

// SaveInboxEntries stores entries, returning the count of new ones.
// An entry already present for the same notice and watchlist is ignored.
// Thread-safe: acquires write lock.
func (s *Store) SaveInboxEntries(entries []model.InboxEntry, fetched time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO inbox (notice_id, watchlist, title, link, published_at, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	newCount := 0
	for _, e := range entries {
		published := e.Published
		if published.IsZero() {
			published = fetched
		}
		result, err := stmt.Exec(e.NoticeID, e.Watchlist, e.Title, e.Link, published.UTC(), fetched.UTC())
		if err != nil {
			return 0, fmt.Errorf("insert inbox entry %s: %w", e.NoticeID, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return 0, err
		}
		if affected > 0 {
			newCount++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return newCount, nil
}

// InboxEntries returns stored watchlist entries ordered by published_at DESC.
// Thread-safe: acquires read lock.
func (s *Store) InboxEntries(limit int) ([]model.InboxEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT notice_id, watchlist, title, link, published_at
		FROM inbox
		ORDER BY published_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.InboxEntry
	for rows.Next() {
		var e model.InboxEntry
		var link sql.NullString
		if err := rows.Scan(&e.NoticeID, &e.Watchlist, &e.Title, &link, &e.Published); err != nil {
			return nil, err
		}
		e.Link = link.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PruneInbox deletes entries fetched before cutoff.
func (s *Store) PruneInbox(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec("DELETE FROM inbox WHERE fetched_at < ?", cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
