// Package resultlog is the append-only store of check outcomes. Entries
// are never mutated or removed; the reporting endpoint returns them in
// append order for the life of the process.
package resultlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one recorded check outcome.
type Entry struct {
	DeliveryID string
	Path       string
	Class      string
	Digest     string
	Message    string
	CreatedAt  time.Time
}

// Store persists entries in SQLite. The default ":memory:" path keeps the
// log for the process lifetime only.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if needed) the store at path and ensures the
// schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("result log path is empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create result log directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// One connection serves all appends and reads. This serializes log
	// writes (single-writer discipline) and keeps every caller on the
	// same database when path is ":memory:".
	db.SetMaxOpenConns(1)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}

	if err := bootstrap(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func bootstrap(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS check_results (
  delivery_id TEXT NOT NULL,
  path        TEXT NOT NULL,
  class       TEXT NOT NULL,
  digest      TEXT,
  message     TEXT NOT NULL,
  created_at  TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS check_results_delivery_idx ON check_results(delivery_id);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap result log: %w", err)
		}
	}
	return nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append records one entry at the end of the log.
func (s *Store) Append(ctx context.Context, e Entry) error {
	if e.Message == "" {
		return fmt.Errorf("entry message is empty")
	}

	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO check_results(delivery_id, path, class, digest, message, created_at)
VALUES(?, ?, ?, ?, ?, ?);
`, e.DeliveryID, e.Path, e.Class, e.Digest, e.Message, createdAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("append result: %w", err)
	}
	return nil
}

// Messages returns every recorded message in append order.
func (s *Store) Messages(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT message FROM check_results ORDER BY rowid ASC;`)
	if err != nil {
		return nil, fmt.Errorf("read result log: %w", err)
	}
	defer rows.Close()

	messages := []string{}
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate result rows: %w", err)
	}
	return messages, nil
}

// Count returns the total number of recorded entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM check_results;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count results: %w", err)
	}
	return n, nil
}
