package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
    key        TEXT PRIMARY KEY,
    document   BLOB NOT NULL,
    updated_at TEXT NOT NULL
);
`

// Store persists JSON snapshot documents in a local SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the snapshot database at path and
// ensures the schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, newError("open", errors.New("path is required"))
	}
	dsn := path + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, wrapError("open", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, wrapError("open", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, wrapError("open", fmt.Errorf("apply schema: %w", err))
	}
	return &Store{db: db}, nil
}

// Load returns the document stored under key.
func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, newError("load", errors.New("key is required"))
	}
	var document []byte
	row := s.db.QueryRowContext(ctx, `SELECT document FROM snapshots WHERE key = ?`, key)
	if err := row.Scan(&document); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundError("load", key)
		}
		return nil, wrapError("load", err)
	}
	return document, nil
}

// Save stores document under key, replacing any previous document.
func (s *Store) Save(ctx context.Context, key string, document []byte) error {
	if key == "" {
		return newError("save", errors.New("key is required"))
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO snapshots (key, document, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		key, document, now)
	if err != nil {
		return wrapError("save", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close(ctx context.Context) error {
	if err := s.db.Close(); err != nil {
		return wrapError("close", err)
	}
	return nil
}
