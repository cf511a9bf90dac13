package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ SettingsStore = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT    NOT NULL,
	pos   INTEGER NOT NULL,
	value TEXT    NOT NULL,
	PRIMARY KEY (key, pos)
)`

// SQLiteStore implements SettingsStore backed by a SQLite database. Each
// list element is one row ordered by pos. Only writes made through this
// store are announced to subscribers.
type SQLiteStore struct {
	notifier

	db *sql.DB
	mu sync.Mutex // serializes read-compare-write in SetStrings
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns
// a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating settings table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Strings returns the list stored under key in position order.
func (s *SQLiteStore) Strings(ctx context.Context, key string) ([]string, error) {
	return s.query(ctx, s.db, key)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *SQLiteStore) query(ctx context.Context, q queryer, key string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT value FROM settings WHERE key = ? ORDER BY pos`, key)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", key, err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// SetStrings replaces the rows for key in one transaction and notifies
// subscribers when the content changed.
func (s *SQLiteStore) SetStrings(ctx context.Context, key string, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback()

	current, err := s.query(ctx, tx, key)
	if err != nil {
		return err
	}
	if equalStrings(current, values) {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("clearing %s: %w", key, err)
	}
	for i, v := range values {
		if _, err := tx.ExecContext(ctx, `INSERT INTO settings (key, pos, value) VALUES (?, ?, ?)`, key, i, v); err != nil {
			return fmt.Errorf("inserting %s[%d]: %w", key, i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s: %w", key, err)
	}

	s.broadcast(Change{Key: key})
	return nil
}

// Close closes subscriber channels and the underlying database connection.
func (s *SQLiteStore) Close() error {
	s.closeAll()
	return s.db.Close()
}
