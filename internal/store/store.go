// Package store persists the settings and the prospection data (companies
// and employees to follow) in a sqlite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver
)

// CurrentSchemaVersion is stored in the user_version pragma.
const CurrentSchemaVersion = 1

var schema = []string{
	`CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS company (
		id       INTEGER PRIMARY KEY,
		name     TEXT NOT NULL DEFAULT '',
		link     TEXT NOT NULL UNIQUE,
		is_added INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS employee (
		id         INTEGER PRIMARY KEY,
		link       TEXT NOT NULL UNIQUE,
		company_id INTEGER REFERENCES company (id),
		is_added   INTEGER NOT NULL DEFAULT 0
	)`,
}

// Store is a sqlite backed store. It implements settings.Store.
type Store struct {
	db *sql.DB
}

// Open opens the database at path, creating the schema if needed. Use
// ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite only supports one writer, and an in-memory database only lives
	// as long as its connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return err
	}
	if version > CurrentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, CurrentSchemaVersion)
	}
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", CurrentSchemaVersion))
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the stored value for every key of defaults, falling back to
// the default when the key was never set.
func (s *Store) Get(ctx context.Context, defaults map[string]any) (map[string]any, error) {
	result := make(map[string]any, len(defaults))
	for k, v := range defaults {
		result[k] = v
	}
	if len(defaults) == 0 {
		return result, nil
	}
	keys := make([]any, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	query := fmt.Sprintf("SELECT key, value FROM settings WHERE key IN (%s)", placeholders(len(keys)))
	rows, err := s.db.QueryContext(ctx, query, keys...)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("invalid value stored for setting %s: %w", key, err)
		}
		result[key] = v
	}
	return result, rows.Err()
}

// Set stores all values in one transaction.
func (s *Store) Set(ctx context.Context, values map[string]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for k, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode setting %s: %w", k, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO settings (key, value) VALUES (?, ?)
			 ON CONFLICT (key) DO UPDATE SET value = excluded.value`, k, string(raw)); err != nil {
			return fmt.Errorf("failed to write setting %s: %w", k, err)
		}
	}
	return tx.Commit()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
