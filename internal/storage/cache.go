// Package storage provides a local sqlite cache of the remote name pool.
//
// The cache is refreshed after every successful full fetch and is used as a
// fallback source for the daily rename when the site API is unreachable. It
// is entirely optional: a nil *Cache is valid and every method degrades to
// ErrDisabled.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var ErrDisabled = errors.New("storage: cache disabled")

const schema = `
CREATE TABLE IF NOT EXISTS name_pool (
    name       TEXT PRIMARY KEY,
    fetched_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

type Cache struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens (or creates) the sqlite cache at path. An empty path disables
// the cache and returns (nil, nil).
func Open(path string, log *slog.Logger) (*Cache, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open: %w", err)
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")
	_, _ = db.Exec("PRAGMA busy_timeout = 5000")

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}

	if log != nil {
		log.Debug("name cache opened", slog.String("path", path))
	}
	return &Cache{db: db, log: log}, nil
}

func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// ReplaceNames swaps the cached pool for the given names atomically.
func (c *Cache) ReplaceNames(ctx context.Context, names []string) error {
	if c == nil || c.db == nil {
		return ErrDisabled
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM name_pool`); err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for _, n := range names {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO name_pool(name, fetched_at) VALUES(?, ?)`, n, now); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO meta(key, value) VALUES('refreshed_at', ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value`, now); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	if c.log != nil {
		c.log.Debug("name cache refreshed", slog.Int("count", len(names)))
	}
	return nil
}

// Names returns every cached name in insertion-independent (sorted) order.
func (c *Cache) Names(ctx context.Context) ([]string, error) {
	if c == nil || c.db == nil {
		return nil, ErrDisabled
	}
	rows, err := c.db.QueryContext(ctx, `SELECT name FROM name_pool ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// RefreshedAt reports when the cache was last replaced. Zero time when the
// cache was never filled.
func (c *Cache) RefreshedAt(ctx context.Context) (time.Time, error) {
	if c == nil || c.db == nil {
		return time.Time{}, ErrDisabled
	}
	var raw string
	err := c.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'refreshed_at'`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, raw)
}
