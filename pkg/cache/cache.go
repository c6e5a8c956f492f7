// Package cache provides the response cache used by the request client.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"fieldtrack/pkg/db"
)

// Cacher defines the caching interface.
type Cacher interface {
	GetCache(ctx context.Context, key string) ([]byte, bool)
	SetCache(ctx context.Context, key string, val []byte) error
}

// SQLiteCache implements Cacher on the shared sqlite database.
type SQLiteCache struct {
	db *db.DB
}

// NewSQLiteCache creates a new cache.
func NewSQLiteCache(d *db.DB) *SQLiteCache {
	return &SQLiteCache{db: d}
}

func (c *SQLiteCache) GetCache(ctx context.Context, key string) ([]byte, bool) {
	var val []byte
	err := c.db.QueryRowContext(ctx, "SELECT value FROM cache WHERE key = ?", key).Scan(&val)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Error("Cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	return val, true
}

func (c *SQLiteCache) SetCache(ctx context.Context, key string, val []byte) error {
	_, err := c.db.ExecContext(ctx,
		"INSERT INTO cache (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, val)
	return err
}
