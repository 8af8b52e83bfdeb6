package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/molsim-ai/molsim/pkg/models"
)

// Cache is a simulation result store backed by SQLite.
type Cache struct {
	db     *sql.DB
	hits   atomic.Int64
	misses atomic.Int64
}

const createCacheTable = `
CREATE TABLE IF NOT EXISTS simulation_cache (
	cache_key TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	result BLOB NOT NULL,
	stored_at DATETIME NOT NULL
);
`

// New opens (or creates) the cache database at dbPath.
func New(dbPath string) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec(createCacheTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	return &Cache{db: db}, nil
}

// Lookup returns the entry stored under key.
func (c *Cache) Lookup(ctx context.Context, key string) (models.CacheEntry, bool, error) {
	var raw []byte
	var ts time.Time

	err := c.db.QueryRowContext(ctx,
		`SELECT result, stored_at FROM simulation_cache WHERE cache_key = ?`, key,
	).Scan(&raw, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		c.misses.Add(1)
		return models.CacheEntry{}, false, nil
	}
	if err != nil {
		c.misses.Add(1)
		return models.CacheEntry{}, false, fmt.Errorf("cache lookup: %w", err)
	}

	var result models.SimulationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		c.misses.Add(1)
		return models.CacheEntry{}, false, fmt.Errorf("decode cache entry: %w", err)
	}

	c.hits.Add(1)
	return models.CacheEntry{CacheKey: key, Result: result, Timestamp: ts.UTC()}, true, nil
}

// Upsert stores result under key, replacing any previous entry.
func (c *Cache) Upsert(ctx context.Context, key string, result models.SimulationResult, ts time.Time) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO simulation_cache (cache_key, status, result, stored_at)
		 VALUES (?, ?, ?, ?)`,
		key, result.Status(), raw, ts.UTC(),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Count returns the number of stored entries.
func (c *Cache) Count(ctx context.Context) (int64, error) {
	var count int64
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM simulation_cache`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("cache count: %w", err)
	}
	return count, nil
}

// Stats returns the entry count together with this process's hit counters.
func (c *Cache) Stats(ctx context.Context) (models.CacheStats, error) {
	count, err := c.Count(ctx)
	if err != nil {
		return models.CacheStats{}, err
	}
	return models.CacheStats{
		Entries: count,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}, nil
}

// Clear removes every entry and reports how many were deleted.
func (c *Cache) Clear(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM simulation_cache`)
	if err != nil {
		return 0, fmt.Errorf("cache clear: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Close releases the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}
