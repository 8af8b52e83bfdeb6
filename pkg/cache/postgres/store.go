// Package postgres stores simulation results in a PostgreSQL table.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/molsim-ai/molsim/pkg/models"
)

const createTable = `
CREATE TABLE IF NOT EXISTS simulation_cache (
	cache_key TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	result JSONB NOT NULL,
	stored_at TIMESTAMPTZ NOT NULL
)`

// Store is a result cache backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

// New connects to dsn and creates the cache table if needed.
func New(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s, err := NewWithDB(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing handle.
func NewWithDB(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, createTable); err != nil {
		return nil, fmt.Errorf("migrate postgres cache: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Lookup(ctx context.Context, key string) (models.CacheEntry, bool, error) {
	var raw []byte
	var ts time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT result, stored_at FROM simulation_cache WHERE cache_key = $1`, key,
	).Scan(&raw, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CacheEntry{}, false, nil
	}
	if err != nil {
		return models.CacheEntry{}, false, fmt.Errorf("cache lookup: %w", err)
	}
	var result models.SimulationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return models.CacheEntry{}, false, fmt.Errorf("decode cache entry: %w", err)
	}
	return models.CacheEntry{CacheKey: key, Result: result, Timestamp: ts.UTC()}, true, nil
}

func (s *Store) Upsert(ctx context.Context, key string, result models.SimulationResult, ts time.Time) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO simulation_cache (cache_key, status, result, stored_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (cache_key) DO UPDATE
		 SET status = EXCLUDED.status, result = EXCLUDED.result, stored_at = EXCLUDED.stored_at`,
		key, result.Status(), raw, ts.UTC(),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM simulation_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("cache count: %w", err)
	}
	return n, nil
}

func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM simulation_cache`)
	if err != nil {
		return 0, fmt.Errorf("cache clear: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
