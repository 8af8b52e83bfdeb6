// Package memory keeps simulation results in a bounded in-process LRU.
package memory

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/molsim-ai/molsim/pkg/models"
)

// DefaultSize is the capacity used when none is given.
const DefaultSize = 1024

// Store is a non-persistent result cache. Least recently used entries are
// evicted once the capacity is reached.
type Store struct {
	entries *lru.Cache[string, models.CacheEntry]
}

// New creates a store holding at most size entries.
func New(size int) (*Store, error) {
	if size <= 0 {
		size = DefaultSize
	}
	c, err := lru.New[string, models.CacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &Store{entries: c}, nil
}

func (s *Store) Lookup(_ context.Context, key string) (models.CacheEntry, bool, error) {
	e, ok := s.entries.Get(key)
	if !ok {
		return models.CacheEntry{}, false, nil
	}
	e.Result = e.Result.Clone()
	return e, true, nil
}

func (s *Store) Upsert(_ context.Context, key string, result models.SimulationResult, ts time.Time) error {
	s.Put(models.CacheEntry{CacheKey: key, Result: result, Timestamp: ts.UTC()})
	return nil
}

// Put stores a complete entry.
func (s *Store) Put(e models.CacheEntry) {
	e.Result = e.Result.Clone()
	s.entries.Add(e.CacheKey, e)
}

// Remove drops a single entry.
func (s *Store) Remove(key string) {
	s.entries.Remove(key)
}

func (s *Store) Count(context.Context) (int64, error) {
	return int64(s.entries.Len()), nil
}

func (s *Store) Clear(context.Context) (int64, error) {
	n := s.entries.Len()
	s.entries.Purge()
	return int64(n), nil
}

func (s *Store) Close() error { return nil }
