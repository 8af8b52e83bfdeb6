// Package cache maps canonical molecule keys to simulation outcomes.
package cache

import (
	"context"
	"time"

	"github.com/molsim-ai/molsim/pkg/models"
)

// Store is the result cache contract shared by every backend. Entries are
// never expired; Upsert replaces the whole entry and only Clear deletes.
type Store interface {
	Lookup(ctx context.Context, key string) (models.CacheEntry, bool, error)
	Upsert(ctx context.Context, key string, result models.SimulationResult, ts time.Time) error
	Count(ctx context.Context) (int64, error)
	Clear(ctx context.Context) (int64, error)
	Close() error
}

// Disabled is the store used when no connection string is configured.
// Every lookup misses and writes are dropped.
type Disabled struct{}

func (Disabled) Lookup(context.Context, string) (models.CacheEntry, bool, error) {
	return models.CacheEntry{}, false, nil
}

func (Disabled) Upsert(context.Context, string, models.SimulationResult, time.Time) error {
	return nil
}

func (Disabled) Count(context.Context) (int64, error) { return 0, nil }
func (Disabled) Clear(context.Context) (int64, error) { return 0, nil }
func (Disabled) Close() error                         { return nil }

// Enabled reports whether s persists anything.
func Enabled(s Store) bool {
	_, off := s.(Disabled)
	return s != nil && !off
}
