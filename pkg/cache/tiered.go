package cache

import (
	"context"
	"time"

	"github.com/molsim-ai/molsim/pkg/cache/memory"
	"github.com/molsim-ai/molsim/pkg/models"
)

// Tiered serves lookups from an in-process LRU before falling through to a
// persistent store. Writes go to the persistent store first.
type Tiered struct {
	front *memory.Store
	back  Store
}

// NewTiered puts an LRU of the given size in front of back.
func NewTiered(back Store, size int) (*Tiered, error) {
	front, err := memory.New(size)
	if err != nil {
		return nil, err
	}
	return &Tiered{front: front, back: back}, nil
}

func (t *Tiered) Lookup(ctx context.Context, key string) (models.CacheEntry, bool, error) {
	if e, ok, _ := t.front.Lookup(ctx, key); ok {
		return e, true, nil
	}
	e, ok, err := t.back.Lookup(ctx, key)
	if err != nil || !ok {
		return e, ok, err
	}
	t.front.Put(e)
	return e, true, nil
}

func (t *Tiered) Upsert(ctx context.Context, key string, result models.SimulationResult, ts time.Time) error {
	if err := t.back.Upsert(ctx, key, result, ts); err != nil {
		t.front.Remove(key)
		return err
	}
	t.front.Put(models.CacheEntry{CacheKey: key, Result: result, Timestamp: ts.UTC()})
	return nil
}

func (t *Tiered) Count(ctx context.Context) (int64, error) {
	return t.back.Count(ctx)
}

func (t *Tiered) Clear(ctx context.Context) (int64, error) {
	_, _ = t.front.Clear(ctx)
	return t.back.Clear(ctx)
}

func (t *Tiered) Close() error {
	return t.back.Close()
}
