// Package redis stores simulation results in Redis, one key per entry.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/molsim-ai/molsim/pkg/models"
)

// DefaultPrefix namespaces cache keys inside a shared Redis database.
const DefaultPrefix = "molsim:cache:"

const scanBatch = 500

// Store is a result cache backed by Redis.
type Store struct {
	client *goredis.Client
	prefix string
}

type record struct {
	Result    models.SimulationResult `json:"result"`
	Timestamp time.Time               `json:"timestamp"`
}

// New connects using a redis:// URL.
func New(ctx context.Context, url string) (*Store, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewWithClient(client, DefaultPrefix), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *goredis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) Lookup(ctx context.Context, key string) (models.CacheEntry, bool, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return models.CacheEntry{}, false, nil
	}
	if err != nil {
		return models.CacheEntry{}, false, fmt.Errorf("cache lookup: %w", err)
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return models.CacheEntry{}, false, fmt.Errorf("decode cache entry: %w", err)
	}
	return models.CacheEntry{CacheKey: key, Result: rec.Result, Timestamp: rec.Timestamp.UTC()}, true, nil
}

func (s *Store) Upsert(ctx context.Context, key string, result models.SimulationResult, ts time.Time) error {
	raw, err := json.Marshal(record{Result: result, Timestamp: ts.UTC()})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+key, raw, 0).Err(); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Count tallies distinct keys; SCAN may return a key more than once while
// the keyspace is rehashing.
func (s *Store) Count(ctx context.Context) (int64, error) {
	seen := make(map[string]struct{})
	err := s.scan(ctx, func(keys []string) error {
		for _, k := range keys {
			seen[k] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("cache count: %w", err)
	}
	return int64(len(seen)), nil
}

func (s *Store) Clear(ctx context.Context) (int64, error) {
	var n int64
	err := s.scan(ctx, func(keys []string) error {
		deleted, err := s.client.Del(ctx, keys...).Result()
		n += deleted
		return err
	})
	if err != nil {
		return n, fmt.Errorf("cache clear: %w", err)
	}
	return n, nil
}

func (s *Store) scan(ctx context.Context, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", scanBatch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (s *Store) Close() error {
	return s.client.Close()
}
