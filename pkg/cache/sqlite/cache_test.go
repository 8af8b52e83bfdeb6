package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molsim-ai/molsim/pkg/models"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cache_test.db")
	c, err := New(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func success(name string) models.SimulationResult {
	return models.Succeeded(models.SimulationSuccess{
		MoleculeName: name,
		ExactEnergy:  -1.137,
		VQEEnergy:    -1.136,
		AnsatzType:   "EfficientSU2",
		Backend:      "Local Simulator",
		QubitCount:   2,
		Elements:     []string{"H"},
		Source:       models.SourceComputation,
	})
}

func TestUpsertAndLookup(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, c.Upsert(ctx, "k1", success("H2"), ts))

	entry, ok, err := c.Lookup(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, entry.Result.OK())
	assert.Equal(t, "H2", entry.Result.Success.MoleculeName)
	assert.Equal(t, []string{"H"}, entry.Result.Success.Elements)
	assert.True(t, ts.Equal(entry.Timestamp))

	_, ok, err = c.Lookup(ctx, "k2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpsertReplaces(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Upsert(ctx, "k", models.Failed("SolverError: boom", "retry"), time.Now()))
	require.NoError(t, c.Upsert(ctx, "k", success("H2"), time.Now()))

	entry, ok, err := c.Lookup(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, entry.Result.OK())

	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestFailureEntries(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Upsert(ctx, "bad", models.Failed("EncodingError: unknown element \"Xx\"", "fix it"), time.Now()))

	entry, ok, err := c.Lookup(ctx, "bad")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, entry.Result.Failure)
	assert.Equal(t, models.StatusFailed, entry.Result.Failure.Status)
	assert.Equal(t, "fix it", entry.Result.Failure.Suggestion)
}

func TestStats(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	_ = c.Upsert(ctx, "h1", success("H2"), time.Now())
	_, _, _ = c.Lookup(ctx, "h1") // hit
	_, _, _ = c.Lookup(ctx, "h2") // miss

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Entries)
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
}

func TestClear(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	_ = c.Upsert(ctx, "h1", success("H2"), time.Now())
	_ = c.Upsert(ctx, "h2", success("H2"), time.Now())

	n, err := c.Clear(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	count, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
