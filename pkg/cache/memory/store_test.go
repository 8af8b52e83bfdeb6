package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molsim-ai/molsim/pkg/models"
)

func TestLookupReturnsCopy(t *testing.T) {
	s, err := New(4)
	require.NoError(t, err)
	ctx := context.Background()

	res := models.Succeeded(models.SimulationSuccess{MoleculeName: "H2", Elements: []string{"H"}})
	require.NoError(t, s.Upsert(ctx, "k", res, time.Now()))

	e, ok, err := s.Lookup(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	e.Result.Success.Elements[0] = "X"
	e.Result.Success.Source = models.SourceCache

	again, _, _ := s.Lookup(ctx, "k")
	assert.Equal(t, "H", again.Result.Success.Elements[0])
	assert.Empty(t, again.Result.Success.Source)
}

func TestEviction(t *testing.T) {
	s, err := New(2)
	require.NoError(t, err)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, s.Upsert(ctx, k, models.Failed("e", "s"), time.Now()))
	}
	n, _ := s.Count(ctx)
	assert.EqualValues(t, 2, n)

	_, ok, _ := s.Lookup(ctx, "a")
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	s, err := New(0)
	require.NoError(t, err)
	ctx := context.Background()
	_ = s.Upsert(ctx, "a", models.Failed("e", "s"), time.Now())

	deleted, err := s.Clear(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
	n, _ := s.Count(ctx)
	assert.Zero(t, n)
}
