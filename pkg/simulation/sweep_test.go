package simulation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molsim-ai/molsim/pkg/models"
)

func TestDistances(t *testing.T) {
	ds := Distances()
	require.Len(t, ds, SweepPoints)
	assert.Equal(t, SweepStart, ds[0])
	assert.InDelta(t, SweepStop, ds[len(ds)-1], 1e-12)
	for i := 1; i < len(ds); i++ {
		assert.InDelta(t, (SweepStop-SweepStart)/(SweepPoints-1), ds[i]-ds[i-1], 1e-12)
	}
}

func TestSweepMovesSecondAtom(t *testing.T) {
	for _, concurrency := range []int{1, 4} {
		var (
			mu   sync.Mutex
			seen = map[float64]models.Atom{}
		)
		sw := Sweeper{
			Concurrency: concurrency,
			Solve: func(_ context.Context, req models.MoleculeRequest) (Point, error) {
				mu.Lock()
				seen[req.Atoms[1].X] = req.Atoms[0]
				mu.Unlock()
				return Point{Exact: -req.Atoms[1].X, VQE: -req.Atoms[1].X + 0.01}, nil
			},
		}

		req := liH()
		curve, err := sw.Sweep(context.Background(), req)
		require.NoError(t, err)
		assert.Len(t, curve.Exact, SweepPoints)
		assert.Len(t, curve.VQE, SweepPoints)
		for i, d := range curve.Distances {
			assert.Equal(t, -d, curve.Exact[i])
			assert.Contains(t, seen, d)
			assert.Equal(t, "Li", seen[d].Element)
		}
		// the caller's request is untouched
		assert.Equal(t, 1.6, req.Atoms[1].X)
	}
}

func TestSweepSingleAtomIsFlat(t *testing.T) {
	sw := Sweeper{Solve: func(_ context.Context, req models.MoleculeRequest) (Point, error) {
		assert.Len(t, req.Atoms, 1)
		assert.Zero(t, req.Atoms[0].X)
		return Point{Exact: -0.5, VQE: -0.49}, nil
	}}

	req := models.NewMoleculeRequest()
	req.Atoms = []models.Atom{{Element: "H"}}
	curve, err := sw.Sweep(context.Background(), req)
	require.NoError(t, err)
	for i := range curve.Distances {
		assert.Equal(t, -0.5, curve.Exact[i])
		assert.Equal(t, -0.49, curve.VQE[i])
	}
}

func TestSweepAbortsOnFailure(t *testing.T) {
	var calls atomic.Int64
	boom := &SolverError{Op: "driver", Err: errors.New("basis not found")}
	sw := Sweeper{Solve: func(_ context.Context, req models.MoleculeRequest) (Point, error) {
		calls.Add(1)
		if req.Atoms[1].X > 1.0 {
			return Point{}, boom
		}
		return Point{}, nil
	}}

	curve, err := sw.Sweep(context.Background(), liH())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, curve.Distances)
	// sequential sweep stops at the first failing point
	assert.Less(t, calls.Load(), int64(SweepPoints))
}
