package simulation

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/molsim-ai/molsim/pkg/models"
)

// Sweep range in Angstrom.
const (
	SweepPoints = 10
	SweepStart  = 0.5
	SweepStop   = 2.0
)

// Distances returns the evenly spaced bond distances of the energy curve,
// both ends included.
func Distances() []float64 {
	out := make([]float64, SweepPoints)
	for i := range out {
		out[i] = SweepStart + (SweepStop-SweepStart)*float64(i)/float64(SweepPoints-1)
	}
	return out
}

// Curve is an energy-versus-distance sweep as three parallel sequences.
type Curve struct {
	Distances []float64
	Exact     []float64
	VQE       []float64
}

// SolveFunc computes the energies of one geometry.
type SolveFunc func(ctx context.Context, req models.MoleculeRequest) (Point, error)

// Sweeper evaluates a molecule across the bond-distance range by placing
// the second atom at each distance along x.
type Sweeper struct {
	Solve SolveFunc
	// Concurrency bounds how many points are solved at once. Values below
	// one mean sequential.
	Concurrency int
}

// Sweep runs every point. Any failing point aborts the curve.
func (s Sweeper) Sweep(ctx context.Context, req models.MoleculeRequest) (Curve, error) {
	ds := Distances()
	curve := Curve{
		Distances: ds,
		Exact:     make([]float64, len(ds)),
		VQE:       make([]float64, len(ds)),
	}

	limit := s.Concurrency
	if limit < 1 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, d := range ds {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			atoms := req.CloneAtoms()
			if len(atoms) >= 2 {
				atoms[1].X = d
			}
			pt, err := s.Solve(gctx, req.WithAtoms(atoms))
			if err != nil {
				return fmt.Errorf("energy curve at %.3f: %w", d, err)
			}
			curve.Exact[i] = pt.Exact
			curve.VQE[i] = pt.VQE
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Curve{}, err
	}
	return curve, nil
}
