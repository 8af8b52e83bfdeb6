package quantum

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/optimize"
)

// DefaultMaxIterations is the optimizer budget when none is configured.
const DefaultMaxIterations = 400

// Optimizer minimizes a circuit's energy with Nelder-Mead.
type Optimizer struct {
	MaxIterations int
	// Seed fixes the random initial point; zero draws a fresh seed.
	Seed int64
	// SimplexSize is the edge length of the initial simplex in radians.
	SimplexSize float64
}

// VQEResult is the outcome of one variational minimization.
type VQEResult struct {
	Eigenvalue  float64
	Parameters  []float64
	Evaluations int
	Status      string
}

// Minimize searches the circuit's parameters for the lowest expectation of
// h, spending at most MaxIterations optimizer iterations.
func (o Optimizer) Minimize(ctx context.Context, est Estimator, c *Circuit, h *PauliSum) (VQEResult, error) {
	if c.NumQubits != h.NumQubits {
		return VQEResult{}, fmt.Errorf("vqe: ansatz has %d qubits, hamiltonian %d", c.NumQubits, h.NumQubits)
	}

	seed := o.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	x0 := make([]float64, c.NumParams)
	for i := range x0 {
		x0[i] = (rng.Float64()*2 - 1) * math.Pi
	}

	var (
		evalErr error
		evals   int
	)
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			if evalErr != nil {
				return math.Inf(1)
			}
			evals++
			v, err := est.Estimate(ctx, c, x, h)
			if err != nil {
				evalErr = err
				return math.Inf(1)
			}
			return v
		},
		Status: func() (optimize.Status, error) {
			if evalErr != nil {
				return optimize.Failure, evalErr
			}
			if err := ctx.Err(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		},
	}

	iters := o.MaxIterations
	if iters <= 0 {
		iters = DefaultMaxIterations
	}
	simplex := o.SimplexSize
	if simplex <= 0 {
		simplex = 0.5
	}
	settings := &optimize.Settings{
		MajorIterations: iters,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-9,
			Iterations: 50,
		},
	}

	res, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{SimplexSize: simplex})
	if evalErr != nil {
		return VQEResult{}, fmt.Errorf("vqe: estimator: %w", evalErr)
	}
	if res == nil {
		return VQEResult{}, fmt.Errorf("vqe: %w", err)
	}
	if err != nil && !budgetSpent(res.Status) {
		return VQEResult{}, fmt.Errorf("vqe: %w", err)
	}
	if math.IsNaN(res.F) || math.IsInf(res.F, 0) {
		return VQEResult{}, errors.New("vqe: optimizer returned a non-finite energy")
	}
	return VQEResult{
		Eigenvalue:  res.F,
		Parameters:  res.X,
		Evaluations: evals,
		Status:      res.Status.String(),
	}, nil
}

// budgetSpent reports statuses where the optimizer stopped on a limit and
// still holds its best point.
func budgetSpent(s optimize.Status) bool {
	switch s {
	case optimize.IterationLimit, optimize.FunctionEvaluationLimit, optimize.RuntimeLimit:
		return true
	}
	return false
}
