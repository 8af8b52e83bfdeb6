package quantum

import "context"

// Estimator evaluates <psi(params)|h|psi(params)> for a parameterized
// circuit.
type Estimator interface {
	Estimate(ctx context.Context, c *Circuit, params []float64, h *PauliSum) (float64, error)
}

// StatevectorEstimator computes exact expectation values in process.
type StatevectorEstimator struct{}

func (StatevectorEstimator) Estimate(ctx context.Context, c *Circuit, params []float64, h *PauliSum) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s, err := c.Run(params)
	if err != nil {
		return 0, err
	}
	return s.Expectation(h)
}
