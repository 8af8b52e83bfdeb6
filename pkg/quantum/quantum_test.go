package quantum

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two-qubit parity-reduced hydrogen at 0.735 Angstrom, STO-3G.
func h2Hamiltonian(t *testing.T) *PauliSum {
	t.Helper()
	h, err := NewPauliSum(2, []PauliTerm{
		{Label: "II", Coeff: -1.052373245772859},
		{Label: "IZ", Coeff: 0.39793742484318045},
		{Label: "ZI", Coeff: -0.39793742484318045},
		{Label: "ZZ", Coeff: -0.01128010425623538},
		{Label: "XX", Coeff: 0.18093119978423156},
	})
	require.NoError(t, err)
	return h
}

func TestNewPauliSumRejectsBadLabels(t *testing.T) {
	_, err := NewPauliSum(2, []PauliTerm{{Label: "XYZ", Coeff: 1}})
	assert.Error(t, err)
	_, err = NewPauliSum(2, []PauliTerm{{Label: "XA", Coeff: 1}})
	assert.Error(t, err)
	_, err = NewPauliSum(0, nil)
	assert.Error(t, err)
}

func TestLabelOrdering(t *testing.T) {
	// "IZ" acts on qubit 0: flipping qubit 0 changes the sign.
	h, err := NewPauliSum(2, []PauliTerm{{Label: "IZ", Coeff: 1}})
	require.NoError(t, err)

	s, err := NewState(2)
	require.NoError(t, err)
	e, err := s.Expectation(h)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, e, 1e-12)

	s.RY(0, math.Pi)
	e, err = s.Expectation(h)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, e, 1e-12)
}

func TestPauliYMatrix(t *testing.T) {
	h, err := NewPauliSum(1, []PauliTerm{{Label: "Y", Coeff: 1}})
	require.NoError(t, err)
	m := h.Matrix()
	assert.Equal(t, complex128(0), m[0])
	assert.Equal(t, complex(0, -1), m[1])
	assert.Equal(t, complex(0, 1), m[2])
	assert.Equal(t, complex128(0), m[3])
}

func TestCXEntangles(t *testing.T) {
	s, err := NewState(2)
	require.NoError(t, err)
	s.RY(0, math.Pi/2)
	s.CX(0, 1)

	zz, err := NewPauliSum(2, []PauliTerm{{Label: "ZZ", Coeff: 1}})
	require.NoError(t, err)
	e, err := s.Expectation(zz)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, e, 1e-12)
	assert.InDelta(t, 0.5, real(s[0])*real(s[0]), 1e-12)
	assert.InDelta(t, 0.5, real(s[3])*real(s[3]), 1e-12)
}

func TestEfficientSU2Shape(t *testing.T) {
	c := EfficientSU2(4, 1)
	assert.Equal(t, 16, c.NumParams)

	cx := 0
	for _, op := range c.Ops {
		if op.Gate == GateCX {
			cx++
		}
	}
	assert.Equal(t, 3, cx)

	qasm, err := c.QASM(make([]float64, c.NumParams))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(qasm, "OPENQASM 3.0;"))
	assert.Contains(t, qasm, "qubit[4] q;")
	assert.Contains(t, qasm, "cx q[2], q[3];")

	_, err = c.Run(make([]float64, 3))
	assert.Error(t, err)
}

func TestMinimumEigenvalueH2(t *testing.T) {
	e, err := MinimumEigenvalue(h2Hamiltonian(t))
	require.NoError(t, err)
	assert.InDelta(t, -1.857275030202, e, 1e-6)
}

func TestMinimumEigenvalueComplex(t *testing.T) {
	// Z + Y has eigenvalues +-sqrt(2).
	h, err := NewPauliSum(1, []PauliTerm{{Label: "Z", Coeff: 1}, {Label: "Y", Coeff: 1}})
	require.NoError(t, err)
	e, err := MinimumEigenvalue(h)
	require.NoError(t, err)
	assert.InDelta(t, -math.Sqrt2, e, 1e-9)
}

func TestMinimumEigenvalueTooLarge(t *testing.T) {
	h, err := NewPauliSum(MaxExactQubits+1, nil)
	require.NoError(t, err)
	_, err = MinimumEigenvalue(h)
	assert.Error(t, err)
}

func TestVQESingleQubit(t *testing.T) {
	h, err := NewPauliSum(1, []PauliTerm{{Label: "Z", Coeff: 1}, {Label: "X", Coeff: 0.5}})
	require.NoError(t, err)

	opt := Optimizer{MaxIterations: 2000, Seed: 7}
	res, err := opt.Minimize(context.Background(), StatevectorEstimator{}, EfficientSU2(1, 1), h)
	require.NoError(t, err)
	assert.InDelta(t, -math.Sqrt(1.25), res.Eigenvalue, 1e-4)
	assert.Positive(t, res.Evaluations)
}

func TestVQEH2(t *testing.T) {
	h := h2Hamiltonian(t)
	exact, err := MinimumEigenvalue(h)
	require.NoError(t, err)

	opt := Optimizer{MaxIterations: 4000, Seed: 11}
	res, err := opt.Minimize(context.Background(), StatevectorEstimator{}, EfficientSU2(2, 1), h)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Eigenvalue, exact-1e-9)
	assert.InDelta(t, exact, res.Eigenvalue, 1e-2)
}

type failingEstimator struct{ after int }

func (f *failingEstimator) Estimate(ctx context.Context, c *Circuit, params []float64, h *PauliSum) (float64, error) {
	if f.after == 0 {
		return 0, errors.New("device offline")
	}
	f.after--
	return StatevectorEstimator{}.Estimate(ctx, c, params, h)
}

func TestVQEPropagatesEstimatorError(t *testing.T) {
	h, err := NewPauliSum(1, []PauliTerm{{Label: "Z", Coeff: 1}})
	require.NoError(t, err)

	opt := Optimizer{MaxIterations: 100, Seed: 1}
	_, err = opt.Minimize(context.Background(), &failingEstimator{after: 5}, EfficientSU2(1, 1), h)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device offline")
}

func TestVQEQubitMismatch(t *testing.T) {
	h, err := NewPauliSum(2, []PauliTerm{{Label: "ZZ", Coeff: 1}})
	require.NoError(t, err)
	_, err = Optimizer{}.Minimize(context.Background(), StatevectorEstimator{}, EfficientSU2(1, 1), h)
	assert.Error(t, err)
}
