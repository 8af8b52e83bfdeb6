package quantum

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// MaxExactQubits bounds exact diagonalization.
const MaxExactQubits = 10

// MinimumEigenvalue returns the smallest eigenvalue of h by dense
// diagonalization. Complex Hermitian matrices are embedded as the real
// symmetric [[A, -B], [B, A]], whose spectrum is that of h doubled.
func MinimumEigenvalue(h *PauliSum) (float64, error) {
	if h.NumQubits > MaxExactQubits {
		return 0, fmt.Errorf("exact eigensolver: %d qubits exceeds limit of %d", h.NumQubits, MaxExactQubits)
	}
	dim := h.Dim()
	m := h.Matrix()

	complexEntries := false
	for _, v := range m {
		if imag(v) != 0 {
			complexEntries = true
			break
		}
	}

	var sym *mat.SymDense
	if complexEntries {
		sym = mat.NewSymDense(2*dim, nil)
		for i := 0; i < dim; i++ {
			for j := 0; j < dim; j++ {
				v := m[i*dim+j]
				if j >= i {
					sym.SetSym(i, j, real(v))
					sym.SetSym(i+dim, j+dim, real(v))
				}
				sym.SetSym(i, j+dim, -imag(v))
			}
		}
	} else {
		sym = mat.NewSymDense(dim, nil)
		for i := 0; i < dim; i++ {
			for j := i; j < dim; j++ {
				sym.SetSym(i, j, real(m[i*dim+j]))
			}
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(sym, false); !ok {
		return 0, errors.New("exact eigensolver: factorization did not converge")
	}
	values := eig.Values(nil)
	return values[0], nil
}
