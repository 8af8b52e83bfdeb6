// Package quantum holds the qubit-level numerics: Pauli-sum Hamiltonians,
// a statevector simulator, the EfficientSU2 ansatz and the eigenvalue
// routines built on them.
//
// Qubit q is bit q of a basis-state index. Pauli labels are written with
// the highest qubit first, so label[i] acts on qubit n-1-i.
package quantum

import (
	"fmt"
	"math/bits"
	"strings"
)

// PauliTerm is coeff * P for a Pauli string P.
type PauliTerm struct {
	Label string  `json:"label"`
	Coeff float64 `json:"coeff"`
}

// PauliSum is a Hermitian operator written as a real combination of
// Pauli strings over NumQubits qubits.
type PauliSum struct {
	NumQubits int
	Terms     []PauliTerm
}

// NewPauliSum validates terms and returns the operator.
func NewPauliSum(numQubits int, terms []PauliTerm) (*PauliSum, error) {
	if numQubits <= 0 {
		return nil, fmt.Errorf("pauli sum: qubit count must be positive, got %d", numQubits)
	}
	for _, t := range terms {
		if len(t.Label) != numQubits {
			return nil, fmt.Errorf("pauli sum: label %q has %d qubits, want %d", t.Label, len(t.Label), numQubits)
		}
		if strings.Trim(t.Label, "IXYZ") != "" {
			return nil, fmt.Errorf("pauli sum: label %q contains characters other than IXYZ", t.Label)
		}
	}
	return &PauliSum{NumQubits: numQubits, Terms: terms}, nil
}

// Dim is the Hilbert-space dimension.
func (h *PauliSum) Dim() int { return 1 << h.NumQubits }

// pauliMasks is the bit-level form of a Pauli string: P|j> = phase(j) |j ^ x>.
type pauliMasks struct {
	x, z uint
	ny   int
}

func masks(label string) pauliMasks {
	n := len(label)
	var m pauliMasks
	for i := 0; i < n; i++ {
		bit := uint(1) << uint(n-1-i)
		switch label[i] {
		case 'X':
			m.x |= bit
		case 'Y':
			m.x |= bit
			m.z |= bit
			m.ny++
		case 'Z':
			m.z |= bit
		}
	}
	return m
}

// iPow holds i^k for k mod 4.
var iPow = [4]complex128{1, 1i, -1, -1i}

func (m pauliMasks) phase(j uint) complex128 {
	p := iPow[m.ny%4]
	if bits.OnesCount(j&m.z)%2 == 1 {
		p = -p
	}
	return p
}

// Matrix returns the dense matrix of h, row-major, with entries
// M[row*dim+col].
func (h *PauliSum) Matrix() []complex128 {
	dim := h.Dim()
	out := make([]complex128, dim*dim)
	for _, t := range h.Terms {
		m := masks(t.Label)
		c := complex(t.Coeff, 0)
		for j := 0; j < dim; j++ {
			k := uint(j) ^ m.x
			out[int(k)*dim+j] += c * m.phase(uint(j))
		}
	}
	return out
}
