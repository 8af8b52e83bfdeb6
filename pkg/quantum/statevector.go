package quantum

import (
	"fmt"
	"math"
	"math/cmplx"
)

// MaxStatevectorQubits bounds the local simulator's memory use.
const MaxStatevectorQubits = 20

// State is a normalized statevector.
type State []complex128

// NewState returns |0...0> on n qubits.
func NewState(n int) (State, error) {
	if n <= 0 || n > MaxStatevectorQubits {
		return nil, fmt.Errorf("statevector: unsupported qubit count %d", n)
	}
	s := make(State, 1<<n)
	s[0] = 1
	return s, nil
}

func (s State) apply1(q int, a, b, c, d complex128) {
	bit := 1 << q
	for i := range s {
		if i&bit != 0 {
			continue
		}
		v0, v1 := s[i], s[i|bit]
		s[i] = a*v0 + b*v1
		s[i|bit] = c*v0 + d*v1
	}
}

// RY rotates qubit q about Y.
func (s State) RY(q int, theta float64) {
	cos, sin := math.Cos(theta/2), math.Sin(theta/2)
	s.apply1(q, complex(cos, 0), complex(-sin, 0), complex(sin, 0), complex(cos, 0))
}

// RZ rotates qubit q about Z.
func (s State) RZ(q int, theta float64) {
	s.apply1(q, cmplx.Exp(complex(0, -theta/2)), 0, 0, cmplx.Exp(complex(0, theta/2)))
}

// CX flips target where control is set.
func (s State) CX(control, target int) {
	cbit, tbit := 1<<control, 1<<target
	for i := range s {
		if i&cbit != 0 && i&tbit == 0 {
			s[i], s[i|tbit] = s[i|tbit], s[i]
		}
	}
}

// Expectation returns <s|h|s>.
func (s State) Expectation(h *PauliSum) (float64, error) {
	if len(s) != h.Dim() {
		return 0, fmt.Errorf("expectation: state has dimension %d, operator %d", len(s), h.Dim())
	}
	var total float64
	for _, t := range h.Terms {
		m := masks(t.Label)
		var acc complex128
		for j, amp := range s {
			if amp == 0 {
				continue
			}
			k := uint(j) ^ m.x
			acc += cmplx.Conj(s[k]) * m.phase(uint(j)) * amp
		}
		total += t.Coeff * real(acc)
	}
	return total, nil
}
