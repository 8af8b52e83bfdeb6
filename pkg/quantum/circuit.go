package quantum

import (
	"fmt"
	"strconv"
	"strings"
)

// Gate names understood by the simulator and the QASM exporter.
const (
	GateRY = "ry"
	GateRZ = "rz"
	GateCX = "cx"
)

// Op is one gate application. Param indexes the circuit parameter vector
// for rotations and is -1 otherwise.
type Op struct {
	Gate   string
	Qubits []int
	Param  int
}

// Circuit is a parameterized gate sequence.
type Circuit struct {
	Name      string
	NumQubits int
	NumParams int
	Ops       []Op
}

// EfficientSU2 builds the hardware-efficient ansatz: reps blocks of RY and
// RZ rotation layers followed by a linear CX chain, closed by a final
// rotation layer. It has 2*n*(reps+1) parameters.
func EfficientSU2(n, reps int) *Circuit {
	c := &Circuit{Name: "EfficientSU2", NumQubits: n}
	rotations := func() {
		for _, g := range []string{GateRY, GateRZ} {
			for q := 0; q < n; q++ {
				c.Ops = append(c.Ops, Op{Gate: g, Qubits: []int{q}, Param: c.NumParams})
				c.NumParams++
			}
		}
	}
	for r := 0; r < reps; r++ {
		rotations()
		for q := 0; q+1 < n; q++ {
			c.Ops = append(c.Ops, Op{Gate: GateCX, Qubits: []int{q, q + 1}, Param: -1})
		}
	}
	rotations()
	return c
}

// Run prepares the circuit's state for the given parameters.
func (c *Circuit) Run(params []float64) (State, error) {
	if len(params) != c.NumParams {
		return nil, fmt.Errorf("circuit %s: got %d parameters, want %d", c.Name, len(params), c.NumParams)
	}
	s, err := NewState(c.NumQubits)
	if err != nil {
		return nil, err
	}
	for _, op := range c.Ops {
		switch op.Gate {
		case GateRY:
			s.RY(op.Qubits[0], params[op.Param])
		case GateRZ:
			s.RZ(op.Qubits[0], params[op.Param])
		case GateCX:
			s.CX(op.Qubits[0], op.Qubits[1])
		default:
			return nil, fmt.Errorf("circuit %s: unknown gate %q", c.Name, op.Gate)
		}
	}
	return s, nil
}

// QASM renders the circuit with bound parameters as OpenQASM 3.
func (c *Circuit) QASM(params []float64) (string, error) {
	if len(params) != c.NumParams {
		return "", fmt.Errorf("circuit %s: got %d parameters, want %d", c.Name, len(params), c.NumParams)
	}
	var b strings.Builder
	b.WriteString("OPENQASM 3.0;\ninclude \"stdgates.inc\";\n")
	fmt.Fprintf(&b, "qubit[%d] q;\n", c.NumQubits)
	for _, op := range c.Ops {
		switch op.Gate {
		case GateRY, GateRZ:
			fmt.Fprintf(&b, "%s(%s) q[%d];\n", op.Gate, strconv.FormatFloat(params[op.Param], 'g', 17, 64), op.Qubits[0])
		case GateCX:
			fmt.Fprintf(&b, "cx q[%d], q[%d];\n", op.Qubits[0], op.Qubits[1])
		default:
			return "", fmt.Errorf("circuit %s: unknown gate %q", c.Name, op.Gate)
		}
	}
	return b.String(), nil
}
