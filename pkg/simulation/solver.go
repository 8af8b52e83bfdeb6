package simulation

import (
	"context"
	"fmt"

	"github.com/molsim-ai/molsim/pkg/backend"
	"github.com/molsim-ai/molsim/pkg/chemistry"
	"github.com/molsim-ai/molsim/pkg/models"
	"github.com/molsim-ai/molsim/pkg/quantum"
)

// AnsatzType names the variational circuit family.
const AnsatzType = "EfficientSU2"

const ansatzReps = 1

// SolverError reports a failure anywhere in the numerical pipeline: the
// driver, the eigensolver, the optimizer or the backend.
type SolverError struct {
	Op  string
	Err error
}

func (e *SolverError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *SolverError) Unwrap() error { return e.Err }

// Category names the error kind.
func (e *SolverError) Category() string { return "SolverError" }

// Point is the pair of energies computed at one geometry.
type Point struct {
	Exact     float64
	VQE       float64
	Qubits    int
	Electrons int
	Orbitals  int
}

// ReferenceEnergy diagonalizes the problem's Hamiltonian exactly and returns
// the ground-state total energy.
func ReferenceEnergy(p *chemistry.Problem) (float64, error) {
	ev, err := quantum.MinimumEigenvalue(p.Hamiltonian)
	if err != nil {
		return 0, &SolverError{Op: "exact eigensolver", Err: err}
	}
	return p.TotalEnergy(ev), nil
}

// Variational estimates ground-state energies with VQE.
type Variational struct {
	Optimizer quantum.Optimizer
}

// Energy runs one variational solve on b. The backend session lives exactly
// as long as the solve.
func (v Variational) Energy(ctx context.Context, p *chemistry.Problem, b backend.Backend) (float64, error) {
	sess, err := b.Open(ctx)
	if err != nil {
		return 0, &SolverError{Op: "open " + b.Name() + " session", Err: err}
	}
	defer sess.Close()

	ansatz := quantum.EfficientSU2(p.NumQubits(), ansatzReps)
	res, err := v.Optimizer.Minimize(ctx, sess, ansatz, p.Hamiltonian)
	if err != nil {
		return 0, &SolverError{Op: "variational solve", Err: err}
	}
	return p.TotalEnergy(res.Eigenvalue), nil
}

// Pipeline computes both energies for a single geometry.
type Pipeline struct {
	Driver      chemistry.Driver
	Variational Variational
}

// Solve encodes req, builds its qubit problem and runs both solvers.
func (pl Pipeline) Solve(ctx context.Context, req models.MoleculeRequest, b backend.Backend) (Point, error) {
	g, err := chemistry.Encode(req)
	if err != nil {
		return Point{}, err
	}
	p, err := pl.Driver.Problem(ctx, g)
	if err != nil {
		return Point{}, &SolverError{Op: "driver", Err: err}
	}
	if p.Hamiltonian == nil {
		return Point{}, &SolverError{Op: "driver", Err: fmt.Errorf("no hamiltonian for %q", g.Atom)}
	}

	exact, err := ReferenceEnergy(p)
	if err != nil {
		return Point{}, err
	}
	vqe, err := pl.Variational.Energy(ctx, p, b)
	if err != nil {
		return Point{}, err
	}
	return Point{
		Exact:     exact,
		VQE:       vqe,
		Qubits:    p.NumQubits(),
		Electrons: p.NumElectrons(),
		Orbitals:  p.NumOrbitals,
	}, nil
}
