package chemistry

import (
	"context"

	"github.com/molsim-ai/molsim/pkg/quantum"
)

// Problem is an electronic-structure problem already mapped to qubits.
type Problem struct {
	Hamiltonian *quantum.PauliSum
	// NuclearRepulsion is added to electronic eigenvalues to give total
	// energies.
	NuclearRepulsion float64
	// Shift collects constant terms the mapper removed from the Hamiltonian.
	Shift float64
	// NumParticles counts alpha and beta electrons. Drivers that do not
	// report it leave it zero.
	NumParticles [2]int
	NumOrbitals  int
}

// NumElectrons is the total of alpha and beta electrons.
func (p *Problem) NumElectrons() int { return p.NumParticles[0] + p.NumParticles[1] }

// NumQubits is the register width the Hamiltonian acts on.
func (p *Problem) NumQubits() int { return p.Hamiltonian.NumQubits }

// TotalEnergy interprets an eigenvalue of the qubit Hamiltonian as the
// molecule's total energy in Hartree.
func (p *Problem) TotalEnergy(eigenvalue float64) float64 {
	return eigenvalue + p.Shift + p.NuclearRepulsion
}

// Driver builds qubit problems from geometries.
type Driver interface {
	Problem(ctx context.Context, g Geometry) (*Problem, error)
}
