package models

// DefaultBasisSet is used when a request names no basis set.
const DefaultBasisSet = "sto3g"

// Atom is one nucleus of a molecule. Coordinates are in Angstrom.
type Atom struct {
	Element string  `json:"element" yaml:"element" validate:"required"`
	X       float64 `json:"x" yaml:"x" validate:"gte=-100,lte=100"`
	Y       float64 `json:"y" yaml:"y" validate:"gte=-100,lte=100"`
	Z       float64 `json:"z" yaml:"z" validate:"gte=-100,lte=100"`
}

// MoleculeRequest describes a simulation request.
type MoleculeRequest struct {
	Atoms              []Atom `json:"atoms" yaml:"atoms" validate:"required,dive"`
	Charge             int    `json:"charge" yaml:"charge" validate:"gte=-5,lte=5"`
	Spin               int    `json:"spin" yaml:"spin" validate:"gte=0,lte=10"`
	BasisSet           string `json:"basis_set" yaml:"basis_set" validate:"required,basisset"`
	UseQuantumHardware bool   `json:"use_quantum_hardware" yaml:"use_quantum_hardware"`
}

// NewMoleculeRequest returns a request carrying the field defaults, ready to
// be decoded into.
func NewMoleculeRequest() MoleculeRequest {
	return MoleculeRequest{BasisSet: DefaultBasisSet}
}

// WithAtoms returns a copy of the request with its atom list replaced.
func (r MoleculeRequest) WithAtoms(atoms []Atom) MoleculeRequest {
	r.Atoms = atoms
	return r
}

// CloneAtoms returns a copy of the atom list that can be mutated freely.
func (r MoleculeRequest) CloneAtoms() []Atom {
	out := make([]Atom, len(r.Atoms))
	copy(out, r.Atoms)
	return out
}
