// Package chemistry turns molecule requests into electronic-structure
// problems: it encodes geometries for the driver service and interprets the
// qubit Hamiltonians it returns.
package chemistry

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/molsim-ai/molsim/pkg/models"
)

// Unit is the only length unit geometries are expressed in.
const Unit = "angstrom"

// EncodingError reports a request the chemistry driver cannot represent.
type EncodingError struct {
	Msg string
}

func (e *EncodingError) Error() string { return e.Msg }

// Category names the error kind.
func (e *EncodingError) Category() string { return "EncodingError" }

// Geometry is a driver-ready molecular structure.
type Geometry struct {
	Atom   string `json:"atom"`
	Unit   string `json:"unit"`
	Charge int    `json:"charge"`
	Spin   int    `json:"spin"`
	Basis  string `json:"basis"`
}

// Encode renders req in the driver's "El x y z; El x y z" form. Atoms keep
// their request order.
func Encode(req models.MoleculeRequest) (Geometry, error) {
	if len(req.Atoms) == 0 {
		return Geometry{}, &EncodingError{Msg: "molecule has no atoms"}
	}
	parts := make([]string, len(req.Atoms))
	for i, a := range req.Atoms {
		if !IsElement(a.Element) {
			return Geometry{}, &EncodingError{Msg: fmt.Sprintf("unknown element symbol %q", a.Element)}
		}
		parts[i] = strings.Join([]string{
			a.Element,
			formatCoord(a.X),
			formatCoord(a.Y),
			formatCoord(a.Z),
		}, " ")
	}
	if err := checkElectrons(req); err != nil {
		return Geometry{}, err
	}
	return Geometry{
		Atom:   strings.Join(parts, "; "),
		Unit:   Unit,
		Charge: req.Charge,
		Spin:   req.Spin,
		Basis:  req.BasisSet,
	}, nil
}

// ElectronCount is the number of electrons the request describes: the sum of
// its atomic numbers minus the net charge.
func ElectronCount(atoms []models.Atom, charge int) int {
	n := -charge
	for _, a := range atoms {
		n += AtomicNumber(a.Element)
	}
	return n
}

// checkElectrons rejects charge and spin combinations no wavefunction can
// have. Spin is the number of unpaired electrons.
func checkElectrons(req models.MoleculeRequest) error {
	n := ElectronCount(req.Atoms, req.Charge)
	if n < 1 {
		return &EncodingError{Msg: fmt.Sprintf("charge %d leaves %d electrons", req.Charge, n)}
	}
	if req.Spin > n || (n-req.Spin)%2 != 0 {
		return &EncodingError{Msg: fmt.Sprintf("spin %d is inconsistent with %d electrons", req.Spin, n)}
	}
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Elements returns the distinct element symbols of atoms, sorted.
func Elements(atoms []models.Atom) []string {
	seen := make(map[string]bool, len(atoms))
	out := make([]string, 0, len(atoms))
	for _, a := range atoms {
		if !seen[a.Element] {
			seen[a.Element] = true
			out = append(out, a.Element)
		}
	}
	sort.Strings(out)
	return out
}

// MoleculeName builds the display formula: each distinct element in
// alphabetical order followed by its count, e.g. "H2" or "H1Li1".
func MoleculeName(atoms []models.Atom) string {
	counts := make(map[string]int, len(atoms))
	for _, a := range atoms {
		counts[a.Element]++
	}
	var b strings.Builder
	for _, el := range Elements(atoms) {
		b.WriteString(el)
		b.WriteString(strconv.Itoa(counts[el]))
	}
	return b.String()
}
