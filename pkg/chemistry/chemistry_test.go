package chemistry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molsim-ai/molsim/pkg/models"
)

func lih() models.MoleculeRequest {
	req := models.NewMoleculeRequest()
	req.Atoms = []models.Atom{
		{Element: "Li", X: 1.6},
		{Element: "H"},
	}
	return req
}

func TestEncodeKeepsAtomOrder(t *testing.T) {
	g, err := Encode(lih())
	require.NoError(t, err)
	assert.Equal(t, "Li 1.6 0 0; H 0 0 0", g.Atom)
	assert.Equal(t, "angstrom", g.Unit)
	assert.Equal(t, "sto3g", g.Basis)
}

func TestEncodeRejectsUnknownElement(t *testing.T) {
	req := lih()
	req.Atoms = []models.Atom{{Element: "Xx"}}
	_, err := Encode(req)
	var encErr *EncodingError
	require.True(t, errors.As(err, &encErr))
	assert.Equal(t, "EncodingError", encErr.Category())
	assert.Contains(t, encErr.Error(), `"Xx"`)
}

func TestEncodeRejectsEmpty(t *testing.T) {
	req := lih()
	req.Atoms = []models.Atom{}
	_, err := Encode(req)
	var encErr *EncodingError
	assert.True(t, errors.As(err, &encErr))
}

func TestEncodeIsCaseSensitive(t *testing.T) {
	req := lih()
	req.Atoms = []models.Atom{{Element: "li"}}
	_, err := Encode(req)
	assert.Error(t, err)
}

func TestMoleculeName(t *testing.T) {
	assert.Equal(t, "H2", MoleculeName([]models.Atom{{Element: "H"}, {Element: "H"}}))
	assert.Equal(t, "H1Li1", MoleculeName(lih().Atoms))
	assert.Equal(t, "H2O1", MoleculeName([]models.Atom{{Element: "O"}, {Element: "H"}, {Element: "H"}}))
	assert.Equal(t, []string{"H", "Li"}, Elements(lih().Atoms))
}

func TestAtomicNumber(t *testing.T) {
	assert.Equal(t, 1, AtomicNumber("H"))
	assert.Equal(t, 20, AtomicNumber("Ca"))
	assert.Equal(t, 118, AtomicNumber("Og"))
	assert.Zero(t, AtomicNumber("Xx"))
}

func TestElectronCount(t *testing.T) {
	assert.Equal(t, 4, ElectronCount(lih().Atoms, 0))
	assert.Equal(t, 3, ElectronCount(lih().Atoms, 1))
	assert.Equal(t, 10, ElectronCount([]models.Atom{{Element: "O"}, {Element: "H"}, {Element: "H"}}, 0))
}

func TestEncodeChecksChargeAndSpin(t *testing.T) {
	cases := []struct {
		name   string
		charge int
		spin   int
		ok     bool
	}{
		{"closed shell", 0, 0, true},
		{"cation doublet", 1, 1, true},
		{"triplet", 0, 2, true},
		{"odd spin even electrons", 0, 1, false},
		{"spin above electrons", 0, 6, false},
		{"no electrons left", 4, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := lih()
			req.Charge = tc.charge
			req.Spin = tc.spin
			_, err := Encode(req)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			var encErr *EncodingError
			assert.True(t, errors.As(err, &encErr), "got %v", err)
		})
	}
}

func TestProblemNumElectrons(t *testing.T) {
	p := &Problem{NumParticles: [2]int{2, 1}}
	assert.Equal(t, 3, p.NumElectrons())
}

func TestProblemTotalEnergy(t *testing.T) {
	p := &Problem{NuclearRepulsion: 0.7, Shift: -0.2}
	assert.InDelta(t, -1.5, p.TotalEnergy(-2.0), 1e-12)
}

func TestClientProblem(t *testing.T) {
	var got problemRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/problems", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"num_qubits":               2,
			"nuclear_repulsion_energy": 0.7199689944489797,
			"num_particles":            []int{1, 1},
			"num_spatial_orbitals":     2,
			"hamiltonian": []map[string]any{
				{"label": "II", "coeff": -1.05},
				{"label": "XX", "coeff": 0.18},
			},
		})
	}))
	defer srv.Close()

	g, err := Encode(lih())
	require.NoError(t, err)
	p, err := NewClient(srv.URL+"/", "", time.Second).Problem(context.Background(), g)
	require.NoError(t, err)

	assert.Equal(t, "parity", got.Mapper)
	assert.Equal(t, g.Atom, got.Atom)
	assert.Equal(t, 2, p.NumQubits())
	assert.Len(t, p.Hamiltonian.Terms, 2)
	assert.InDelta(t, 0.7199689944489797, p.NuclearRepulsion, 1e-15)
	assert.Equal(t, [2]int{1, 1}, p.NumParticles)
	assert.Equal(t, 2, p.NumOrbitals)
}

func TestClientProblemErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"basis set 'foo' not found"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "parity", time.Second).Problem(context.Background(), Geometry{Atom: "H 0 0 0"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "basis set 'foo' not found")

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"num_qubits":2,"hamiltonian":[{"label":"X","coeff":1}]}`))
	}))
	defer bad.Close()
	_, err = NewClient(bad.URL, "parity", time.Second).Problem(context.Background(), Geometry{Atom: "H 0 0 0"})
	assert.Error(t, err)
}
