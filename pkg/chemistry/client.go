package chemistry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/molsim-ai/molsim/pkg/quantum"
)

// DefaultMapper is the fermion-to-qubit mapping requested from the driver.
const DefaultMapper = "parity"

// Client talks to the electronic-structure service, which runs the
// integral driver and the qubit mapper and returns a Pauli Hamiltonian.
type Client struct {
	baseURL string
	mapper  string
	client  *http.Client
}

// NewClient creates a driver client. A zero timeout means 2 minutes.
func NewClient(baseURL, mapper string, timeout time.Duration) *Client {
	if mapper == "" {
		mapper = DefaultMapper
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		mapper:  mapper,
		client:  &http.Client{Timeout: timeout},
	}
}

type problemRequest struct {
	Geometry
	Mapper string `json:"mapper"`
}

type problemResponse struct {
	NumQubits        int                 `json:"num_qubits"`
	NuclearRepulsion float64             `json:"nuclear_repulsion_energy"`
	Shift            float64             `json:"constant_shift"`
	NumParticles     [2]int              `json:"num_particles"`
	NumOrbitals      int                 `json:"num_spatial_orbitals"`
	Terms            []quantum.PauliTerm `json:"hamiltonian"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Problem requests the mapped qubit problem for g.
func (c *Client) Problem(ctx context.Context, g Geometry) (*Problem, error) {
	body, err := json.Marshal(problemRequest{Geometry: g, Mapper: c.mapper})
	if err != nil {
		return nil, fmt.Errorf("encode driver request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/problems", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create driver request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("driver request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read driver response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			return nil, fmt.Errorf("driver returned %d: %s", resp.StatusCode, e.Error)
		}
		return nil, fmt.Errorf("driver returned %d", resp.StatusCode)
	}

	var pr problemResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return nil, fmt.Errorf("decode driver response: %w", err)
	}
	h, err := quantum.NewPauliSum(pr.NumQubits, pr.Terms)
	if err != nil {
		return nil, fmt.Errorf("driver hamiltonian: %w", err)
	}
	return &Problem{
		Hamiltonian:      h,
		NuclearRepulsion: pr.NuclearRepulsion,
		Shift:            pr.Shift,
		NumParticles:     pr.NumParticles,
		NumOrbitals:      pr.NumOrbitals,
	}, nil
}
