package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Result status discriminators.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Result sources for successful simulations.
const (
	SourceComputation = "computation"
	SourceCache       = "cache"
)

// SimulationSuccess is a completed simulation.
type SimulationSuccess struct {
	MoleculeName  string    `json:"molecule_name"`
	ExactEnergy   float64   `json:"exact_energy"`
	VQEEnergy     float64   `json:"vqe_energy"`
	AnsatzType    string    `json:"ansatz_type"`
	Backend       string    `json:"backend"`
	QubitCount    int       `json:"qubit_count"`
	Elements      []string  `json:"elements"`
	MoleculeImage string    `json:"molecule_image"`
	EnergyPlot    string    `json:"energy_plot"`
	Distances     []float64 `json:"distances,omitempty"`
	ExactEnergies []float64 `json:"exact_energies,omitempty"`
	VQEEnergies   []float64 `json:"vqe_energies,omitempty"`
	Source        string    `json:"source"`
	CachedAt      *string   `json:"cached_at"`
	Status        string    `json:"status"`
}

// SimulationFailure is a simulation that could not be completed. Failures
// are data: they are cached and returned like successes.
type SimulationFailure struct {
	Error      string `json:"error"`
	Suggestion string `json:"suggestion"`
	Status     string `json:"status"`
}

// SimulationResult holds exactly one of Success or Failure.
type SimulationResult struct {
	Success *SimulationSuccess
	Failure *SimulationFailure
}

// Succeeded wraps s as a result and sets its status.
func Succeeded(s SimulationSuccess) SimulationResult {
	s.Status = StatusSuccess
	return SimulationResult{Success: &s}
}

// Failed builds a failure result.
func Failed(errText, suggestion string) SimulationResult {
	return SimulationResult{Failure: &SimulationFailure{
		Error:      errText,
		Suggestion: suggestion,
		Status:     StatusFailed,
	}}
}

// OK reports whether the result is a success.
func (r SimulationResult) OK() bool { return r.Success != nil }

// Status returns the discriminator of the held variant.
func (r SimulationResult) Status() string {
	if r.Success != nil {
		return StatusSuccess
	}
	return StatusFailed
}

// Clone returns a deep copy so cached results are never shared.
func (r SimulationResult) Clone() SimulationResult {
	switch {
	case r.Success != nil:
		s := *r.Success
		s.Elements = cloneSlice(s.Elements)
		s.Distances = cloneSlice(s.Distances)
		s.ExactEnergies = cloneSlice(s.ExactEnergies)
		s.VQEEnergies = cloneSlice(s.VQEEnergies)
		if s.CachedAt != nil {
			ts := *s.CachedAt
			s.CachedAt = &ts
		}
		return SimulationResult{Success: &s}
	case r.Failure != nil:
		f := *r.Failure
		return SimulationResult{Failure: &f}
	}
	return SimulationResult{}
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// MarshalJSON encodes whichever variant is set.
func (r SimulationResult) MarshalJSON() ([]byte, error) {
	switch {
	case r.Success != nil:
		return json.Marshal(r.Success)
	case r.Failure != nil:
		return json.Marshal(r.Failure)
	}
	return nil, errors.New("simulation result: no variant set")
}

// UnmarshalJSON decodes a result by its status field.
func (r *SimulationResult) UnmarshalJSON(data []byte) error {
	var probe struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	switch probe.Status {
	case StatusSuccess:
		var s SimulationSuccess
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = SimulationResult{Success: &s}
	case StatusFailed:
		var f SimulationFailure
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		*r = SimulationResult{Failure: &f}
	default:
		return fmt.Errorf("simulation result: unknown status %q", probe.Status)
	}
	return nil
}
