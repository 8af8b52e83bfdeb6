package models

import "time"

// RunRecord is one computed (non-cached) simulation.
type RunRecord struct {
	ID           string    `json:"id"`
	CacheKey     string    `json:"cache_key"`
	MoleculeName string    `json:"molecule_name"`
	Backend      string    `json:"backend"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
	ExactEnergy  float64   `json:"exact_energy,omitempty"`
	VQEEnergy    float64   `json:"vqe_energy,omitempty"`
	QubitCount   int       `json:"qubit_count,omitempty"`
	DurationMs   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// RunSummary aggregates runs by backend and status.
type RunSummary struct {
	Backend       string  `json:"backend"`
	Status        string  `json:"status"`
	Runs          int64   `json:"runs"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}

// RunFilter narrows history queries.
type RunFilter struct {
	Backend string
	Status  string
	Since   time.Time
	Limit   int
}
