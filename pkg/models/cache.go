package models

import "time"

// CacheEntry stores the outcome of one simulation under its canonical key.
type CacheEntry struct {
	CacheKey  string           `json:"cache_key"`
	Result    SimulationResult `json:"result"`
	Timestamp time.Time        `json:"timestamp"`
}

// CacheStats reports cache size and, for in-process stores, hit counters.
type CacheStats struct {
	Entries int64 `json:"entries"`
	Hits    int64 `json:"hits,omitempty"`
	Misses  int64 `json:"misses,omitempty"`
}
