package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/molsim-ai/molsim/pkg/models"
)

// Environment variables that override the file.
const (
	EnvStoreURL      = "MOLSIM_STORE_URL"
	EnvHardwareToken = "MOLSIM_HARDWARE_TOKEN"
)

// Config holds all molsim configuration.
type Config struct {
	Listen      string          `yaml:"listen"`
	GRPCListen  string          `yaml:"grpc_listen"`
	CORSOrigins []string        `yaml:"cors_origins"`
	Log         LogConfig       `yaml:"log"`
	Store       StoreConfig     `yaml:"store"`
	Chemistry   ChemistryConfig `yaml:"chemistry"`
	Solver      SolverConfig    `yaml:"solver"`
	Hardware    HardwareConfig  `yaml:"hardware"`
	Predictor   PredictorConfig `yaml:"predictor"`
	History     HistoryConfig   `yaml:"history"`
	Tracing     TracingConfig   `yaml:"tracing"`
}

// LogConfig selects the logger. Format is "json" or "console".
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StoreConfig selects the result cache. An empty URL disables caching.
type StoreConfig struct {
	URL           string `yaml:"url"`
	MemoryEntries int    `yaml:"memory_entries"`
}

// ChemistryConfig points at the electronic-structure service.
type ChemistryConfig struct {
	URL     string        `yaml:"url"`
	Mapper  string        `yaml:"mapper"`
	Timeout time.Duration `yaml:"timeout"`
}

// SolverConfig bounds the numerical work.
type SolverConfig struct {
	MaxIterations    int           `yaml:"max_iterations"`
	Seed             int64         `yaml:"seed"`
	Timeout          time.Duration `yaml:"timeout"`
	SweepConcurrency int           `yaml:"sweep_concurrency"`
	DedupeInFlight   bool          `yaml:"dedupe_inflight"`
}

// HardwareConfig describes the remote device. An empty token disables it.
type HardwareConfig struct {
	Token             string        `yaml:"token"`
	URL               string        `yaml:"url"`
	Device            string        `yaml:"device"`
	OptimizationLevel int           `yaml:"optimization_level"`
	Timeout           time.Duration `yaml:"timeout"`
	Breaker           BreakerConfig `yaml:"breaker"`
	Budget            BudgetConfig  `yaml:"budget"`
}

// BreakerConfig controls the hardware circuit breaker.
type BreakerConfig struct {
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
	Cooldown            time.Duration `yaml:"cooldown"`
}

// BudgetConfig controls hardware budget enforcement. It needs history.
type BudgetConfig struct {
	Enabled  bool                  `yaml:"enabled"`
	Policies []models.BudgetPolicy `yaml:"policies"`
}

// PredictorConfig locates the classifier model file.
type PredictorConfig struct {
	ModelPath string `yaml:"model_path"`
}

// HistoryConfig controls the run log. An empty path disables it.
type HistoryConfig struct {
	DBPath        string `yaml:"db_path"`
	RetentionDays int    `yaml:"retention_days"`
}

// TracingConfig enables OTLP export when Endpoint is set.
type TracingConfig struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen:      ":8000",
		CORSOrigins: []string{"*"},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Chemistry: ChemistryConfig{
			URL:     "http://localhost:8500",
			Mapper:  "parity",
			Timeout: 2 * time.Minute,
		},
		Solver: SolverConfig{
			MaxIterations:    400,
			Timeout:          10 * time.Minute,
			SweepConcurrency: 1,
		},
		Hardware: HardwareConfig{
			URL:               "https://api.quantum-computing.ibm.com/runtime",
			Device:            "ibmq_qasm_simulator",
			OptimizationLevel: 3,
			Timeout:           30 * time.Second,
			Breaker: BreakerConfig{
				ConsecutiveFailures: 3,
				Cooldown:            time.Minute,
			},
		},
		Predictor: PredictorConfig{
			ModelPath: "quantum_advantage_model.yaml",
		},
		History: HistoryConfig{
			RetentionDays: 90,
		},
		Tracing: TracingConfig{
			ServiceName: "molsim",
		},
	}
}

// Load reads a YAML config file and expands environment variables. An empty
// path yields the defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}

		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path if it exists and falls back to defaults plus
// environment overrides otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Load("")
	}
	return Load(path)
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(EnvStoreURL); ok {
		c.Store.URL = v
	}
	if v, ok := os.LookupEnv(EnvHardwareToken); ok {
		c.Hardware.Token = v
	}
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format must be json or console, got %q", c.Log.Format)
	}
	if c.Solver.MaxIterations <= 0 {
		return fmt.Errorf("config: solver.max_iterations must be positive")
	}
	if c.Solver.SweepConcurrency <= 0 {
		return fmt.Errorf("config: solver.sweep_concurrency must be positive")
	}
	if c.Store.MemoryEntries < 0 {
		return fmt.Errorf("config: store.memory_entries must not be negative")
	}
	if c.Hardware.Budget.Enabled && c.History.DBPath == "" {
		return fmt.Errorf("config: hardware.budget requires history.db_path")
	}
	for _, p := range c.Hardware.Budget.Policies {
		if p.MaxRuns <= 0 {
			return fmt.Errorf("config: budget policy for %q needs a positive max_runs", p.Backend)
		}
		if p.Period != models.BudgetDaily && p.Period != models.BudgetMonthly {
			return fmt.Errorf("config: budget period must be daily or monthly, got %q", p.Period)
		}
	}
	return nil
}
