// Package app builds the process-wide service context shared by the HTTP
// server, the MCP server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/molsim-ai/molsim/pkg/backend"
	"github.com/molsim-ai/molsim/pkg/budget"
	"github.com/molsim-ai/molsim/pkg/cache"
	"github.com/molsim-ai/molsim/pkg/chemistry"
	"github.com/molsim-ai/molsim/pkg/config"
	"github.com/molsim-ai/molsim/pkg/hardware"
	"github.com/molsim-ai/molsim/pkg/history"
	"github.com/molsim-ai/molsim/pkg/metrics"
	"github.com/molsim-ai/molsim/pkg/predict"
	"github.com/molsim-ai/molsim/pkg/quantum"
	"github.com/molsim-ai/molsim/pkg/simulation"
)

// probeTimeout bounds the startup hardware connectivity check.
const probeTimeout = 15 * time.Second

// Services holds every long-lived handle. It is built once at startup and
// read-only afterwards.
type Services struct {
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *metrics.Collector
	Store      cache.Store
	History    *history.SQLiteTracker
	Budget     *budget.Enforcer
	Selector   *backend.Selector
	Simulation *simulation.Service
	Predictor  *predict.Service

	closers []func() error
}

// Option overrides a collaborator, mainly for tests.
type Option func(*options)

type options struct {
	driver chemistry.Driver
}

// WithDriver replaces the HTTP chemistry driver.
func WithDriver(d chemistry.Driver) Option {
	return func(o *options) { o.driver = d }
}

// New connects everything cfg describes. Hardware and the prediction model
// degrade gracefully; the store, history and chemistry client must come up.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*Services, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	s := &Services{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New("molsim"),
	}

	store, err := cache.Open(ctx, cfg.Store.URL, cfg.Store.MemoryEntries)
	if err != nil {
		return nil, fmt.Errorf("open cache store: %w", err)
	}
	s.Store = store
	s.closers = append(s.closers, store.Close)
	if cache.Enabled(store) {
		logger.Info("result cache enabled", zap.Int("memory_entries", cfg.Store.MemoryEntries))
	} else {
		logger.Warn("no cache store configured, every request is computed")
	}

	if cfg.History.DBPath != "" {
		h, err := history.New(cfg.History.DBPath, cfg.History.RetentionDays)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("open run history: %w", err)
		}
		s.History = h
		s.closers = append(s.closers, h.Close)
	}

	var checker backend.BudgetChecker
	if cfg.Hardware.Budget.Enabled && s.History != nil {
		s.Budget = budget.New(cfg.Hardware.Budget.Policies, s.History)
		checker = s.Budget
	}

	s.Selector = backend.NewSelector(connectHardware(ctx, cfg.Hardware, logger), checker, logger)

	driver := o.driver
	if driver == nil {
		driver = chemistry.NewClient(cfg.Chemistry.URL, cfg.Chemistry.Mapper, cfg.Chemistry.Timeout)
	}

	deps := simulation.Deps{
		Store:    store,
		Driver:   driver,
		Selector: s.Selector,
		Metrics:  s.Metrics,
		Logger:   logger.Named("simulation"),
	}
	if s.History != nil {
		deps.History = s.History
	}
	s.Simulation = simulation.New(deps, simulation.Options{
		Optimizer: quantum.Optimizer{
			MaxIterations: cfg.Solver.MaxIterations,
			Seed:          cfg.Solver.Seed,
		},
		Timeout:          cfg.Solver.Timeout,
		SweepConcurrency: cfg.Solver.SweepConcurrency,
		DedupeInFlight:   cfg.Solver.DedupeInFlight,
	})

	s.Predictor = predict.Load(cfg.Predictor.ModelPath, logger.Named("predict"))
	return s, nil
}

// connectHardware returns a live hardware backend, or nil when no token is
// configured or the device cannot be reached.
func connectHardware(ctx context.Context, hc config.HardwareConfig, logger *zap.Logger) *backend.Hardware {
	if hc.Token == "" {
		logger.Info("hardware token not set, using local simulator only")
		return nil
	}
	client, err := hardware.NewClient(hardware.Options{
		BaseURL:           hc.URL,
		Token:             hc.Token,
		Device:            hc.Device,
		OptimizationLevel: hc.OptimizationLevel,
		Timeout:           hc.Timeout,
	})
	if err != nil {
		logger.Warn("hardware client not created", zap.Error(err))
		return nil
	}

	pctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := client.Probe(pctx); err != nil {
		logger.Warn("hardware unreachable, using local simulator only",
			zap.String("device", hc.Device),
			zap.Error(err),
		)
		return nil
	}
	logger.Info("hardware connected", zap.String("device", hc.Device))
	return backend.NewHardware(client, backend.BreakerSettings{
		ConsecutiveFailures: hc.Breaker.ConsecutiveFailures,
		Cooldown:            hc.Breaker.Cooldown,
	}, logger.Named("hardware"))
}

// Close releases every handle in reverse order of creation.
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
