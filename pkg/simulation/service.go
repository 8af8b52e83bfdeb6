// Package simulation runs the end-to-end molecule simulation: cache
// lookup, exact and variational solves, the energy-curve sweep and the
// write-back of both successes and failures.
package simulation

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/molsim-ai/molsim/pkg/backend"
	"github.com/molsim-ai/molsim/pkg/cache"
	"github.com/molsim-ai/molsim/pkg/chemistry"
	"github.com/molsim-ai/molsim/pkg/metrics"
	"github.com/molsim-ai/molsim/pkg/models"
	"github.com/molsim-ai/molsim/pkg/quantum"
	"github.com/molsim-ai/molsim/pkg/render"
)

// Suggestion accompanies every simulation failure.
const Suggestion = "Try adjusting molecular geometry or using different basis set"

// DefaultTimeout bounds one computation when Options.Timeout is unset.
const DefaultTimeout = 10 * time.Minute

// BackendSelector chooses where a request's variational solves run.
type BackendSelector interface {
	Select(ctx context.Context, useHardware bool) backend.Backend
}

// Recorder receives one record per computed run.
type Recorder interface {
	Record(ctx context.Context, rec models.RunRecord) error
}

// Options tunes the orchestrator.
type Options struct {
	Optimizer        quantum.Optimizer
	Timeout          time.Duration
	SweepConcurrency int
	// DedupeInFlight shares one computation between concurrent identical
	// requests.
	DedupeInFlight bool
}

// Deps are the collaborators of a Service. Store, Driver, Selector and
// Logger are required.
type Deps struct {
	Store    cache.Store
	Driver   chemistry.Driver
	Selector BackendSelector
	History  Recorder
	Metrics  *metrics.Collector
	Logger   *zap.Logger
}

// Service is the simulation orchestrator.
type Service struct {
	store    cache.Store
	pipeline Pipeline
	selector BackendSelector
	history  Recorder
	metrics  *metrics.Collector
	logger   *zap.Logger
	tracer   trace.Tracer
	opts     Options
	group    singleflight.Group
	now      func() time.Time
}

// New builds a Service.
func New(d Deps, opts Options) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.SweepConcurrency < 1 {
		opts.SweepConcurrency = 1
	}
	if opts.Optimizer.MaxIterations <= 0 {
		opts.Optimizer.MaxIterations = quantum.DefaultMaxIterations
	}
	store := d.Store
	if store == nil {
		store = cache.Disabled{}
	}
	return &Service{
		store: store,
		pipeline: Pipeline{
			Driver:      d.Driver,
			Variational: Variational{Optimizer: opts.Optimizer},
		},
		selector: d.Selector,
		history:  d.History,
		metrics:  d.Metrics,
		logger:   d.Logger,
		tracer:   otel.Tracer("github.com/molsim-ai/molsim/pkg/simulation"),
		opts:     opts,
		now:      time.Now,
	}
}

// Simulate answers a validated request. It never returns an error: failures
// come back as failed results and are cached like successes.
func (s *Service) Simulate(ctx context.Context, req models.MoleculeRequest) models.SimulationResult {
	key := cache.Key(req)
	ctx, span := s.tracer.Start(ctx, "simulation.Simulate", trace.WithAttributes(
		attribute.String("molsim.cache_key", key),
		attribute.Int("molsim.atoms", len(req.Atoms)),
		attribute.Bool("molsim.use_hardware", req.UseQuantumHardware),
	))
	defer span.End()

	if res, ok := s.lookup(ctx, key); ok {
		span.SetAttributes(attribute.String("molsim.source", models.SourceCache))
		s.metrics.ObserveSimulation(res.Status(), models.SourceCache)
		return res
	}

	var res models.SimulationResult
	if s.opts.DedupeInFlight {
		v, _, shared := s.group.Do(key, func() (any, error) {
			return s.computeAndStore(ctx, key, req), nil
		})
		res = v.(models.SimulationResult).Clone()
		span.SetAttributes(attribute.Bool("molsim.shared", shared))
	} else {
		res = s.computeAndStore(ctx, key, req)
	}

	if res.Failure != nil {
		span.SetStatus(codes.Error, res.Failure.Error)
	}
	s.metrics.ObserveSimulation(res.Status(), models.SourceComputation)
	return res
}

// lookup returns the cached result for key, stamped for delivery. Store
// errors count as a miss.
func (s *Service) lookup(ctx context.Context, key string) (models.SimulationResult, bool) {
	ctx, span := s.tracer.Start(ctx, "cache.Lookup")
	defer span.End()

	entry, found, err := s.store.Lookup(ctx, key)
	switch {
	case err != nil:
		span.RecordError(err)
		s.metrics.ObserveCache("error")
		s.logger.Warn("cache lookup failed, computing", zap.String("key", key), zap.Error(err))
		return models.SimulationResult{}, false
	case !found:
		s.metrics.ObserveCache("miss")
		return models.SimulationResult{}, false
	}
	s.metrics.ObserveCache("hit")

	res := entry.Result.Clone()
	if res.Success != nil {
		cachedAt := entry.Timestamp.UTC().Format(time.RFC3339)
		res.Success.Source = models.SourceCache
		res.Success.CachedAt = &cachedAt
	}
	s.logger.Debug("cache hit", zap.String("key", key), zap.String("status", res.Status()))
	return res, true
}

// computeAndStore runs the pipeline detached from the caller's
// cancellation, converts any error into a failure exactly once and writes
// the outcome back.
func (s *Service) computeAndStore(ctx context.Context, key string, req models.MoleculeRequest) models.SimulationResult {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.Timeout)
	defer cancel()

	start := s.now()
	b := s.selector.Select(ctx, req.UseQuantumHardware)

	var res models.SimulationResult
	succ, err := s.compute(ctx, req, b)
	if err != nil {
		res = failure(err)
		s.logger.Error("simulation failed",
			zap.String("key", key),
			zap.String("backend", b.Name()),
			zap.Error(err),
		)
	} else {
		res = models.Succeeded(succ)
	}
	elapsed := s.now().Sub(start)
	s.metrics.ObserveSolve(b.Name(), req.UseQuantumHardware, elapsed)

	stored := s.now().UTC()
	if err := s.store.Upsert(ctx, key, res, stored); err != nil {
		s.logger.Error("cache write failed", zap.String("key", key), zap.Error(err))
	}
	s.record(ctx, key, req, b.Name(), res, elapsed, stored)
	return res
}

func (s *Service) compute(ctx context.Context, req models.MoleculeRequest, b backend.Backend) (models.SimulationSuccess, error) {
	ctx, span := s.tracer.Start(ctx, "simulation.compute", trace.WithAttributes(
		attribute.String("molsim.backend", b.Name()),
	))
	defer span.End()

	pt, err := s.pipeline.Solve(ctx, req, b)
	if err != nil {
		span.RecordError(err)
		return models.SimulationSuccess{}, err
	}
	span.SetAttributes(
		attribute.Int("molsim.qubits", pt.Qubits),
		attribute.Int("molsim.electrons", pt.Electrons),
		attribute.Int("molsim.spatial_orbitals", pt.Orbitals),
	)

	sweeper := Sweeper{
		Solve: func(ctx context.Context, r models.MoleculeRequest) (Point, error) {
			return s.pipeline.Solve(ctx, r, b)
		},
		Concurrency: s.opts.SweepConcurrency,
	}
	sctx, sweepSpan := s.tracer.Start(ctx, "simulation.Sweep")
	curve, err := sweeper.Sweep(sctx, req)
	sweepSpan.End()
	if err != nil {
		span.RecordError(err)
		return models.SimulationSuccess{}, err
	}

	image, err := render.MoleculeSVG(req.Atoms)
	if err != nil {
		s.logger.Warn("molecule image failed", zap.Error(err))
		image = ""
	}
	plot, err := render.EnergyPlot(curve.Distances, curve.Exact, curve.VQE)
	if err != nil {
		s.logger.Warn("energy plot failed", zap.Error(err))
		plot = ""
	}

	return models.SimulationSuccess{
		MoleculeName:  chemistry.MoleculeName(req.Atoms),
		ExactEnergy:   pt.Exact,
		VQEEnergy:     pt.VQE,
		AnsatzType:    AnsatzType,
		Backend:       b.Name(),
		QubitCount:    pt.Qubits,
		Elements:      chemistry.Elements(req.Atoms),
		MoleculeImage: image,
		EnergyPlot:    plot,
		Distances:     curve.Distances,
		ExactEnergies: curve.Exact,
		VQEEnergies:   curve.VQE,
		Source:        models.SourceComputation,
	}, nil
}

func (s *Service) record(ctx context.Context, key string, req models.MoleculeRequest, backendName string, res models.SimulationResult, elapsed time.Duration, at time.Time) {
	if s.history == nil {
		return
	}
	rec := models.RunRecord{
		CacheKey:     key,
		MoleculeName: chemistry.MoleculeName(req.Atoms),
		Backend:      backendName,
		Status:       res.Status(),
		DurationMs:   elapsed.Milliseconds(),
		CreatedAt:    at,
	}
	if res.Success != nil {
		rec.ExactEnergy = res.Success.ExactEnergy
		rec.VQEEnergy = res.Success.VQEEnergy
		rec.QubitCount = res.Success.QubitCount
	} else {
		rec.Error = res.Failure.Error
	}
	if err := s.history.Record(ctx, rec); err != nil {
		s.logger.Warn("history record failed", zap.String("key", key), zap.Error(err))
	}
}

// CacheStats reports the number of cached entries.
func (s *Service) CacheStats(ctx context.Context) (models.CacheStats, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return models.CacheStats{}, err
	}
	return models.CacheStats{Entries: n}, nil
}

// ClearCache deletes every cached entry and returns how many were removed.
func (s *Service) ClearCache(ctx context.Context) (int64, error) {
	n, err := s.store.Clear(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info("cache cleared", zap.Int64("deleted", n))
	return n, nil
}

// CacheEnabled reports whether results are persisted at all.
func (s *Service) CacheEnabled() bool { return cache.Enabled(s.store) }

type categorized interface {
	Category() string
}

// failure converts a pipeline error into a cached failure result.
func failure(err error) models.SimulationResult {
	category := "SolverError"
	var c categorized
	if errors.As(err, &c) {
		category = c.Category()
	}
	return models.Failed(category+": "+err.Error(), Suggestion)
}
