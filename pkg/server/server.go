// Package server exposes the simulation and prediction services over HTTP
// and, optionally, a gRPC health endpoint.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/molsim-ai/molsim/pkg/metrics"
	"github.com/molsim-ai/molsim/pkg/models"
)

const shutdownTimeout = 5 * time.Second

// Simulator is the orchestrator surface the HTTP layer needs.
type Simulator interface {
	Simulate(ctx context.Context, req models.MoleculeRequest) models.SimulationResult
	CacheStats(ctx context.Context) (models.CacheStats, error)
	ClearCache(ctx context.Context) (int64, error)
	CacheEnabled() bool
}

// Predictor is the classifier surface the HTTP layer needs.
type Predictor interface {
	Predict(f models.PredictionFeatures) (models.PredictionResult, error)
	Info() models.ModelInfo
	Loaded() bool
}

// HardwareProbe reports whether hardware requests would be honored.
type HardwareProbe interface {
	HardwareAvailable() bool
}

// Options configures listeners and CORS.
type Options struct {
	Listen      string
	GRPCListen  string
	CORSOrigins []string
}

// Server is the molsim API server.
type Server struct {
	opts      Options
	sim       Simulator
	predictor Predictor
	hardware  HardwareProbe
	metrics   *metrics.Collector
	logger    *zap.Logger
	router    chi.Router
	now       func() time.Time
}

// New creates a Server with all routes mounted. hw and m may be nil.
func New(opts Options, sim Simulator, p Predictor, hw HardwareProbe, m *metrics.Collector, logger *zap.Logger) *Server {
	s := &Server{
		opts:      opts,
		sim:       sim,
		predictor: p,
		hardware:  hw,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(s.logger))
	r.Use(s.instrument)

	origins := s.opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Post("/simulate", s.handleSimulate)
	r.Post("/simulate/", s.handleSimulate)
	r.Post("/predict", s.handlePredict)
	r.Post("/predict/", s.handlePredict)
	r.Get("/model/info", s.handleModelInfo)
	r.Get("/cache/stats", s.handleCacheStats)
	r.Delete("/cache/clear", s.handleCacheClear)
	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	}
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves HTTP, and gRPC health when configured, until ctx is
// done, then shuts both down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Listen,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var lis net.Listener
	if s.opts.GRPCListen != "" {
		var err error
		if lis, err = net.Listen("tcp", s.opts.GRPCListen); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("molsim api listening", zap.String("addr", s.opts.Listen))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	var gs *grpc.Server
	if lis != nil {
		gs = s.newGRPCServer(gctx)
		g.Go(func() error {
			s.logger.Info("grpc health listening", zap.String("addr", s.opts.GRPCListen))
			return gs.Serve(lis)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if gs != nil {
			gs.GracefulStop()
		}
		return srv.Shutdown(shutCtx)
	})

	return g.Wait()
}
