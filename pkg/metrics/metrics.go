// Package metrics exposes Prometheus collectors for the simulation service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Collector holds the service metrics on a private registry.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	Simulations     *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec
	SolveDuration   *prometheus.HistogramVec
	BackendSelected *prometheus.CounterVec
	Predictions     *prometheus.CounterVec
}

// New creates a collector whose metric names start with namespace.
func New(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Simulations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "simulations_total",
				Help:      "Simulation requests by outcome and source",
			},
			[]string{"status", "source"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Result cache lookups by outcome",
			},
			[]string{"result"},
		),
		SolveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "solve_duration_seconds",
				Help:      "Time spent computing uncached simulations",
				Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"backend"},
		),
		BackendSelected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backend_selected_total",
				Help:      "Backends chosen for computed simulations",
			},
			[]string{"backend", "requested"},
		),
		Predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "predictions_total",
				Help:      "Advantage predictions by label",
			},
			[]string{"prediction"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Simulations,
		c.CacheLookups,
		c.SolveDuration,
		c.BackendSelected,
		c.Predictions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the registry to expose.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveHTTP records one served request.
func (c *Collector) ObserveHTTP(method, route, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveSimulation records a finished simulation request.
func (c *Collector) ObserveSimulation(status, source string) {
	if c == nil {
		return
	}
	c.Simulations.WithLabelValues(status, source).Inc()
}

// ObserveCache records a cache lookup: "hit", "miss" or "error".
func (c *Collector) ObserveCache(result string) {
	if c == nil {
		return
	}
	c.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveSolve records a computed simulation's duration.
func (c *Collector) ObserveSolve(backend string, requestedHardware bool, d time.Duration) {
	if c == nil {
		return
	}
	requested := "simulator"
	if requestedHardware {
		requested = "hardware"
	}
	c.BackendSelected.WithLabelValues(backend, requested).Inc()
	c.SolveDuration.WithLabelValues(backend).Observe(d.Seconds())
}

// ObservePrediction records a classifier call.
func (c *Collector) ObservePrediction(label string) {
	if c == nil {
		return
	}
	c.Predictions.WithLabelValues(label).Inc()
}
