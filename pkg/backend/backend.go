// Package backend chooses where variational circuits run: the in-process
// statevector simulator or a remote hardware device.
package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/molsim-ai/molsim/pkg/hardware"
	"github.com/molsim-ai/molsim/pkg/quantum"
)

// Backend identities reported in results.
const (
	NameHardware  = "IBM Quantum"
	NameSimulator = "Local Simulator"
)

// Session is a backend reservation scoped to one variational solve.
type Session interface {
	quantum.Estimator
	Close() error
}

// Backend opens sessions.
type Backend interface {
	Name() string
	Open(ctx context.Context) (Session, error)
}

// Simulator runs circuits on the local statevector simulator.
type Simulator struct{}

func (Simulator) Name() string { return NameSimulator }

func (Simulator) Open(context.Context) (Session, error) { return simSession{}, nil }

type simSession struct {
	quantum.StatevectorEstimator
}

func (simSession) Close() error { return nil }

// BreakerSettings configures the hardware circuit breaker.
type BreakerSettings struct {
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// Cooldown is how long the breaker stays open before probing again.
	Cooldown time.Duration
}

// Hardware runs circuits on a remote device through a circuit breaker.
type Hardware struct {
	client  *hardware.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewHardware wraps a runtime client.
func NewHardware(client *hardware.Client, bs BreakerSettings, logger *zap.Logger) *Hardware {
	if bs.ConsecutiveFailures == 0 {
		bs.ConsecutiveFailures = 3
	}
	if bs.Cooldown <= 0 {
		bs.Cooldown = time.Minute
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "hardware:" + client.Device(),
		MaxRequests: 1,
		Timeout:     bs.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bs.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &Hardware{client: client, breaker: cb, logger: logger}
}

func (h *Hardware) Name() string { return NameHardware }

// Healthy reports whether the breaker currently lets calls through.
func (h *Hardware) Healthy() bool {
	return h.breaker.State() != gobreaker.StateOpen
}

func (h *Hardware) Open(ctx context.Context) (Session, error) {
	out, err := h.breaker.Execute(func() (any, error) {
		return h.client.OpenSession(ctx)
	})
	if err != nil {
		return nil, err
	}
	s := out.(*hardware.Session)
	h.logger.Debug("hardware session opened", zap.String("session", s.ID()))
	return &hwSession{session: s, breaker: h.breaker, logger: h.logger}, nil
}

type hwSession struct {
	session *hardware.Session
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func (s *hwSession) Estimate(ctx context.Context, c *quantum.Circuit, params []float64, h *quantum.PauliSum) (float64, error) {
	out, err := s.breaker.Execute(func() (any, error) {
		return s.session.Estimate(ctx, c, params, h)
	})
	if err != nil {
		return 0, err
	}
	return out.(float64), nil
}

// Close releases the reservation even when the solve's context is done.
func (s *hwSession) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.session.Close(ctx); err != nil {
		s.logger.Error("hardware session close failed", zap.String("session", s.session.ID()), zap.Error(err))
		return fmt.Errorf("release hardware session: %w", err)
	}
	return nil
}
