package backend

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/molsim-ai/molsim/pkg/budget"
)

// BudgetChecker gates hardware use.
type BudgetChecker interface {
	Check(ctx context.Context, backend string) error
}

// Selector picks the backend for a request. Hardware is used only when it
// is requested and a live device handle exists; otherwise the simulator is
// used without surfacing an error.
type Selector struct {
	hardware *Hardware
	budget   BudgetChecker
	sim      Simulator
	logger   *zap.Logger
}

// NewSelector builds a selector. hw and b may be nil.
func NewSelector(hw *Hardware, b BudgetChecker, logger *zap.Logger) *Selector {
	return &Selector{hardware: hw, budget: b, logger: logger}
}

// HardwareAvailable reports whether a hardware request would currently be
// honored, ignoring budget.
func (s *Selector) HardwareAvailable() bool {
	return s.hardware != nil && s.hardware.Healthy()
}

// Select returns the backend to run on.
func (s *Selector) Select(ctx context.Context, useHardware bool) Backend {
	if !useHardware {
		return s.sim
	}
	if s.hardware == nil {
		s.logger.Debug("hardware requested but not configured, using simulator")
		return s.sim
	}
	if !s.hardware.Healthy() {
		s.logger.Warn("hardware circuit open, using simulator")
		return s.sim
	}
	if s.budget != nil {
		if err := s.budget.Check(ctx, NameHardware); err != nil {
			if errors.Is(err, budget.ErrBudgetExceeded) {
				s.logger.Warn("hardware budget exhausted, using simulator")
			} else {
				s.logger.Error("hardware budget check failed, using simulator", zap.Error(err))
			}
			return s.sim
		}
	}
	return s.hardware
}
