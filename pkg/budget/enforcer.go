package budget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/molsim-ai/molsim/pkg/models"
)

// ErrBudgetExceeded is returned when a backend has used up its run budget.
var ErrBudgetExceeded = errors.New("budget exceeded")

// RunCounter reports how many runs a backend served since a given time.
type RunCounter interface {
	CountRuns(ctx context.Context, backend string, since time.Time) (int64, error)
}

// Enforcer checks backend usage against budget policies.
type Enforcer struct {
	policies []models.BudgetPolicy
	counter  RunCounter
	now      func() time.Time
}

// New creates an Enforcer with the given policies and run counter.
func New(policies []models.BudgetPolicy, c RunCounter) *Enforcer {
	return &Enforcer{policies: policies, counter: c, now: time.Now}
}

// Check returns ErrBudgetExceeded if the backend has exceeded any applicable policy.
func (e *Enforcer) Check(ctx context.Context, backend string) error {
	for _, p := range e.policiesFor(backend) {
		used, err := e.counter.CountRuns(ctx, backend, e.periodStart(p.Period))
		if err != nil {
			return fmt.Errorf("budget check: %w", err)
		}
		if used >= p.MaxRuns {
			return ErrBudgetExceeded
		}
	}
	return nil
}

// Status returns the budget status of a backend across all applicable policies.
func (e *Enforcer) Status(ctx context.Context, backend string) ([]models.BudgetStatus, error) {
	policies := e.policiesFor(backend)
	statuses := make([]models.BudgetStatus, 0, len(policies))

	for _, p := range policies {
		used, err := e.counter.CountRuns(ctx, backend, e.periodStart(p.Period))
		if err != nil {
			return nil, fmt.Errorf("budget status: %w", err)
		}
		remaining := p.MaxRuns - used
		if remaining < 0 {
			remaining = 0
		}
		statuses = append(statuses, models.BudgetStatus{
			Policy:    p,
			Used:      used,
			Remaining: remaining,
		})
	}
	return statuses, nil
}

func (e *Enforcer) policiesFor(backend string) []models.BudgetPolicy {
	var result []models.BudgetPolicy
	for _, p := range e.policies {
		if p.Backend == "" || p.Backend == "*" || p.Backend == backend {
			result = append(result, p)
		}
	}
	return result
}

func (e *Enforcer) periodStart(period models.BudgetPeriod) time.Time {
	now := e.now().UTC()
	switch period {
	case models.BudgetMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	default: // daily
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
}
