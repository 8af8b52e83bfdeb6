package budget

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molsim-ai/molsim/pkg/history"
	"github.com/molsim-ai/molsim/pkg/models"
)

const hw = "IBM Quantum"

func setup(t *testing.T) (*history.SQLiteTracker, context.Context) {
	t.Helper()
	tr, err := history.New(filepath.Join(t.TempDir(), "budget_test.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr, context.Background()
}

func record(t *testing.T, tr *history.SQLiteTracker, backend string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, tr.Record(context.Background(), models.RunRecord{
			CacheKey: "k", MoleculeName: "H2", Backend: backend,
			Status: models.StatusSuccess, CreatedAt: time.Now().UTC(),
		}))
	}
}

func TestCheckUnderBudget(t *testing.T) {
	tr, ctx := setup(t)
	record(t, tr, hw, 2)

	e := New([]models.BudgetPolicy{{Backend: hw, MaxRuns: 3, Period: models.BudgetDaily}}, tr)
	assert.NoError(t, e.Check(ctx, hw))
}

func TestCheckExceeded(t *testing.T) {
	tr, ctx := setup(t)
	record(t, tr, hw, 3)

	e := New([]models.BudgetPolicy{{Backend: "*", MaxRuns: 3, Period: models.BudgetMonthly}}, tr)
	assert.ErrorIs(t, e.Check(ctx, hw), ErrBudgetExceeded)
}

func TestPoliciesScopedToBackend(t *testing.T) {
	tr, ctx := setup(t)
	record(t, tr, "Local Simulator", 10)

	e := New([]models.BudgetPolicy{{Backend: hw, MaxRuns: 1, Period: models.BudgetDaily}}, tr)
	assert.NoError(t, e.Check(ctx, "Local Simulator"))
	assert.NoError(t, e.Check(ctx, hw))
}

func TestStatus(t *testing.T) {
	tr, ctx := setup(t)
	record(t, tr, hw, 4)

	e := New([]models.BudgetPolicy{{Backend: hw, MaxRuns: 3, Period: models.BudgetDaily}}, tr)
	statuses, err := e.Status(ctx, hw)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.EqualValues(t, 4, statuses[0].Used)
	assert.Zero(t, statuses[0].Remaining)
}

type brokenCounter struct{}

func (brokenCounter) CountRuns(context.Context, string, time.Time) (int64, error) {
	return 0, errors.New("db locked")
}

func TestCheckCounterError(t *testing.T) {
	e := New([]models.BudgetPolicy{{MaxRuns: 1}}, brokenCounter{})
	err := e.Check(context.Background(), hw)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrBudgetExceeded))
}

func TestPeriodStart(t *testing.T) {
	e := New(nil, brokenCounter{})
	e.now = func() time.Time { return time.Date(2026, 7, 19, 15, 30, 0, 0, time.UTC) }
	assert.Equal(t, time.Date(2026, 7, 19, 0, 0, 0, 0, time.UTC), e.periodStart(models.BudgetDaily))
	assert.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), e.periodStart(models.BudgetMonthly))
}
