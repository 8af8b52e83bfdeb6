package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/molsim-ai/molsim/pkg/cache"
	"github.com/molsim-ai/molsim/pkg/chemistry"
	"github.com/molsim-ai/molsim/pkg/config"
	"github.com/molsim-ai/molsim/pkg/models"
)

type nopDriver struct{}

func (nopDriver) Problem(context.Context, chemistry.Geometry) (*chemistry.Problem, error) {
	return nil, assert.AnError
}

func TestNewDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Predictor.ModelPath = filepath.Join(t.TempDir(), "missing.yaml")

	s, err := New(context.Background(), cfg, zap.NewNop(), WithDriver(nopDriver{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	assert.False(t, cache.Enabled(s.Store))
	assert.Nil(t, s.History)
	assert.Nil(t, s.Budget)
	assert.False(t, s.Selector.HardwareAvailable())
	assert.False(t, s.Predictor.Loaded())
	assert.NotNil(t, s.Simulation)
}

func TestNewWithStoreAndHistory(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Store.URL = "sqlite://" + filepath.Join(dir, "cache.db")
	cfg.Store.MemoryEntries = 8
	cfg.History.DBPath = filepath.Join(dir, "history.db")
	cfg.Hardware.Budget.Enabled = true
	cfg.Hardware.Budget.Policies = []models.BudgetPolicy{{Backend: "*", MaxRuns: 5, Period: models.BudgetDaily}}
	cfg.Predictor.ModelPath = filepath.Join("..", "..", "quantum_advantage_model.yaml")

	s, err := New(context.Background(), cfg, zap.NewNop(), WithDriver(nopDriver{}))
	require.NoError(t, err)
	defer s.Close()

	assert.True(t, cache.Enabled(s.Store))
	assert.True(t, s.Simulation.CacheEnabled())
	require.NotNil(t, s.History)
	require.NotNil(t, s.Budget)
	assert.True(t, s.Predictor.Loaded())

	req := models.NewMoleculeRequest()
	req.Atoms = []models.Atom{{Element: "H"}, {Element: "H", X: 0.74}}
	res := s.Simulation.Simulate(context.Background(), req)
	require.NotNil(t, res.Failure)

	runs, err := s.History.Recent(context.Background(), models.RunFilter{})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestNewBadStore(t *testing.T) {
	cfg := config.Default()
	cfg.Store.URL = "mongodb://localhost:27017"
	_, err := New(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestHardwareProbe(t *testing.T) {
	var status atomic.Value
	status.Store("online")
	rt := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"ibmq_qasm_simulator","status":"` + status.Load().(string) + `"}`))
	}))
	defer rt.Close()

	hc := config.Default().Hardware
	hc.URL = rt.URL
	hc.Token = "tok"

	assert.NotNil(t, connectHardware(context.Background(), hc, zap.NewNop()))

	status.Store("maintenance")
	assert.Nil(t, connectHardware(context.Background(), hc, zap.NewNop()))

	hc.Token = ""
	assert.Nil(t, connectHardware(context.Background(), hc, zap.NewNop()))
}
