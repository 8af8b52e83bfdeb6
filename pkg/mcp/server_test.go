package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molsim-ai/molsim/pkg/backend"
	"github.com/molsim-ai/molsim/pkg/models"
	"github.com/molsim-ai/molsim/pkg/predict"
)

type fakeSim struct {
	result  models.SimulationResult
	last    models.MoleculeRequest
	calls   int
	entries int64
}

func (f *fakeSim) Simulate(_ context.Context, req models.MoleculeRequest) models.SimulationResult {
	f.calls++
	f.last = req
	return f.result
}

func (f *fakeSim) CacheStats(context.Context) (models.CacheStats, error) {
	return models.CacheStats{Entries: f.entries, Hits: 10, Misses: 5}, nil
}

func (f *fakeSim) ClearCache(context.Context) (int64, error) {
	n := f.entries
	f.entries = 0
	return n, nil
}

type fakePredictor struct {
	err error
}

func (f fakePredictor) Predict(feat models.PredictionFeatures) (models.PredictionResult, error) {
	if f.err != nil {
		return models.PredictionResult{}, f.err
	}
	return models.PredictionResult{
		Prediction: models.LabelQuantum,
		Confidence: 0.8123,
		Features:   feat.Map(),
		Status:     models.StatusSuccess,
	}, nil
}

type fakeHistory struct {
	filter models.RunFilter
	runs   []models.RunRecord
}

func (f *fakeHistory) Recent(_ context.Context, filter models.RunFilter) ([]models.RunRecord, error) {
	f.filter = filter
	return f.runs, nil
}

func (f *fakeHistory) Summary(context.Context, time.Time) ([]models.RunSummary, error) {
	return []models.RunSummary{{Backend: backend.NameSimulator, Status: models.StatusSuccess, Runs: 4, AvgDurationMs: 1250}}, nil
}

type fakeBudget struct {
	backend string
}

func (f *fakeBudget) Status(_ context.Context, name string) ([]models.BudgetStatus, error) {
	f.backend = name
	return []models.BudgetStatus{{
		Policy:    models.BudgetPolicy{Backend: name, MaxRuns: 20, Period: models.BudgetDaily},
		Used:      5,
		Remaining: 15,
	}}, nil
}

func h2Success() models.SimulationResult {
	return models.Succeeded(models.SimulationSuccess{
		MoleculeName:  "H2",
		ExactEnergy:   -1.137306,
		VQEEnergy:     -1.137201,
		AnsatzType:    "EfficientSU2",
		Backend:       backend.NameSimulator,
		QubitCount:    4,
		Elements:      []string{"H"},
		MoleculeImage: "c3Zn",
		EnergyPlot:    "cG5n",
		Distances:     []float64{0.5, 2.0},
		ExactEnergies: []float64{-1.05, -0.95},
		VQEEnergies:   []float64{-1.04, -0.94},
		Source:        models.SourceComputation,
	})
}

func newTestServer(sim *fakeSim) *Server {
	return New(sim, fakePredictor{}, nil, nil, "test", nil)
}

func sendAndReceive(t *testing.T, srv *Server, req Request) Response {
	t.Helper()
	line, err := json.Marshal(req)
	require.NoError(t, err)
	line = append(line, '\n')

	var out bytes.Buffer
	require.NoError(t, srv.Run(context.Background(), bytes.NewReader(line), &out))

	var resp Response
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp), "raw: %s", out.String())
	return resp
}

func callTool(t *testing.T, srv *Server, name, args string) ToolCallResult {
	t.Helper()
	p := ToolCallParams{Name: name}
	if args != "" {
		p.Arguments = json.RawMessage(args)
	}
	params, err := json.Marshal(p)
	require.NoError(t, err)

	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`7`),
		Method:  "tools/call",
		Params:  params,
	})
	require.Nil(t, resp.Error)

	data, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result ToolCallResult
	require.NoError(t, json.Unmarshal(data, &result))
	require.NotEmpty(t, result.Content)
	return result
}

func TestInitialize(t *testing.T) {
	resp := sendAndReceive(t, newTestServer(&fakeSim{}), Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`1`),
		Method:  "initialize",
	})
	require.Nil(t, resp.Error)

	data, _ := json.Marshal(resp.Result)
	var result InitializeResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, ProtocolVersion, result.ProtocolVersion)
	assert.Equal(t, "molsim", result.ServerInfo.Name)
	assert.Equal(t, "test", result.ServerInfo.Version)
}

func TestToolsList(t *testing.T) {
	resp := sendAndReceive(t, newTestServer(&fakeSim{}), Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`2`),
		Method:  "tools/list",
	})
	require.Nil(t, resp.Error)

	data, _ := json.Marshal(resp.Result)
	var result ToolsListResult
	require.NoError(t, json.Unmarshal(data, &result))

	var names []string
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
		_, ok := toolHandlers[tool.Name]
		assert.True(t, ok, "no handler for %s", tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"molsim_simulate", "molsim_predict", "molsim_cache_stats",
		"molsim_cache_clear", "molsim_history", "molsim_budget",
	}, names)
}

func TestSimulateTool(t *testing.T) {
	sim := &fakeSim{result: h2Success()}
	res := callTool(t, newTestServer(sim), "molsim_simulate",
		`{"atoms":[{"element":"H","x":0,"y":0,"z":0},{"element":"H","x":0.74,"y":0,"z":0}]}`)

	assert.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	assert.Contains(t, res.Content[0].Text, "H2")
	assert.Contains(t, res.Content[0].Text, "-1.137306")
	assert.Contains(t, res.Content[0].Text, "Energy curve")
	assert.Equal(t, models.DefaultBasisSet, sim.last.BasisSet)
	assert.Len(t, sim.last.Atoms, 2)
}

func TestSimulateToolImages(t *testing.T) {
	sim := &fakeSim{result: h2Success()}
	res := callTool(t, newTestServer(sim), "molsim_simulate",
		`{"atoms":[{"element":"H","x":0,"y":0,"z":0}],"include_images":true}`)

	require.Len(t, res.Content, 3)
	assert.Equal(t, ContentBlock{Type: "image", Data: "c3Zn", MimeType: "image/svg+xml"}, res.Content[1])
	assert.Equal(t, ContentBlock{Type: "image", Data: "cG5n", MimeType: "image/png"}, res.Content[2])
}

func TestSimulateToolFailure(t *testing.T) {
	sim := &fakeSim{result: models.Failed("SolverError: driver: SCF did not converge", "Try adjusting molecular geometry or using different basis set")}
	res := callTool(t, newTestServer(sim), "molsim_simulate", `{"atoms":[{"element":"H","x":0,"y":0,"z":0}]}`)

	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "SCF did not converge")
	assert.Contains(t, res.Content[0].Text, "Suggestion:")
}

func TestSimulateToolValidation(t *testing.T) {
	sim := &fakeSim{result: h2Success()}
	srv := newTestServer(sim)

	res := callTool(t, srv, "molsim_simulate", `{"atoms":[{"element":"H","x":101,"y":0,"z":0}],"charge":9}`)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "atoms[0].x")
	assert.Contains(t, res.Content[0].Text, "charge")

	res = callTool(t, srv, "molsim_simulate", `{"atoms":"nope"}`)
	assert.True(t, res.IsError)

	assert.Zero(t, sim.calls)
}

func TestPredictTool(t *testing.T) {
	srv := newTestServer(&fakeSim{})
	res := callTool(t, srv, "molsim_predict",
		`{"num_atoms":3,"num_electrons":10,"num_qubits":12,"basis_set_size":14,"molecular_complexity":6.5}`)

	assert.False(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "Quantum")
	assert.Contains(t, res.Content[0].Text, "81.2%")
	assert.Contains(t, res.Content[0].Text, "molecular_complexity")

	res = callTool(t, srv, "molsim_predict", `{"num_atoms":0}`)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "num_atoms")
}

func TestPredictToolModelUnavailable(t *testing.T) {
	srv := New(&fakeSim{}, fakePredictor{err: predict.ErrModelUnavailable}, nil, nil, "test", nil)
	res := callTool(t, srv, "molsim_predict",
		`{"num_atoms":3,"num_electrons":10,"num_qubits":12,"basis_set_size":14,"molecular_complexity":6.5}`)

	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "Prediction model not available")

	srv = New(&fakeSim{}, fakePredictor{err: errors.New("boom")}, nil, nil, "test", nil)
	res = callTool(t, srv, "molsim_predict",
		`{"num_atoms":3,"num_electrons":10,"num_qubits":12,"basis_set_size":14,"molecular_complexity":6.5}`)
	assert.Contains(t, res.Content[0].Text, predict.SuggestInput)
}

func TestCacheTools(t *testing.T) {
	sim := &fakeSim{entries: 42}
	srv := newTestServer(sim)

	res := callTool(t, srv, "molsim_cache_stats", "")
	assert.Contains(t, res.Content[0].Text, "42")
	assert.Contains(t, res.Content[0].Text, "66.7%")

	res = callTool(t, srv, "molsim_cache_clear", "")
	assert.Equal(t, "Cleared 42 cache entries.", res.Content[0].Text)
	assert.Zero(t, sim.entries)
}

func TestHistoryTool(t *testing.T) {
	h := &fakeHistory{runs: []models.RunRecord{{
		MoleculeName: "H2",
		Backend:      backend.NameSimulator,
		Status:       models.StatusSuccess,
		VQEEnergy:    -1.1372,
		DurationMs:   812,
		CreatedAt:    time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}}}
	srv := New(&fakeSim{}, fakePredictor{}, h, nil, "test", nil)

	res := callTool(t, srv, "molsim_history", `{"backend":"Local Simulator","since":"2026-03-01"}`)
	assert.False(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "2026-03-02 10:00:00")
	assert.Contains(t, res.Content[0].Text, "-1.137200")
	assert.Contains(t, res.Content[0].Text, "1250.0")
	assert.Equal(t, backend.NameSimulator, h.filter.Backend)
	assert.Equal(t, defaultHistoryLimit, h.filter.Limit)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), h.filter.Since)

	res = callTool(t, srv, "molsim_history", `{"since":"March"}`)
	assert.True(t, res.IsError)
}

func TestHistoryToolNotConfigured(t *testing.T) {
	res := callTool(t, newTestServer(&fakeSim{}), "molsim_history", "")
	assert.Contains(t, res.Content[0].Text, "not configured")
}

func TestBudgetTool(t *testing.T) {
	res := callTool(t, newTestServer(&fakeSim{}), "molsim_budget", "")
	assert.Contains(t, res.Content[0].Text, "not configured")

	b := &fakeBudget{}
	srv := New(&fakeSim{}, fakePredictor{}, nil, b, "test", nil)
	res = callTool(t, srv, "molsim_budget", "")
	assert.Equal(t, backend.NameHardware, b.backend)
	assert.Contains(t, res.Content[0].Text, "25.0%")
}

func TestUnknownTool(t *testing.T) {
	res := callTool(t, newTestServer(&fakeSim{}), "molsim_unknown", "")
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "unknown tool")
}

func TestNotificationNoResponse(t *testing.T) {
	line, _ := json.Marshal(Request{JSONRPC: "2.0", Method: "notifications/initialized"})
	line = append(line, '\n')

	var out bytes.Buffer
	require.NoError(t, newTestServer(&fakeSim{}).Run(context.Background(), bytes.NewReader(line), &out))
	assert.Zero(t, out.Len())
}

func TestParseError(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, newTestServer(&fakeSim{}).Run(context.Background(), bytes.NewReader([]byte("{nope\n")), &out))

	var resp Response
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeParseError, resp.Error.Code)
}

func TestUnknownMethod(t *testing.T) {
	resp := sendAndReceive(t, newTestServer(&fakeSim{}), Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`9`),
		Method:  "unknown/method",
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeMethodNotFound, resp.Error.Code)
}

func TestPing(t *testing.T) {
	resp := sendAndReceive(t, newTestServer(&fakeSim{}), Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`"p1"`),
		Method:  "ping",
	})
	require.Nil(t, resp.Error)
	assert.JSONEq(t, `"p1"`, string(resp.ID))
}

func TestInvalidVersion(t *testing.T) {
	resp := sendAndReceive(t, newTestServer(&fakeSim{}), Request{
		JSONRPC: "1.0",
		ID:      json.RawMessage(`3`),
		Method:  "tools/list",
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidRequest, resp.Error.Code)
}

func TestToolAnnotations(t *testing.T) {
	byName := map[string]ToolDefinition{}
	for _, tool := range allTools {
		byName[tool.Name] = tool
	}
	require.NotNil(t, byName["molsim_cache_clear"].Annotations)
	assert.True(t, byName["molsim_cache_clear"].Annotations.DestructiveHint)
	assert.True(t, byName["molsim_cache_stats"].Annotations.ReadOnlyHint)
	assert.Nil(t, byName["molsim_simulate"].Annotations)
}
