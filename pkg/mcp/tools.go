package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/molsim-ai/molsim/pkg/backend"
	"github.com/molsim-ai/molsim/pkg/models"
	"github.com/molsim-ai/molsim/pkg/predict"
	"github.com/molsim-ai/molsim/pkg/validation"
)

const defaultHistoryLimit = 20

type simulateArgs struct {
	models.MoleculeRequest
	IncludeImages bool `json:"include_images"`
}

type historyArgs struct {
	Backend string `json:"backend"`
	Status  string `json:"status"`
	Since   string `json:"since"`
	Limit   int    `json:"limit"`
}

type budgetArgs struct {
	Backend string `json:"backend"`
}

// toolHandler is a function that handles a tool call.
type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult

var toolHandlers = map[string]toolHandler{
	"molsim_simulate":    handleSimulate,
	"molsim_predict":     handlePredict,
	"molsim_cache_stats": handleCacheStats,
	"molsim_cache_clear": handleCacheClear,
	"molsim_history":     handleHistory,
	"molsim_budget":      handleBudget,
}

var readOnly = &ToolAnnotations{ReadOnlyHint: true, IdempotentHint: true}

var atomSchema = map[string]any{
	"type":     "object",
	"required": []string{"element", "x", "y", "z"},
	"properties": map[string]any{
		"element": map[string]any{"type": "string", "description": "Element symbol, e.g. H, Li, O"},
		"x":       map[string]any{"type": "number", "minimum": -100, "maximum": 100},
		"y":       map[string]any{"type": "number", "minimum": -100, "maximum": 100},
		"z":       map[string]any{"type": "number", "minimum": -100, "maximum": 100},
	},
}

var allTools = []ToolDefinition{
	{
		Name: "molsim_simulate",
		Description: "Compute the ground-state energy of a molecule with an exact solver and VQE, " +
			"plus a 10-point energy curve. Results are cached by geometry.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"atoms"},
			"properties": map[string]any{
				"atoms":                map[string]any{"type": "array", "items": atomSchema},
				"charge":               map[string]any{"type": "integer", "minimum": -5, "maximum": 5},
				"spin":                 map[string]any{"type": "integer", "minimum": 0, "maximum": 10},
				"basis_set":            map[string]any{"type": "string", "pattern": "^[a-z0-9]+$", "default": models.DefaultBasisSet},
				"use_quantum_hardware": map[string]any{"type": "boolean"},
				"include_images": map[string]any{
					"type":        "boolean",
					"description": "Attach the molecule image and energy plot (optional)",
				},
			},
		},
	},
	{
		Name:        "molsim_predict",
		Description: "Predict whether a molecule is likely to show quantum advantage.",
		Annotations: readOnly,
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"num_atoms", "num_electrons", "num_qubits", "basis_set_size", "molecular_complexity"},
			"properties": map[string]any{
				"num_atoms":            map[string]any{"type": "integer", "exclusiveMinimum": 0},
				"num_electrons":        map[string]any{"type": "integer", "exclusiveMinimum": 0},
				"num_qubits":           map[string]any{"type": "integer", "exclusiveMinimum": 0},
				"basis_set_size":       map[string]any{"type": "integer", "exclusiveMinimum": 0},
				"molecular_complexity": map[string]any{"type": "number", "exclusiveMinimum": 0, "maximum": 10},
			},
		},
	},
	{
		Name:        "molsim_cache_stats",
		Description: "Show result cache statistics.",
		Annotations: readOnly,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
	{
		Name:        "molsim_cache_clear",
		Description: "Delete every cached simulation result.",
		Annotations: &ToolAnnotations{DestructiveHint: true, IdempotentHint: true},
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
	{
		Name:        "molsim_history",
		Description: "List recent computed simulation runs with a per-backend summary.",
		Annotations: readOnly,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"backend": map[string]any{
					"type":        "string",
					"description": "Filter by backend name (optional)",
				},
				"status": map[string]any{
					"type":        "string",
					"enum":        []string{models.StatusSuccess, models.StatusFailed},
					"description": "Filter by status (optional)",
				},
				"since": map[string]any{
					"type":        "string",
					"description": "Start date in YYYY-MM-DD format (optional)",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum runs to list (default 20)",
				},
			},
		},
	},
	{
		Name:        "molsim_budget",
		Description: "Show hardware budget usage against configured policies.",
		Annotations: readOnly,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"backend": map[string]any{
					"type":        "string",
					"description": "Backend name (optional, defaults to the hardware backend)",
				},
			},
		},
	},
}

func textResult(text string) ToolCallResult {
	return ToolCallResult{Content: []ContentBlock{textBlock(text)}}
}

func errorResult(text string) ToolCallResult {
	return ToolCallResult{Content: []ContentBlock{textBlock(text)}, IsError: true}
}

func validationResult(err error) ToolCallResult {
	var verr *validation.Error
	if !errors.As(err, &verr) {
		return errorResult(err.Error())
	}
	lines := make([]string, 0, len(verr.Fields)+1)
	lines = append(lines, "Invalid arguments:")
	for _, f := range verr.Fields {
		lines = append(lines, "  "+f.Field+": "+f.Message)
	}
	return errorResult(strings.Join(lines, "\n"))
}

func handleSimulate(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	args := simulateArgs{MoleculeRequest: models.NewMoleculeRequest()}
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return errorResult("Invalid arguments: " + err.Error())
		}
	}
	if err := validation.Struct(&args.MoleculeRequest); err != nil {
		return validationResult(err)
	}

	res := s.sim.Simulate(ctx, args.MoleculeRequest)
	if !res.OK() {
		return errorResult(formatFailure(*res.Failure))
	}
	out := textResult(formatSimulation(*res.Success))
	if args.IncludeImages {
		if img := res.Success.MoleculeImage; img != "" {
			out.Content = append(out.Content, imageBlock(img, "image/svg+xml"))
		}
		if plot := res.Success.EnergyPlot; plot != "" {
			out.Content = append(out.Content, imageBlock(plot, "image/png"))
		}
	}
	return out
}

func handlePredict(_ context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var f models.PredictionFeatures
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &f); err != nil {
			return errorResult("Invalid arguments: " + err.Error())
		}
	}
	if err := validation.Struct(&f); err != nil {
		return validationResult(err)
	}
	res, err := s.predictor.Predict(f)
	if err != nil {
		return errorResult(formatFailure(predict.Failure(err)))
	}
	return textResult(formatPrediction(res))
}

func handleCacheStats(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	stats, err := s.sim.CacheStats(ctx)
	if err != nil {
		return errorResult("Error fetching cache stats: " + err.Error())
	}
	return textResult(formatCacheStats(stats))
}

func handleCacheClear(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	n, err := s.sim.ClearCache(ctx)
	if err != nil {
		return errorResult("Error clearing cache: " + err.Error())
	}
	return textResult(formatCleared(n))
}

func handleHistory(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	if s.history == nil {
		return textResult("Run history is not configured.")
	}
	var args historyArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}
	filter := models.RunFilter{Backend: args.Backend, Status: args.Status, Limit: args.Limit}
	if filter.Limit <= 0 {
		filter.Limit = defaultHistoryLimit
	}
	if args.Since != "" {
		t, err := time.Parse("2006-01-02", args.Since)
		if err != nil {
			return errorResult("Invalid since date (use YYYY-MM-DD): " + err.Error())
		}
		filter.Since = t
	}

	runs, err := s.history.Recent(ctx, filter)
	if err != nil {
		return errorResult("Error fetching history: " + err.Error())
	}
	summary, err := s.history.Summary(ctx, filter.Since)
	if err != nil {
		return errorResult("Error fetching history summary: " + err.Error())
	}
	return textResult(formatRuns(runs) + "\n" + formatRunSummary(summary))
}

func handleBudget(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	if s.budget == nil {
		return textResult("Budget enforcement is not configured.")
	}
	var args budgetArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}
	if args.Backend == "" {
		args.Backend = backend.NameHardware
	}
	statuses, err := s.budget.Status(ctx, args.Backend)
	if err != nil {
		return errorResult("Error fetching budget status: " + err.Error())
	}
	return textResult(formatBudgetStatus(statuses))
}
