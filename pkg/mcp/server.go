package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/molsim-ai/molsim/pkg/models"
)

// Simulator runs simulations and manages the result cache.
type Simulator interface {
	Simulate(ctx context.Context, req models.MoleculeRequest) models.SimulationResult
	CacheStats(ctx context.Context) (models.CacheStats, error)
	ClearCache(ctx context.Context) (int64, error)
}

// Predictor classifies feature vectors.
type Predictor interface {
	Predict(f models.PredictionFeatures) (models.PredictionResult, error)
}

// History lists computed runs.
type History interface {
	Recent(ctx context.Context, f models.RunFilter) ([]models.RunRecord, error)
	Summary(ctx context.Context, since time.Time) ([]models.RunSummary, error)
}

// BudgetReporter reports hardware budget usage.
type BudgetReporter interface {
	Status(ctx context.Context, backend string) ([]models.BudgetStatus, error)
}

const instructions = "molsim computes molecular ground-state energies. " +
	"Use molsim_simulate with atom coordinates in Angstrom; results are cached by geometry."

// Server is a minimal MCP server that communicates over stdio using JSON-RPC 2.0.
type Server struct {
	sim       Simulator
	predictor Predictor
	history   History
	budget    BudgetReporter
	version   string
	logger    *zap.Logger
}

// New creates a new MCP Server. history and budget may be nil.
func New(sim Simulator, p Predictor, history History, budget BudgetReporter, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		sim:       sim,
		predictor: p,
		history:   history,
		budget:    budget,
		version:   version,
		logger:    logger,
	}
}

// Run reads JSON-RPC requests from r line-by-line and writes responses to w.
// It blocks until r is closed or ctx is cancelled.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(w, errorResponse(nil, CodeParseError, "parse error"))
			continue
		}

		if resp := s.dispatch(ctx, &req); resp != nil {
			s.writeResponse(w, resp)
		}
	}
	return scanner.Err()
}

// dispatch returns nil for notifications, which get no response.
func (s *Server) dispatch(ctx context.Context, req *Request) *Response {
	if req.JSONRPC != jsonrpcVersion {
		if req.IsNotification() {
			return nil
		}
		return errorResponse(req.ID, CodeInvalidRequest, "jsonrpc must be 2.0")
	}
	if strings.HasPrefix(req.Method, "notifications/") || req.IsNotification() {
		return nil
	}

	switch req.Method {
	case "initialize":
		return resultResponse(req.ID, InitializeResult{
			ProtocolVersion: ProtocolVersion,
			ServerInfo:      ServerInfo{Name: "molsim", Version: s.version},
			Capabilities:    Capabilities{Tools: &ToolsCapability{}},
			Instructions:    instructions,
		})
	case "ping":
		return resultResponse(req.ID, struct{}{})
	case "tools/list":
		return resultResponse(req.ID, ToolsListResult{Tools: allTools})
	case "tools/call":
		return s.callTool(ctx, req)
	default:
		return errorResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("unknown method: %s", req.Method))
	}
}

func (s *Server) callTool(ctx context.Context, req *Request) *Response {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		return errorResponse(req.ID, CodeInvalidParams, "invalid params")
	}

	handler, ok := toolHandlers[params.Name]
	if !ok {
		return resultResponse(req.ID, errorResult(fmt.Sprintf("unknown tool: %s", params.Name)))
	}

	start := time.Now()
	result := handler(ctx, s, params.Arguments)
	s.logger.Debug("mcp tool call",
		zap.String("tool", params.Name),
		zap.Bool("is_error", result.IsError),
		zap.Duration("duration", time.Since(start)),
	)
	return resultResponse(req.ID, result)
}

func (s *Server) writeResponse(w io.Writer, resp *Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("mcp marshal failed", zap.Error(err))
		return
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		s.logger.Error("mcp write failed", zap.Error(err))
	}
}
