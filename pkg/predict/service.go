package predict

import (
	"errors"
	"math"

	"go.uber.org/zap"

	"github.com/molsim-ai/molsim/pkg/models"
)

// ErrModelUnavailable is returned when no model could be loaded at startup.
var ErrModelUnavailable = errors.New("prediction model not available")

// Suggestions attached to prediction failures.
const (
	SuggestUnavailable = "Please check if the model file exists and is properly loaded"
	SuggestInput       = "Check your input values and try again"
)

// PredictionError wraps an inference failure.
type PredictionError struct {
	Err error
}

func (e *PredictionError) Error() string { return "Prediction failed: " + e.Err.Error() }

func (e *PredictionError) Unwrap() error { return e.Err }

// Category names the error kind.
func (e *PredictionError) Category() string { return "PredictionError" }

// Service answers predictions. A Service whose model failed to load still
// works; every prediction reports ErrModelUnavailable.
type Service struct {
	model   *Model
	loadErr error
}

// Load loads the model at path. Failures are logged and kept, not returned.
func Load(path string, logger *zap.Logger) *Service {
	m, err := LoadModel(path)
	if err != nil {
		logger.Warn("prediction model not loaded", zap.String("path", path), zap.Error(err))
		return &Service{loadErr: err}
	}
	logger.Info("prediction model loaded",
		zap.String("path", path),
		zap.String("type", m.ModelType),
		zap.Int("features", m.NumFeatures()),
	)
	return &Service{model: m}
}

// New serves an in-memory model.
func New(m *Model) *Service {
	if m == nil {
		return &Service{loadErr: ErrModelUnavailable}
	}
	return &Service{model: m}
}

// Loaded reports whether a model is available.
func (s *Service) Loaded() bool { return s != nil && s.model != nil }

// Predict classifies f. Input must already be validated.
func (s *Service) Predict(f models.PredictionFeatures) (models.PredictionResult, error) {
	if !s.Loaded() {
		return models.PredictionResult{}, ErrModelUnavailable
	}
	class, proba, err := s.model.Predict(f.Vector())
	if err != nil {
		return models.PredictionResult{}, &PredictionError{Err: err}
	}

	label := models.LabelClassical
	if class == 1 {
		label = models.LabelQuantum
	}
	return models.PredictionResult{
		Prediction: label,
		Confidence: round4(math.Max(proba[0], proba[1])),
		Features:   f.Map(),
		Status:     models.StatusSuccess,
	}, nil
}

// Info describes the loaded model.
func (s *Service) Info() models.ModelInfo {
	if !s.Loaded() {
		return models.ModelInfo{Status: "error", Message: "Model not loaded"}
	}
	classes := make([]int, len(s.model.Classes))
	copy(classes, s.model.Classes)
	return models.ModelInfo{
		ModelType: s.model.ModelType,
		NFeatures: s.model.NumFeatures(),
		Classes:   classes,
		Status:    "loaded",
	}
}

// Failure converts a Predict error into the failure payload returned to
// clients.
func Failure(err error) models.SimulationFailure {
	if errors.Is(err, ErrModelUnavailable) {
		return models.SimulationFailure{
			Error:      "Prediction model not available",
			Suggestion: SuggestUnavailable,
			Status:     models.StatusFailed,
		}
	}
	return models.SimulationFailure{
		Error:      err.Error(),
		Suggestion: SuggestInput,
		Status:     models.StatusFailed,
	}
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
