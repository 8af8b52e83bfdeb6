package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/molsim-ai/molsim/pkg/models"
	"github.com/molsim-ai/molsim/pkg/predict"
	"github.com/molsim-ai/molsim/pkg/validation"
)

const maxBodyBytes = 1 << 20

type errorDetail struct {
	Detail []validation.FieldError `json:"detail"`
}

type messageBody struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type clearBody struct {
	Status       string `json:"status"`
	DeletedCount int64  `json:"deleted_count"`
}

type healthBody struct {
	Status            string `json:"status"`
	Timestamp         string `json:"timestamp"`
	CacheEnabled      bool   `json:"cache_enabled"`
	HardwareAvailable bool   `json:"hardware_available"`
	ModelLoaded       bool   `json:"model_loaded"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	req := models.NewMoleculeRequest()
	if !decodeValid(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.sim.Simulate(r.Context(), req))
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var f models.PredictionFeatures
	if !decodeValid(w, r, &f) {
		return
	}
	res, err := s.predictor.Predict(f)
	if err != nil {
		if !errors.Is(err, predict.ErrModelUnavailable) {
			s.logger.Error("prediction failed", zap.Error(err))
		}
		writeJSON(w, http.StatusOK, predict.Failure(err))
		return
	}
	if s.metrics != nil {
		s.metrics.ObservePrediction(res.Prediction)
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleModelInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.predictor.Info())
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.sim.CacheStats(r.Context())
	if err != nil {
		s.logger.Error("cache stats failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, messageBody{Status: "error", Message: "cache unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, models.CacheStats{Entries: stats.Entries})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	n, err := s.sim.ClearCache(r.Context())
	if err != nil {
		s.logger.Error("cache clear failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, messageBody{Status: "error", Message: "cache unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, clearBody{Status: models.StatusSuccess, DeletedCount: n})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := healthBody{
		Status:       "healthy",
		Timestamp:    s.now().UTC().Format(time.RFC3339),
		CacheEnabled: s.sim.CacheEnabled(),
		ModelLoaded:  s.predictor.Loaded(),
	}
	if s.hardware != nil {
		body.HardwareAvailable = s.hardware.HardwareAvailable()
	}
	writeJSON(w, http.StatusOK, body)
}

// decodeValid decodes the JSON body into v and validates it. On failure it
// writes a 422 and returns false.
func decodeValid(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorDetail{Detail: []validation.FieldError{
			{Field: "body", Message: "invalid JSON: " + err.Error()},
		}})
		return false
	}
	if err := validation.Struct(v); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, errorDetail{Detail: verr.Fields})
			return false
		}
		writeJSON(w, http.StatusUnprocessableEntity, errorDetail{Detail: []validation.FieldError{
			{Field: "body", Message: err.Error()},
		}})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
