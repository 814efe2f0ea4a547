package handlers

import (
	"net/http"
	"time"

	"github.com/kozaktomas/face-station/internal/recognizer"
)

// ModelHandler serves metadata about the currently loaded model.
type ModelHandler struct {
	engine *recognizer.Engine
}

// NewModelHandler creates a new model handler.
func NewModelHandler(engine *recognizer.Engine) *ModelHandler {
	return &ModelHandler{
		engine: engine,
	}
}

// ModelResponse represents the loaded model's metadata.
type ModelResponse struct {
	Version    int                   `json:"version"`
	BuildID    string                `json:"build_id"`
	TrainedAt  time.Time             `json:"trained_at"`
	Threshold  float64               `json:"threshold"`
	FeatureDim int                   `json:"feature_dim"`
	People     []string              `json:"people"`
	Samples    int                   `json:"samples"`
	Stats      recognizer.TrainStats `json:"stats"`
}

// Get returns the current model's metadata, or 404 when no model has been
// trained or loaded yet.
func (h *ModelHandler) Get(w http.ResponseWriter, r *http.Request) {
	m := h.engine.Current()
	if m == nil {
		respondError(w, http.StatusNotFound, "no model available")
		return
	}

	respondJSON(w, http.StatusOK, ModelResponse{
		Version:    m.Version(),
		BuildID:    m.BuildID(),
		TrainedAt:  m.TrainedAt(),
		Threshold:  m.Threshold(),
		FeatureDim: m.FeatureDim(),
		People:     m.People(),
		Samples:    m.Size(),
		Stats:      m.Stats(),
	})
}
