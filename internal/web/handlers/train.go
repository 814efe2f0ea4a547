package handlers

import (
	"errors"
	"net/http"

	"github.com/kozaktomas/face-station/internal/enroll"
)

// TrainHandler triggers model retraining.
type TrainHandler struct {
	manager *enroll.Manager
}

// NewTrainHandler creates a new training handler.
func NewTrainHandler(manager *enroll.Manager) *TrainHandler {
	return &TrainHandler{
		manager: manager,
	}
}

// Train starts a background retraining run over all stored samples.
// Progress and the final result arrive on the event stream.
func (h *TrainHandler) Train(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.manager.TrainNow()
	if err != nil {
		if errors.Is(err, enroll.ErrInvalidTransition) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, snapshot)
}
