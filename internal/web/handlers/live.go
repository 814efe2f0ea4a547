package handlers

import (
	"errors"
	"net/http"

	"github.com/kozaktomas/face-station/internal/enroll"
	"github.com/kozaktomas/face-station/internal/recognizer"
)

// LiveHandler toggles live recognition on the frame loop.
type LiveHandler struct {
	manager *enroll.Manager
}

// NewLiveHandler creates a new live recognition handler.
func NewLiveHandler(manager *enroll.Manager) *LiveHandler {
	return &LiveHandler{
		manager: manager,
	}
}

// Start enables recognition on idle frames. Fails when no model is loaded.
func (h *LiveHandler) Start(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.StartLiveRecognition(); err != nil {
		if errors.Is(err, recognizer.ErrNoModelLoaded) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, h.manager.Status())
}

// Stop disables recognition on idle frames.
func (h *LiveHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.manager.StopLiveRecognition()
	respondJSON(w, http.StatusOK, h.manager.Status())
}
