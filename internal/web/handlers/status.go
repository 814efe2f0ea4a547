package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-station/internal/enroll"
	"github.com/kozaktomas/face-station/internal/store"
)

// StatusHandler reports the state machine and dataset status.
type StatusHandler struct {
	manager *enroll.Manager
	store   *store.Store
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(manager *enroll.Manager, st *store.Store) *StatusHandler {
	return &StatusHandler{
		manager: manager,
		store:   st,
	}
}

// StatusResponse combines the state machine snapshot with dataset totals.
type StatusResponse struct {
	enroll.Snapshot
	People       int `json:"people"`
	TotalSamples int `json:"total_samples"`
}

// Status returns what the system is doing right now.
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, StatusResponse{
		Snapshot:     h.manager.Status(),
		People:       len(h.store.People()),
		TotalSamples: h.store.TotalSamples(),
	})
}
