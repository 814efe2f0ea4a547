package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-station/internal/recognizer"
	"github.com/kozaktomas/face-station/internal/store"
)

// PeopleHandler serves the enrolled-people inventory.
type PeopleHandler struct {
	store  *store.Store
	engine *recognizer.Engine
}

// NewPeopleHandler creates a new people handler.
func NewPeopleHandler(st *store.Store, engine *recognizer.Engine) *PeopleHandler {
	return &PeopleHandler{
		store:  st,
		engine: engine,
	}
}

// PersonSummary represents one enrolled person. Label is -1 when the
// person has not yet been trained into the current model.
type PersonSummary struct {
	Name    string `json:"name"`
	Samples int    `json:"samples"`
	Trained bool   `json:"trained"`
	Label   int    `json:"label"`
}

// PeopleResponse represents the list of enrolled people.
type PeopleResponse struct {
	People []PersonSummary `json:"people"`
	Total  int             `json:"total"`
}

// SampleSummary represents one stored sample without its pixels.
type SampleSummary struct {
	Seq       int       `json:"seq"`
	SessionID string    `json:"session_id"`
	At        time.Time `json:"at"`
}

// PersonDetail represents one person with their sample history.
type PersonDetail struct {
	PersonSummary
	SampleList []SampleSummary `json:"sample_list"`
}

func (h *PeopleHandler) summarize(name string) PersonSummary {
	summary := PersonSummary{
		Name:    name,
		Samples: h.store.Count(name),
		Label:   -1,
	}
	if m := h.engine.Current(); m != nil {
		if label, ok := m.LabelFor(name); ok {
			summary.Trained = true
			summary.Label = label
		}
	}
	return summary
}

// List returns every enrolled person with sample counts and model labels.
func (h *PeopleHandler) List(w http.ResponseWriter, r *http.Request) {
	names := h.store.People()
	people := make([]PersonSummary, 0, len(names))
	for _, name := range names {
		people = append(people, h.summarize(name))
	}
	respondJSON(w, http.StatusOK, PeopleResponse{
		People: people,
		Total:  len(people),
	})
}

// Get returns one person with their sample history.
func (h *PeopleHandler) Get(w http.ResponseWriter, r *http.Request) {
	name, err := store.CanonicalName(chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	samples := h.store.Samples(name)
	if len(samples) == 0 {
		respondError(w, http.StatusNotFound, fmt.Sprintf("unknown person: %s", sanitizeForLog(name)))
		return
	}

	detail := PersonDetail{
		PersonSummary: h.summarize(name),
		SampleList:    make([]SampleSummary, 0, len(samples)),
	}
	for _, sample := range samples {
		detail.SampleList = append(detail.SampleList, SampleSummary{
			Seq:       sample.Seq,
			SessionID: sample.SessionID,
			At:        sample.At,
		})
	}
	respondJSON(w, http.StatusOK, detail)
}
