package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-station/internal/capture"
	"github.com/kozaktomas/face-station/internal/enroll"
)

func TestStatusHandler_Idle(t *testing.T) {
	station := newTestStation(t)
	handler := NewStatusHandler(station.manager, station.store)

	req := httptest.NewRequest("GET", "/api/v1/status", nil)
	recorder := httptest.NewRecorder()

	handler.Status(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")

	var resp StatusResponse
	parseJSONResponse(t, recorder, &resp)

	if resp.Status != enroll.StatusIdle {
		t.Errorf("expected status '%s', got '%s'", enroll.StatusIdle, resp.Status)
	}
	if resp.People != 0 || resp.TotalSamples != 0 {
		t.Errorf("expected an empty dataset, got people=%d samples=%d", resp.People, resp.TotalSamples)
	}
}

func TestStatusHandler_DuringCapture(t *testing.T) {
	station := newTestStation(t)
	seedPerson(t, station.store, "alice", grayChecker, 2)

	if _, err := station.manager.StartCapture("bob", capture.ModeManual); err != nil {
		t.Fatalf("failed to start session: %v", err)
	}

	handler := NewStatusHandler(station.manager, station.store)

	req := httptest.NewRequest("GET", "/api/v1/status", nil)
	recorder := httptest.NewRecorder()

	handler.Status(recorder, req)

	var resp StatusResponse
	parseJSONResponse(t, recorder, &resp)

	if resp.Status != enroll.StatusCapturing {
		t.Errorf("expected status '%s', got '%s'", enroll.StatusCapturing, resp.Status)
	}
	if resp.Person != "bob" {
		t.Errorf("expected person 'bob', got '%s'", resp.Person)
	}
	if resp.Mode != capture.ModeManual {
		t.Errorf("expected manual mode, got '%s'", resp.Mode)
	}
	if resp.People != 1 || resp.TotalSamples != 2 {
		t.Errorf("expected 1 person with 2 samples, got people=%d samples=%d", resp.People, resp.TotalSamples)
	}
}
