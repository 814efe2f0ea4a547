package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPeopleHandler_List_Empty(t *testing.T) {
	station := newTestStation(t)
	handler := NewPeopleHandler(station.store, station.engine)

	req := httptest.NewRequest("GET", "/api/v1/people", nil)
	recorder := httptest.NewRecorder()

	handler.List(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var resp PeopleResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Total != 0 || len(resp.People) != 0 {
		t.Errorf("expected an empty inventory, got total=%d people=%v", resp.Total, resp.People)
	}
}

func TestPeopleHandler_List_WithModelLabels(t *testing.T) {
	station := newTestStation(t)
	seedPerson(t, station.store, "alice", grayChecker, 3)
	seedPerson(t, station.store, "bob", grayStripes, 2)
	trainStation(t, station)

	handler := NewPeopleHandler(station.store, station.engine)

	req := httptest.NewRequest("GET", "/api/v1/people", nil)
	recorder := httptest.NewRecorder()

	handler.List(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var resp PeopleResponse
	parseJSONResponse(t, recorder, &resp)

	if resp.Total != 2 {
		t.Fatalf("expected 2 people, got %d", resp.Total)
	}
	alice, bob := resp.People[0], resp.People[1]
	if alice.Name != "alice" || bob.Name != "bob" {
		t.Fatalf("expected sorted names [alice bob], got [%s %s]", alice.Name, bob.Name)
	}
	if alice.Samples != 3 || bob.Samples != 2 {
		t.Errorf("expected sample counts 3 and 2, got %d and %d", alice.Samples, bob.Samples)
	}
	if !alice.Trained || alice.Label != 0 {
		t.Errorf("expected alice trained with label 0, got trained=%t label=%d", alice.Trained, alice.Label)
	}
	if !bob.Trained || bob.Label != 1 {
		t.Errorf("expected bob trained with label 1, got trained=%t label=%d", bob.Trained, bob.Label)
	}
}

func TestPeopleHandler_List_UntrainedPerson(t *testing.T) {
	station := newTestStation(t)
	seedPerson(t, station.store, "alice", grayChecker, 2)
	seedPerson(t, station.store, "bob", grayStripes, 2)
	trainStation(t, station)
	seedPerson(t, station.store, "carol", grayNoise, 2)

	handler := NewPeopleHandler(station.store, station.engine)

	req := httptest.NewRequest("GET", "/api/v1/people", nil)
	recorder := httptest.NewRecorder()

	handler.List(recorder, req)

	var resp PeopleResponse
	parseJSONResponse(t, recorder, &resp)

	if resp.Total != 3 {
		t.Fatalf("expected 3 people, got %d", resp.Total)
	}
	carol := resp.People[2]
	if carol.Name != "carol" {
		t.Fatalf("expected carol last, got '%s'", carol.Name)
	}
	if carol.Trained || carol.Label != -1 {
		t.Errorf("carol is not in the model yet, got trained=%t label=%d", carol.Trained, carol.Label)
	}
}

func TestPeopleHandler_Get_Success(t *testing.T) {
	station := newTestStation(t)
	seedPerson(t, station.store, "alice", grayChecker, 2)
	trainStation(t, station)

	handler := NewPeopleHandler(station.store, station.engine)

	req := httptest.NewRequest("GET", "/api/v1/people/Alice", nil)
	req = requestWithChiParams(req, map[string]string{"name": "Alice"})
	recorder := httptest.NewRecorder()

	handler.Get(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var detail PersonDetail
	parseJSONResponse(t, recorder, &detail)

	if detail.Name != "alice" {
		t.Errorf("expected canonical name 'alice', got '%s'", detail.Name)
	}
	if len(detail.SampleList) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(detail.SampleList))
	}
	if detail.SampleList[0].Seq != 1 || detail.SampleList[1].Seq != 2 {
		t.Errorf("expected sample seqs [1 2], got [%d %d]", detail.SampleList[0].Seq, detail.SampleList[1].Seq)
	}
	if detail.SampleList[0].SessionID != "seed-alice" {
		t.Errorf("expected session 'seed-alice', got '%s'", detail.SampleList[0].SessionID)
	}
}

func TestPeopleHandler_Get_NotFound(t *testing.T) {
	station := newTestStation(t)
	handler := NewPeopleHandler(station.store, station.engine)

	req := httptest.NewRequest("GET", "/api/v1/people/nobody", nil)
	req = requestWithChiParams(req, map[string]string{"name": "nobody"})
	recorder := httptest.NewRecorder()

	handler.Get(recorder, req)

	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestPeopleHandler_Get_InvalidName(t *testing.T) {
	station := newTestStation(t)
	handler := NewPeopleHandler(station.store, station.engine)

	req := httptest.NewRequest("GET", "/api/v1/people/%3F%3F%3F", nil)
	req = requestWithChiParams(req, map[string]string{"name": "???"})
	recorder := httptest.NewRecorder()

	handler.Get(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
}
