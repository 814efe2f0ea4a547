package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-station/internal/detect"
	"github.com/kozaktomas/face-station/internal/enroll"
	"github.com/kozaktomas/face-station/internal/recognizer"
	"github.com/kozaktomas/face-station/internal/store"
)

// testStation bundles the components the handlers operate on, backed by a
// temporary sample directory.
type testStation struct {
	store   *store.Store
	engine  *recognizer.Engine
	manager *enroll.Manager
}

func newTestStation(t *testing.T) *testStation {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	engine := recognizer.NewEngine()
	manager := enroll.NewManager(st, recognizer.NewTrainer(0), engine, enroll.Options{Target: 3})
	return &testStation{store: st, engine: engine, manager: manager}
}

// grayChecker builds a high-contrast checkerboard sample. The phase shifts
// the pattern so consecutive samples differ.
func grayChecker(phase int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 128, 128))
	for y := range 128 {
		for x := range 128 {
			v := uint8(25)
			if ((x+phase*3)/16+y/16)%2 == 0 {
				v = 230
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

// grayStripes builds a vertical stripe sample, texturally distinct from
// grayChecker.
func grayStripes(phase int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 128, 128))
	for y := range 128 {
		for x := range 128 {
			v := uint8(30)
			if ((x+phase*2)/4)%2 == 0 {
				v = 220
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

// seedPerson stores n samples for a person directly, bypassing the capture
// quality gates.
func seedPerson(t *testing.T, st *store.Store, person string, frame func(int) *image.Gray, n int) {
	t.Helper()
	for i := range n {
		if _, err := st.Add(person, "seed-"+person, frame(i), time.Now()); err != nil {
			t.Fatalf("failed to seed sample for %s: %v", person, err)
		}
	}
}

// trainStation trains a model over the seeded store and installs it.
func trainStation(t *testing.T, s *testStation) *recognizer.Model {
	t.Helper()
	version := 1
	if m := s.engine.Current(); m != nil {
		version = m.Version() + 1
	}
	model, err := recognizer.NewTrainer(0).Train(s.store, version)
	if err != nil {
		t.Fatalf("training failed: %v", err)
	}
	s.engine.Swap(model)
	return model
}

// stubDetector returns a fixed answer for every frame.
type stubDetector struct {
	boxes []detect.Box
	err   error
}

func (d *stubDetector) Detect(_ context.Context, _ image.Image) ([]detect.Box, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.boxes, nil
}

// fullFrameBox covers the whole 128x128 sample area.
func fullFrameBox() []detect.Box {
	return []detect.Box{{Rect: image.Rect(0, 0, 128, 128), Score: 0.99}}
}

// jsonRequest creates a request with a JSON body
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartFrameRequest creates a request with a PNG frame in the "file" field
func multipartFrameRequest(t *testing.T, path string, img image.Image) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "frame.png")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if err := png.Encode(part, img); err != nil {
		t.Fatalf("failed to encode frame: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
