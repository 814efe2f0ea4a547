package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func corsHandler() http.Handler {
	return CORS()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestCORS_LocalhostAlwaysAllowed(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/status", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	recorder := httptest.NewRecorder()

	corsHandler().ServeHTTP(recorder, req)

	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("expected origin echoed back, got '%s'", got)
	}
}

func TestCORS_UnknownOriginGetsNoAllowHeader(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/status", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	recorder := httptest.NewRecorder()

	corsHandler().ServeHTTP(recorder, req)

	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no allow-origin header, got '%s'", got)
	}
}

func TestCORS_WhitelistedOrigin(t *testing.T) {
	t.Setenv("FACE_STATION_ALLOWED_ORIGINS", "https://faces.example.com, https://other.example.com")

	req := httptest.NewRequest("GET", "/api/v1/status", nil)
	req.Header.Set("Origin", "https://faces.example.com")
	recorder := httptest.NewRecorder()

	corsHandler().ServeHTTP(recorder, req)

	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "https://faces.example.com" {
		t.Errorf("expected whitelisted origin echoed back, got '%s'", got)
	}
}

func TestCORS_PreflightShortCircuits(t *testing.T) {
	called := false
	handler := CORS()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/enroll/start", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}
	if called {
		t.Error("preflight request must not reach the next handler")
	}
}
