package detect

import (
	"context"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPDetectorParsesFaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed/face" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("failed to parse multipart form: %v", err)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"faces_count": 2,
			"faces": [
				{"face_index": 0, "bbox": [10.4, 20.6, 110.2, 120.8], "det_score": 0.95},
				{"face_index": 1, "bbox": [300, 50, 380, 130], "det_score": 0.81}
			],
			"model": "buffalo_l"
		}`))
	}))
	defer srv.Close()

	detector := NewHTTPDetector(srv.URL)
	frame := image.NewRGBA(image.Rect(0, 0, 640, 480))

	boxes, err := detector.Detect(context.Background(), frame)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(boxes) != 2 {
		t.Fatalf("got %d boxes, want 2", len(boxes))
	}

	want := image.Rect(10, 21, 110, 121)
	if boxes[0].Rect != want {
		t.Errorf("first box = %v, want %v", boxes[0].Rect, want)
	}
	if boxes[0].Score != 0.95 {
		t.Errorf("first score = %f, want 0.95", boxes[0].Score)
	}
}

func TestHTTPDetectorClampsToFrame(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"faces_count": 2,
			"faces": [
				{"bbox": [-20, -10, 50, 60], "det_score": 0.9},
				{"bbox": [700, 700, 800, 800], "det_score": 0.8}
			]
		}`))
	}))
	defer srv.Close()

	detector := NewHTTPDetector(srv.URL)
	frame := image.NewRGBA(image.Rect(0, 0, 640, 480))

	boxes, err := detector.Detect(context.Background(), frame)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	// The out-of-frame box is dropped, the partial one clamped.
	if len(boxes) != 1 {
		t.Fatalf("got %d boxes, want 1", len(boxes))
	}
	want := image.Rect(0, 0, 50, 60)
	if boxes[0].Rect != want {
		t.Errorf("clamped box = %v, want %v", boxes[0].Rect, want)
	}
}

func TestHTTPDetectorServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	detector := NewHTTPDetector(srv.URL)
	frame := image.NewRGBA(image.Rect(0, 0, 64, 64))

	if _, err := detector.Detect(context.Background(), frame); err == nil {
		t.Error("expected error on 500 response")
	}
}

func TestFullFrameDetect(t *testing.T) {
	tests := []struct {
		name   string
		margin float64
		want   image.Rectangle
	}{
		{"no margin", 0, image.Rect(0, 0, 200, 100)},
		{"ten percent margin", 0.1, image.Rect(20, 10, 180, 90)},
		{"margin clamped", 0.9, image.Rect(80, 40, 120, 60)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := image.NewGray(image.Rect(0, 0, 200, 100))
			boxes, err := FullFrame{Margin: tt.margin}.Detect(context.Background(), frame)
			if err != nil {
				t.Fatalf("Detect failed: %v", err)
			}
			if len(boxes) != 1 {
				t.Fatalf("got %d boxes, want 1", len(boxes))
			}
			if boxes[0].Rect != tt.want {
				t.Errorf("box = %v, want %v", boxes[0].Rect, tt.want)
			}
		})
	}
}

func TestScriptReplaysFrames(t *testing.T) {
	script := &Script{Frames: [][]Box{
		{{Rect: image.Rect(0, 0, 10, 10), Score: 0.5}},
		nil,
		{{Rect: image.Rect(5, 5, 15, 15), Score: 0.7}},
	}}
	frame := image.NewGray(image.Rect(0, 0, 64, 64))

	first, _ := script.Detect(context.Background(), frame)
	if len(first) != 1 || first[0].Score != 0.5 {
		t.Errorf("frame 1 = %+v", first)
	}

	second, _ := script.Detect(context.Background(), frame)
	if second != nil {
		t.Errorf("frame 2 = %+v, want nil", second)
	}

	// Past the end the final entry repeats.
	for i := 0; i < 3; i++ {
		last, _ := script.Detect(context.Background(), frame)
		if len(last) != 1 || last[0].Score != 0.7 {
			t.Errorf("frame %d = %+v, want final entry", 3+i, last)
		}
	}

	if got := script.Calls(); got != 5 {
		t.Errorf("Calls() = %d, want 5", got)
	}
}
