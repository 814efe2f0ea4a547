package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strings"
)

const defaultDetectorURL = "http://localhost:8000"

// HTTPDetector calls an InsightFace-style detection sidecar over HTTP. The
// sidecar accepts a multipart image upload and returns pixel bounding boxes
// with detection scores; embeddings in the response are ignored.
type HTTPDetector struct {
	baseURL string
	client  *http.Client
}

// NewHTTPDetector creates a detector client for the given base URL.
func NewHTTPDetector(baseURL string) *HTTPDetector {
	if baseURL == "" {
		baseURL = defaultDetectorURL
	}
	return &HTTPDetector{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
	}
}

// faceDetection represents a single detected face in the sidecar response
type faceDetection struct {
	BBox     []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore float64   `json:"det_score"`
}

// faceResponse represents the response from the face detection endpoint
type faceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
}

// Detect uploads the frame and converts the sidecar's pixel bounding boxes
// into clamped Boxes. Boxes that fall entirely outside the frame are
// dropped.
func (d *HTTPDetector) Detect(ctx context.Context, frame image.Image) ([]Box, error) {
	var img bytes.Buffer
	if err := png.Encode(&img, frame); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "frame.png")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(img.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/embed/face", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var faceResp faceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	bounds := frame.Bounds()
	boxes := make([]Box, 0, len(faceResp.Faces))
	for _, face := range faceResp.Faces {
		if len(face.BBox) != 4 {
			continue
		}
		rect := image.Rect(
			int(math.Round(face.BBox[0])),
			int(math.Round(face.BBox[1])),
			int(math.Round(face.BBox[2])),
			int(math.Round(face.BBox[3])),
		).Intersect(bounds)
		if rect.Empty() {
			continue
		}
		boxes = append(boxes, Box{Rect: rect, Score: face.DetScore})
	}
	return boxes, nil
}
