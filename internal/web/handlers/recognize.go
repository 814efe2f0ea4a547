package handlers

import (
	"errors"
	"fmt"
	"image"
	"net/http"

	log "github.com/sirupsen/logrus"

	// Probe uploads arrive as JPEG or PNG.
	_ "image/jpeg"
	_ "image/png"

	"github.com/kozaktomas/face-station/internal/constants"
	"github.com/kozaktomas/face-station/internal/detect"
	"github.com/kozaktomas/face-station/internal/recognizer"
)

// RecognizeHandler answers one-shot recognition requests against the
// current model.
type RecognizeHandler struct {
	engine   *recognizer.Engine
	detector detect.Detector
}

// NewRecognizeHandler creates a new recognition handler.
func NewRecognizeHandler(engine *recognizer.Engine, detector detect.Detector) *RecognizeHandler {
	return &RecognizeHandler{
		engine:   engine,
		detector: detector,
	}
}

// RecognizedFace represents a single recognized face in an image.
type RecognizedFace struct {
	Person     string  `json:"person,omitempty"`
	Known      bool    `json:"known"`
	Distance   float64 `json:"distance"`
	Confidence float64 `json:"confidence"`
	Nearest    string  `json:"nearest,omitempty"`
	Box        []int   `json:"box"`
}

// RecognizeResponse represents the recognition response for one image.
type RecognizeResponse struct {
	Faces        []RecognizedFace `json:"faces"`
	ModelVersion int              `json:"model_version"`
}

// recognizedFace converts an engine result to its JSON view. The box is
// flattened to [x0, y0, x1, y1] in probe pixel coordinates.
func recognizedFace(result recognizer.Result) RecognizedFace {
	return RecognizedFace{
		Person:     result.Person,
		Known:      result.Known,
		Distance:   result.Distance,
		Confidence: result.Confidence,
		Nearest:    result.Nearest,
		Box: []int{
			result.Box.Min.X, result.Box.Min.Y,
			result.Box.Max.X, result.Box.Max.Y,
		},
	}
}

// decodeUploadedFrame reads a single image from the "file" multipart field.
func decodeUploadedFrame(r *http.Request) (image.Image, error) {
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		return nil, errors.New("failed to parse multipart form")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, errors.New("file is required")
	}
	defer file.Close()

	frame, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s", sanitizeForLog(header.Filename))
	}
	return frame, nil
}

// Recognize detects faces in an uploaded image and matches each against
// the current model.
func (h *RecognizeHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	if !h.engine.HasModel() {
		respondError(w, http.StatusConflict, recognizer.ErrNoModelLoaded.Error())
		return
	}

	frame, err := decodeUploadedFrame(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	boxes, err := h.detector.Detect(r.Context(), frame)
	if err != nil {
		log.WithError(err).Warn("face detection failed")
		respondError(w, http.StatusBadGateway, "face detection failed")
		return
	}
	boxes = detect.NonMaxSuppression(boxes, constants.NMSIoUThreshold)

	resp := RecognizeResponse{Faces: []RecognizedFace{}}
	for _, box := range boxes {
		result, err := h.engine.Recognize(frame, box.Rect)
		if err != nil {
			if errors.Is(err, recognizer.ErrNoModelLoaded) {
				respondError(w, http.StatusConflict, err.Error())
				return
			}
			log.WithError(err).Debug("skipping unprocessable face box")
			continue
		}
		resp.Faces = append(resp.Faces, recognizedFace(result))
	}
	if m := h.engine.Current(); m != nil {
		resp.ModelVersion = m.Version()
	}

	respondJSON(w, http.StatusOK, resp)
}
