package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/kozaktomas/face-station/internal/capture"
	"github.com/kozaktomas/face-station/internal/constants"
	"github.com/kozaktomas/face-station/internal/detect"
	"github.com/kozaktomas/face-station/internal/enroll"
)

// EnrollHandler drives the enrollment state machine over HTTP.
type EnrollHandler struct {
	manager  *enroll.Manager
	detector detect.Detector
}

// NewEnrollHandler creates a new enrollment handler.
func NewEnrollHandler(manager *enroll.Manager, detector detect.Detector) *EnrollHandler {
	return &EnrollHandler{
		manager:  manager,
		detector: detector,
	}
}

// StartEnrollRequest represents an enrollment start request.
type StartEnrollRequest struct {
	Person string `json:"person"`
	Mode   string `json:"mode,omitempty"`
}

// KeyRequest represents an operator keypress forwarded to the session.
type KeyRequest struct {
	Key string `json:"key"`
}

// FrameVerdict is the JSON view of a capture verdict, without the stored
// sample pixels.
type FrameVerdict struct {
	Accepted  bool   `json:"accepted"`
	Reason    string `json:"reason,omitempty"`
	Done      bool   `json:"done"`
	Exhausted bool   `json:"exhausted"`
}

// FrameResponse reports what one pushed frame produced.
type FrameResponse struct {
	Snapshot enroll.Snapshot  `json:"snapshot"`
	Capture  *FrameVerdict    `json:"capture,omitempty"`
	Faces    []RecognizedFace `json:"faces,omitempty"`
}

// Start begins an enrollment session.
func (h *EnrollHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartEnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Person == "" {
		respondError(w, http.StatusBadRequest, "person is required")
		return
	}
	mode, err := capture.ParseMode(req.Mode)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	snapshot, err := h.manager.StartCapture(req.Person, mode)
	if err != nil {
		if errors.Is(err, enroll.ErrSessionActive) || errors.Is(err, enroll.ErrInvalidTransition) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	log.WithField("person", sanitizeForLog(req.Person)).Info("enrollment started via API")
	respondJSON(w, http.StatusOK, snapshot)
}

// Cancel aborts the running enrollment session and discards its samples.
func (h *EnrollHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.manager.CancelEnrollment()
	if err != nil {
		if errors.Is(err, enroll.ErrNoSession) || errors.Is(err, enroll.ErrInvalidTransition) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}

// Key forwards an operator keypress to the running session.
func (h *EnrollHandler) Key(w http.ResponseWriter, r *http.Request) {
	var req KeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Key == "" {
		respondError(w, http.StatusBadRequest, "key is required")
		return
	}

	if err := h.manager.HandleKey(req.Key); err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, h.manager.Status())
}

// Frame accepts one camera frame as a multipart upload and feeds it
// through detection and the state machine, so a remote camera can drive
// both enrollment and live recognition.
func (h *EnrollHandler) Frame(w http.ResponseWriter, r *http.Request) {
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

	tick, err := h.manager.HandleFrame(frame, boxes)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := FrameResponse{Snapshot: tick.Snapshot}
	if v := tick.Capture; v != nil {
		resp.Capture = &FrameVerdict{
			Accepted:  v.Accepted,
			Reason:    string(v.Reason),
			Done:      v.Done,
			Exhausted: v.Exhausted,
		}
	}
	for _, result := range tick.Results {
		resp.Faces = append(resp.Faces, recognizedFace(result))
	}
	respondJSON(w, http.StatusOK, resp)
}

// Events streams enrollment lifecycle events as server-sent events until
// the client disconnects. The first event is always the current status.
func (h *EnrollHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := setupSSEConnection(w)
	if !ok {
		return
	}

	events := h.manager.Events().AddListener()
	defer h.manager.Events().RemoveListener(events)

	sendSSEEvent(w, flusher, "status", h.manager.Status())

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, string(event.Type), event)
		}
	}
}
