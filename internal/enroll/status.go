package enroll

import "time"

// Status is the enrollment state machine's current state.
type Status string

// Enrollment states. Idle is the initial state; errors always land back in
// Idle with the failure recorded, never in a stuck intermediate state.
const (
	StatusIdle       Status = "idle"
	StatusCapturing  Status = "capturing"
	StatusRetraining Status = "retraining"
)

// EventType identifies a lifecycle event on the event stream.
type EventType string

// Event types emitted by the manager.
const (
	EventSessionStarted   EventType = "session_started"
	EventSampleAccepted   EventType = "sample_accepted"
	EventCaptureComplete  EventType = "capture_complete"
	EventCaptureFailed    EventType = "capture_failed"
	EventSessionCancelled EventType = "session_cancelled"
	EventModeChanged      EventType = "mode_changed"
	EventTrainingStarted  EventType = "training_started"
	EventTrainingComplete EventType = "training_complete"
	EventTrainingFailed   EventType = "training_failed"
	EventRecognition      EventType = "recognition"
)

// Event is one entry on the enrollment event stream.
type Event struct {
	Type    EventType `json:"type"`
	Message string    `json:"message,omitempty"`
	Data    any       `json:"data,omitempty"`
	At      time.Time `json:"at"`
}
