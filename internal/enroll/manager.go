// Package enroll implements the enrollment state machine that ties capture,
// training and recognition together: Idle -> Capturing -> Retraining ->
// Idle, with every failure path landing back in Idle and the previous model
// left untouched.
package enroll

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/dustin/go-humanize/english"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/kozaktomas/face-station/internal/capture"
	"github.com/kozaktomas/face-station/internal/detect"
	"github.com/kozaktomas/face-station/internal/recognizer"
	"github.com/kozaktomas/face-station/internal/store"
)

// Transition errors. Callers match with errors.Is.
var (
	ErrSessionActive     = errors.New("enrollment session already active")
	ErrNoSession         = errors.New("no active enrollment session")
	ErrInvalidTransition = errors.New("invalid enrollment transition")
)

// Options configures a Manager. Zero values select defaults; an empty
// ModelDir disables model persistence.
type Options struct {
	ModelDir      string
	Mode          capture.Mode
	Target        int
	MinFaceSize   int
	BlurThreshold float64
	MinPixelDiff  float64
}

// Tick is what one frame produced: a capture verdict while enrolling, or
// recognition results while idle with live recognition on. The snapshot
// reflects the state after the frame was handled.
type Tick struct {
	Snapshot Snapshot
	Capture  *capture.Verdict
	Results  []recognizer.Result
}

// Snapshot is a point-in-time view of the state machine for status
// endpoints and CLI output.
type Snapshot struct {
	Status          Status           `json:"status"`
	Person          string           `json:"person,omitempty"`
	SessionID       string           `json:"session_id,omitempty"`
	Mode            capture.Mode     `json:"mode,omitempty"`
	Accepted        int              `json:"accepted"`
	Target          int              `json:"target"`
	FramesSeen      int              `json:"frames_seen"`
	LiveRecognition bool             `json:"live_recognition"`
	ModelVersion    int              `json:"model_version"`
	ModelPeople     int              `json:"model_people"`
	LastError       string           `json:"last_error,omitempty"`
	LastOutcome     *capture.Outcome `json:"last_outcome,omitempty"`
}

// Manager is the enrollment state machine. All transitions are serialized
// under one mutex; the only work that runs outside it is the training
// itself, which ends in the engine's atomic model swap.
type Manager struct {
	mu          sync.Mutex
	status      Status
	session     *capture.Controller
	live        bool
	lastErr     error
	lastOutcome *capture.Outcome

	store   *store.Store
	trainer *recognizer.Trainer
	engine  *recognizer.Engine
	opts    Options
	events  *Broadcaster

	wg sync.WaitGroup
}

// NewManager wires the state machine over its collaborators. The engine may
// already hold a model loaded from disk.
func NewManager(st *store.Store, trainer *recognizer.Trainer, engine *recognizer.Engine, opts Options) *Manager {
	return &Manager{
		status:  StatusIdle,
		store:   st,
		trainer: trainer,
		engine:  engine,
		opts:    opts,
		events:  &Broadcaster{},
	}
}

// Events returns the broadcaster carrying enrollment lifecycle events.
func (m *Manager) Events() *Broadcaster {
	return m.events
}

// StartCapture begins an enrollment session for a person. The name is
// canonicalized first; the same person enrolled twice extends their sample
// set. Fails when a session is already active or retraining is running.
func (m *Manager) StartCapture(person string, mode capture.Mode) (Snapshot, error) {
	canonical, err := store.CanonicalName(person)
	if err != nil {
		return Snapshot{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.status {
	case StatusCapturing:
		return m.snapshotLocked(), ErrSessionActive
	case StatusRetraining:
		return m.snapshotLocked(), fmt.Errorf("%w: cannot start capture while retraining", ErrInvalidTransition)
	}

	if mode == "" {
		mode = m.opts.Mode
	}
	session, err := capture.New(capture.Config{
		Person:        canonical,
		SessionID:     uuid.New().String(),
		Mode:          mode,
		Target:        m.opts.Target,
		MinFaceSize:   m.opts.MinFaceSize,
		BlurThreshold: m.opts.BlurThreshold,
		MinPixelDiff:  m.opts.MinPixelDiff,
	}, m.store)
	if err != nil {
		return m.snapshotLocked(), err
	}

	m.session = session
	m.status = StatusCapturing
	m.lastErr = nil

	log.WithFields(log.Fields{
		"person":  canonical,
		"session": session.SessionID(),
		"mode":    session.Mode(),
		"target":  session.Target(),
	}).Info("capture session started")
	m.events.Send(Event{Type: EventSessionStarted, Data: map[string]any{
		"person":     canonical,
		"session_id": session.SessionID(),
		"mode":       session.Mode(),
		"target":     session.Target(),
	}})

	return m.snapshotLocked(), nil
}

// HandleFrame feeds one frame through the machine: to the capture session
// while enrolling, to the recognition engine while idle with live
// recognition enabled. Recognition keeps serving from the current model
// even while retraining runs in the background.
func (m *Manager) HandleFrame(frame image.Image, boxes []detect.Box) (Tick, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var tick Tick

	switch {
	case m.status == StatusCapturing:
		verdict, err := m.session.Offer(frame, boxes)
		if err != nil {
			tick.Snapshot = m.snapshotLocked()
			return tick, err
		}
		tick.Capture = &verdict

		if verdict.Accepted {
			m.events.Send(Event{Type: EventSampleAccepted, Data: map[string]any{
				"person":   m.session.Person(),
				"accepted": m.session.Accepted(),
				"target":   m.session.Target(),
			}})
		}
		switch {
		case verdict.Done:
			m.completeCaptureLocked()
		case verdict.Exhausted:
			m.failCaptureLocked()
		}

	case m.live && len(boxes) > 0 && m.engine.HasModel():
		results := make([]recognizer.Result, 0, len(boxes))
		for _, box := range boxes {
			result, err := m.engine.Recognize(frame, box.Rect)
			if err != nil {
				log.WithError(err).Debug("skipping unprocessable face box")
				continue
			}
			results = append(results, result)
		}
		tick.Results = results
		if len(results) > 0 {
			m.events.Send(Event{Type: EventRecognition, Data: results})
		}
	}

	tick.Snapshot = m.snapshotLocked()
	return tick, nil
}

// HandleKey feeds an operator keypress into the running capture session:
// "s" marks the next frame for sampling, space toggles auto/manual, "q"
// cancels. Other keys are ignored.
func (m *Manager) HandleKey(key string) error {
	if key == "q" {
		_, err := m.CancelEnrollment()
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != StatusCapturing {
		return ErrNoSession
	}

	switch key {
	case "s":
		m.session.Mark()
	case " ", "space":
		mode := m.session.ToggleMode()
		m.events.Send(Event{Type: EventModeChanged, Data: map[string]any{"mode": mode}})
	}
	return nil
}

// CancelEnrollment aborts the running capture session and discards every
// sample it stored, leaving both the sample store and the current model as
// they were before the session. Only valid while capturing.
func (m *Manager) CancelEnrollment() (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status == StatusRetraining {
		return m.snapshotLocked(), fmt.Errorf("%w: cannot cancel while retraining", ErrInvalidTransition)
	}
	if m.status != StatusCapturing {
		return m.snapshotLocked(), ErrNoSession
	}

	outcome := m.session.Outcome()
	sessionID := m.session.SessionID()
	m.session = nil
	m.status = StatusIdle
	m.lastErr = nil
	m.lastOutcome = &outcome

	if err := m.store.DiscardSession(sessionID); err != nil {
		log.WithError(err).Error("failed to discard session samples")
		return m.snapshotLocked(), err
	}

	log.WithFields(log.Fields{
		"person":    outcome.Person,
		"discarded": outcome.Accepted,
	}).Info("capture session cancelled")
	m.events.Send(Event{
		Type:    EventSessionCancelled,
		Message: fmt.Sprintf("discarded %s", english.Plural(outcome.Accepted, "sample", "")),
		Data:    outcome,
	})

	return m.snapshotLocked(), nil
}

// TrainNow starts a full retrain from Idle without a capture session, e.g.
// after external dataset edits.
func (m *Manager) TrainNow() (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusIdle {
		return m.snapshotLocked(), fmt.Errorf("%w: cannot train while %s", ErrInvalidTransition, m.status)
	}
	m.beginRetrainingLocked()
	return m.snapshotLocked(), nil
}

// StartLiveRecognition enables recognition on idle frames. Fails with
// ErrNoModelLoaded when nothing has been trained or loaded yet.
func (m *Manager) StartLiveRecognition() error {
	if !m.engine.HasModel() {
		return recognizer.ErrNoModelLoaded
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.live = true
	return nil
}

// StopLiveRecognition disables recognition on idle frames.
func (m *Manager) StopLiveRecognition() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.live = false
}

// Status returns a snapshot of the state machine.
func (m *Manager) Status() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// LastError returns the failure recorded by the most recent session or
// training run, nil after a success or cancel.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Wait blocks until background retraining, if any, has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// completeCaptureLocked moves Capturing -> Retraining after the session hit
// its target.
func (m *Manager) completeCaptureLocked() {
	outcome := m.session.Outcome()
	m.session = nil
	m.lastOutcome = &outcome

	log.WithFields(log.Fields{
		"person":   outcome.Person,
		"accepted": outcome.Accepted,
		"frames":   outcome.FramesSeen,
	}).Info("capture session complete")
	m.events.Send(Event{
		Type:    EventCaptureComplete,
		Message: fmt.Sprintf("captured %s for %s", english.Plural(outcome.Accepted, "sample", ""), outcome.Person),
		Data:    outcome,
	})

	m.beginRetrainingLocked()
}

// failCaptureLocked moves Capturing -> Idle(error) after the frame budget
// ran out. The partial session is discarded so a failed enrollment can
// never poison a later training run.
func (m *Manager) failCaptureLocked() {
	outcome := m.session.Outcome()
	sessionID := m.session.SessionID()
	m.session = nil
	m.status = StatusIdle
	m.lastOutcome = &outcome
	m.lastErr = fmt.Errorf("%w: captured %d of %d before the frame budget ran out",
		recognizer.ErrInsufficientSamples, outcome.Accepted, outcome.Target)

	if err := m.store.DiscardSession(sessionID); err != nil {
		log.WithError(err).Error("failed to discard exhausted session samples")
	}

	log.WithFields(log.Fields{
		"person":   outcome.Person,
		"accepted": outcome.Accepted,
		"target":   outcome.Target,
	}).Warn("capture session exhausted frame budget")
	m.events.Send(Event{
		Type:    EventCaptureFailed,
		Message: m.lastErr.Error(),
		Data:    outcome,
	})
}

// beginRetrainingLocked moves to Retraining and launches the training run
// in the background. The frame loop keeps serving recognition from the
// current model until the new one is swapped in.
func (m *Manager) beginRetrainingLocked() {
	m.status = StatusRetraining

	version := 1
	if cur := m.engine.Current(); cur != nil {
		version = cur.Version() + 1
	}

	m.events.Send(Event{Type: EventTrainingStarted, Data: map[string]any{"version": version}})

	m.wg.Add(1)
	go m.runTraining(version)
}

func (m *Manager) runTraining(version int) {
	defer m.wg.Done()

	model, err := m.trainer.Train(m.store, version)
	if err == nil && m.opts.ModelDir != "" {
		if saveErr := recognizer.SaveModel(model, m.opts.ModelDir); saveErr != nil {
			// The in-memory model is complete; losing persistence is not a
			// reason to keep serving the old one.
			log.WithError(saveErr).Error("failed to persist model artifacts")
		}
	}
	m.finishTraining(model, err)
}

// finishTraining is the error-path and success-path join: on failure the
// engine keeps its previous model untouched; on success the swap of the
// model handle is the single synchronization point.
func (m *Manager) finishTraining(model *recognizer.Model, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.status = StatusIdle
	if err != nil {
		m.lastErr = err
		log.WithError(err).Warn("training failed")
		m.events.Send(Event{Type: EventTrainingFailed, Message: err.Error()})
		return
	}

	m.lastErr = nil
	m.engine.Swap(model)

	stats := model.Stats()
	log.WithFields(log.Fields{
		"version": model.Version(),
		"people":  stats.People,
		"samples": stats.Samples,
	}).Info("model swapped in")
	m.events.Send(Event{Type: EventTrainingComplete, Data: map[string]any{
		"version": model.Version(),
		"people":  stats.People,
		"samples": stats.Samples,
	}})
}

func (m *Manager) snapshotLocked() Snapshot {
	s := Snapshot{
		Status:          m.status,
		LiveRecognition: m.live,
		LastOutcome:     m.lastOutcome,
	}
	if m.session != nil {
		s.Person = m.session.Person()
		s.SessionID = m.session.SessionID()
		s.Mode = m.session.Mode()
		s.Accepted = m.session.Accepted()
		s.Target = m.session.Target()
		s.FramesSeen = m.session.FramesSeen()
	}
	if cur := m.engine.Current(); cur != nil {
		s.ModelVersion = cur.Version()
		s.ModelPeople = cur.Stats().People
	}
	if m.lastErr != nil {
		s.LastError = m.lastErr.Error()
	}
	return s
}
