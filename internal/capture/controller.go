// Package capture drives one enrollment capture session: it applies the
// quality gates to detected faces, appends accepted samples to the store and
// accounts for the session's frame budget.
package capture

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/kozaktomas/face-station/internal/constants"
	"github.com/kozaktomas/face-station/internal/detect"
	"github.com/kozaktomas/face-station/internal/imgproc"
	"github.com/kozaktomas/face-station/internal/store"
)

// Mode selects how samples are taken during a session.
type Mode string

const (
	// ModeAuto samples every stable frame that passes the quality gates.
	ModeAuto Mode = "auto"
	// ModeManual samples only when the operator marked the frame.
	ModeManual Mode = "manual"
)

// ParseMode validates an operator-supplied mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAuto, ModeManual:
		return Mode(s), nil
	case "":
		return ModeAuto, nil
	}
	return "", fmt.Errorf("unknown capture mode %q", s)
}

// Reason explains why a frame produced no sample.
type Reason string

const (
	// ReasonNone marks an accepted frame.
	ReasonNone Reason = ""
	// ReasonNoFace marks a frame with no detected face. It consumes frame
	// budget but is not counted as a rejection.
	ReasonNoFace Reason = "no_face"
	// ReasonUnstable marks a face that has not persisted long enough.
	ReasonUnstable Reason = "unstable"
	// ReasonTooSmall marks a face box under the minimum pixel size.
	ReasonTooSmall Reason = "too_small"
	// ReasonBlurry marks a crop whose Laplacian variance is under the blur
	// threshold.
	ReasonBlurry Reason = "blurry"
	// ReasonDuplicate marks a crop too similar to the previously accepted
	// sample.
	ReasonDuplicate Reason = "near_duplicate"
	// ReasonManualWait marks a frame skipped because the session runs in
	// manual mode and no capture key arrived since the last tick.
	ReasonManualWait Reason = "manual_wait"
)

// Config describes one capture session. The zero value is not usable; New
// fills defaults for everything except Person and SessionID.
type Config struct {
	Person        string // canonical person name
	SessionID     string
	Mode          Mode
	Target        int
	FrameBudget   int // defaults to Target * FrameBudgetFactor
	MinFaceSize   int
	BlurThreshold float64
	MinPixelDiff  float64
}

// Verdict reports what one offered frame produced.
type Verdict struct {
	Accepted  bool
	Reason    Reason
	Sample    *store.Sample // set when Accepted
	Done      bool          // target reached, session complete
	Exhausted bool          // frame budget consumed before the target
}

// Outcome summarizes a finished (or cancelled) session.
type Outcome struct {
	Person     string         `json:"person"`
	SessionID  string         `json:"session_id"`
	Mode       Mode           `json:"mode"`
	Accepted   int            `json:"accepted"`
	Target     int            `json:"target"`
	FramesSeen int            `json:"frames_seen"`
	Rejections map[Reason]int `json:"rejections"`
	Completed  bool           `json:"completed"`
	Exhausted  bool           `json:"exhausted"`
}

// Controller runs the quality gates for one session. It is driven from the
// single frame loop and is not concurrency safe.
type Controller struct {
	cfg     Config
	store   *store.Store
	tracker *detect.Tracker
	now     func() time.Time

	framesSeen   int
	accepted     int
	rejections   map[Reason]int
	lastAccepted *image.Gray
	marked       bool
	done         bool
	exhausted    bool
}

// New validates the session config, fills defaults and returns a fresh
// controller.
func New(cfg Config, st *store.Store) (*Controller, error) {
	if cfg.Person == "" {
		return nil, errors.New("capture session needs a person name")
	}
	if cfg.SessionID == "" {
		return nil, errors.New("capture session needs a session id")
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeAuto
	}
	if cfg.Mode != ModeAuto && cfg.Mode != ModeManual {
		return nil, fmt.Errorf("unknown capture mode %q", cfg.Mode)
	}
	if cfg.Target <= 0 {
		cfg.Target = constants.DefaultSessionTarget
	}
	if cfg.FrameBudget <= 0 {
		cfg.FrameBudget = cfg.Target * constants.FrameBudgetFactor
	}
	if cfg.MinFaceSize <= 0 {
		cfg.MinFaceSize = constants.MinFaceSizePx
	}
	if cfg.BlurThreshold <= 0 {
		cfg.BlurThreshold = constants.DefaultBlurThreshold
	}
	if cfg.MinPixelDiff <= 0 {
		cfg.MinPixelDiff = constants.DefaultMinPixelDiff
	}

	return &Controller{
		cfg:        cfg,
		store:      st,
		tracker:    detect.NewTracker(constants.StableFrames, constants.MaxTrackMisses, constants.TrackIoUThreshold),
		now:        time.Now,
		rejections: make(map[Reason]int),
	}, nil
}

// Mark flags the next offered frame for sampling. Only meaningful in manual
// mode; the mark is consumed by the next Offer whether or not the sample is
// accepted.
func (c *Controller) Mark() {
	c.marked = true
}

// ToggleMode switches between auto and manual sampling mid-session and
// returns the new mode. Switching to auto clears any pending mark.
func (c *Controller) ToggleMode() Mode {
	if c.cfg.Mode == ModeAuto {
		c.cfg.Mode = ModeManual
	} else {
		c.cfg.Mode = ModeAuto
		c.marked = false
	}
	return c.cfg.Mode
}

// Offer feeds one frame and its detections through the gates. Accepted
// samples are normalized and appended to the store before Offer returns.
// Calls after the session finished return the terminal verdict unchanged.
func (c *Controller) Offer(frame image.Image, boxes []detect.Box) (Verdict, error) {
	if c.done || c.exhausted {
		return Verdict{Done: c.done, Exhausted: c.exhausted}, nil
	}

	c.framesSeen++
	box, stable := c.tracker.Observe(boxes)

	verdict, err := c.evaluate(frame, box, stable, len(boxes) > 0)
	if err != nil {
		return Verdict{}, err
	}
	if verdict.Reason != ReasonNone && verdict.Reason != ReasonNoFace && verdict.Reason != ReasonManualWait {
		c.rejections[verdict.Reason]++
	}

	if c.accepted >= c.cfg.Target {
		c.done = true
	} else if c.framesSeen >= c.cfg.FrameBudget {
		c.exhausted = true
	}
	verdict.Done = c.done
	verdict.Exhausted = c.exhausted
	return verdict, nil
}

func (c *Controller) evaluate(frame image.Image, box detect.Box, stable, anyFace bool) (Verdict, error) {
	if c.cfg.Mode == ModeManual && !c.marked {
		return Verdict{Reason: ReasonManualWait}, nil
	}
	if c.cfg.Mode == ModeManual {
		c.marked = false
	}

	if !anyFace {
		return Verdict{Reason: ReasonNoFace}, nil
	}
	if !stable {
		return Verdict{Reason: ReasonUnstable}, nil
	}
	if box.Rect.Dx() < c.cfg.MinFaceSize || box.Rect.Dy() < c.cfg.MinFaceSize {
		return Verdict{Reason: ReasonTooSmall}, nil
	}

	// Resize first so the blur threshold is independent of the source
	// resolution; equalize last so contrast stretching cannot lift a blurry
	// crop over the threshold.
	crop := imgproc.GrayscaleRegion(frame, box.Rect)
	resized := imgproc.Resize(crop, constants.NormalizedSize, constants.NormalizedSize)
	if imgproc.LaplacianVariance(resized) < c.cfg.BlurThreshold {
		return Verdict{Reason: ReasonBlurry}, nil
	}

	normalized := imgproc.Equalize(resized)
	if c.lastAccepted != nil {
		diff, err := imgproc.MeanAbsDiff(normalized, c.lastAccepted)
		if err != nil {
			return Verdict{}, fmt.Errorf("failed to compare samples: %w", err)
		}
		if diff < c.cfg.MinPixelDiff {
			return Verdict{Reason: ReasonDuplicate}, nil
		}
	}

	sample, err := c.store.Add(c.cfg.Person, c.cfg.SessionID, normalized, c.now())
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to store sample: %w", err)
	}
	c.accepted++
	c.lastAccepted = normalized

	return Verdict{Accepted: true, Sample: &sample}, nil
}

// Done reports whether the session reached its target.
func (c *Controller) Done() bool {
	return c.done
}

// Exhausted reports whether the frame budget ran out before the target.
func (c *Controller) Exhausted() bool {
	return c.exhausted
}

// Accepted returns the number of samples stored so far.
func (c *Controller) Accepted() int {
	return c.accepted
}

// FramesSeen returns the number of frames offered so far.
func (c *Controller) FramesSeen() int {
	return c.framesSeen
}

// Target returns the session's accepted-sample target.
func (c *Controller) Target() int {
	return c.cfg.Target
}

// SessionID returns the session identifier samples are recorded under.
func (c *Controller) SessionID() string {
	return c.cfg.SessionID
}

// Person returns the canonical person name the session enrolls.
func (c *Controller) Person() string {
	return c.cfg.Person
}

// Mode returns the session's capture mode.
func (c *Controller) Mode() Mode {
	return c.cfg.Mode
}

// Outcome summarizes the session so far. Rejection counts are copied, so the
// caller may hold the Outcome across further Offer calls.
func (c *Controller) Outcome() Outcome {
	rejections := make(map[Reason]int, len(c.rejections))
	for reason, n := range c.rejections {
		rejections[reason] = n
	}
	return Outcome{
		Person:     c.cfg.Person,
		SessionID:  c.cfg.SessionID,
		Mode:       c.cfg.Mode,
		Accepted:   c.accepted,
		Target:     c.cfg.Target,
		FramesSeen: c.framesSeen,
		Rejections: rejections,
		Completed:  c.done,
		Exhausted:  c.exhausted,
	}
}
