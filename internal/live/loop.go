// Package live runs the cooperative frame loop: one frame at a time flows
// through detection and the enrollment state machine, so capture, state
// transitions and recognition never race each other. Only retraining runs
// off the loop, and it hands its result back through the engine's atomic
// model swap.
package live

import (
	"context"
	"errors"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kozaktomas/face-station/internal/constants"
	"github.com/kozaktomas/face-station/internal/detect"
	"github.com/kozaktomas/face-station/internal/enroll"
)

// Options tunes the loop. The zero value runs as fast as the source
// delivers with no key input.
type Options struct {
	// Interval paces frames, e.g. to simulate a camera rate when replaying
	// recorded frames.
	Interval time.Duration
	// Keys carries operator keypresses into the loop. Pending keys are
	// applied between frames.
	Keys <-chan string
}

// Loop wires a frame source, a detector and the state machine together.
type Loop struct {
	source   FrameSource
	detector detect.Detector
	manager  *enroll.Manager
	display  Display
	opts     Options
	now      func() time.Time
}

func New(source FrameSource, detector detect.Detector, manager *enroll.Manager, display Display, opts Options) *Loop {
	return &Loop{
		source:   source,
		detector: detector,
		manager:  manager,
		display:  display,
		opts:     opts,
		now:      time.Now,
	}
}

// Run consumes the source until it drains or the context is cancelled.
// When the source ends it waits for any in-flight retraining so a model
// built from the final session is not lost.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.drainKeys()

		frame, err := l.source.Next(ctx)
		if errors.Is(err, io.EOF) {
			l.manager.Wait()
			return nil
		}
		if err != nil {
			return err
		}
		frameAt := l.now()

		boxes, err := l.detector.Detect(ctx, frame)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// A failed detection still consumes frame budget, the same as
			// a frame with no face in it.
			log.WithError(err).Warn("face detection failed")
			boxes = nil
		}
		boxes = detect.NonMaxSuppression(boxes, constants.NMSIoUThreshold)

		tick, err := l.manager.HandleFrame(frame, boxes)
		if err != nil {
			return err
		}
		// Results carry the frame's timestamp, not the time recognition
		// finished. Matters for replayed sources, where the two diverge.
		for i := range tick.Results {
			tick.Results[i].At = frameAt
		}
		if l.display != nil {
			l.display.Render(tick)
		}

		if l.opts.Interval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(l.opts.Interval):
			}
		}
	}
}

// drainKeys applies every pending keypress. Keys pressed outside a capture
// session are no-ops.
func (l *Loop) drainKeys() {
	if l.opts.Keys == nil {
		return
	}
	for {
		select {
		case key, ok := <-l.opts.Keys:
			if !ok {
				l.opts.Keys = nil
				return
			}
			if err := l.manager.HandleKey(key); err != nil && !errors.Is(err, enroll.ErrNoSession) {
				log.WithError(err).Warn("key handling failed")
			}
		default:
			return
		}
	}
}
