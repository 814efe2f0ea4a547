package enroll

import (
	"image"
	"image/color"
	"testing"

	"github.com/kozaktomas/face-station/internal/capture"
	"github.com/kozaktomas/face-station/internal/detect"
	"github.com/kozaktomas/face-station/internal/recognizer"
	"github.com/kozaktomas/face-station/internal/store"
)

const frameSide = 160

// checkerFrame draws a 16px checkerboard shifted right by three pixels per
// phase step. Consecutive phases differ enough to pass the duplicate gate
// while keeping the same texture class, and the hard edges keep the
// Laplacian variance well above the blur threshold.
func checkerFrame(phase int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, frameSide, frameSide))
	for y := range frameSide {
		for x := range frameSide {
			v := uint8(25)
			if ((x+phase*3)/16+y/16)%2 == 0 {
				v = 230
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

// stripeFrame draws 4px vertical stripes shifted by two pixels per phase,
// a texture class distinct from checkerFrame.
func stripeFrame(phase int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, frameSide, frameSide))
	for y := range frameSide {
		for x := range frameSide {
			v := uint8(30)
			if ((x+phase*2)/4)%2 == 0 {
				v = 220
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

// flatFrame fails the blur gate: a constant image has zero Laplacian
// variance.
func flatFrame() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, frameSide, frameSide))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	return img
}

func fullBox() []detect.Box {
	return []detect.Box{{Rect: image.Rect(0, 0, frameSide, frameSide), Score: 0.99}}
}

type fixture struct {
	store   *store.Store
	engine  *recognizer.Engine
	manager *Manager
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	engine := recognizer.NewEngine()
	return &fixture{
		store:   st,
		engine:  engine,
		manager: NewManager(st, recognizer.NewTrainer(0), engine, opts),
	}
}

// enroll drives a full capture session for person in auto mode and waits
// for the retrain that follows. The frame builder is called with a rising
// phase so the duplicate gate never trips.
func (f *fixture) enroll(t *testing.T, person string, frame func(int) *image.Gray) {
	t.Helper()
	if _, err := f.manager.StartCapture(person, capture.ModeAuto); err != nil {
		t.Fatalf("StartCapture(%q) failed: %v", person, err)
	}
	for i := range 100 {
		tick, err := f.manager.HandleFrame(frame(i), fullBox())
		if err != nil {
			t.Fatalf("HandleFrame %d failed: %v", i, err)
		}
		if tick.Snapshot.Status != StatusCapturing {
			break
		}
	}
	f.manager.Wait()

	if got := f.manager.Status().Status; got != StatusIdle {
		t.Fatalf("status after enrolling %q = %q, want %q", person, got, StatusIdle)
	}
	if err := f.manager.LastError(); err != nil {
		t.Fatalf("enrolling %q finished with error: %v", person, err)
	}
}
