package live

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"testing"

	"github.com/kozaktomas/face-station/internal/detect"
	"github.com/kozaktomas/face-station/internal/enroll"
	"github.com/kozaktomas/face-station/internal/recognizer"
	"github.com/kozaktomas/face-station/internal/store"
)

// checkerFrame draws a 16px checkerboard shifted by three pixels per phase
// step, sharp enough for the blur gate and distinct enough between phases
// for the duplicate gate.
func checkerFrame(phase int) image.Image {
	img := image.NewGray(image.Rect(0, 0, 160, 160))
	for y := range 160 {
		for x := range 160 {
			v := uint8(25)
			if ((x+phase*3)/16+y/16)%2 == 0 {
				v = 230
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func checkerFrames(n int) []image.Image {
	frames := make([]image.Image, n)
	for i := range frames {
		frames[i] = checkerFrame(i)
	}
	return frames
}

// sliceSource replays a fixed frame sequence. The optional hook runs for
// each frame as it is produced, so tests can inject keys at exact points
// in the stream.
type sliceSource struct {
	frames  []image.Image
	pos     int
	onFrame func(i int)
}

func (s *sliceSource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.frames) {
		return nil, io.EOF
	}
	i := s.pos
	s.pos++
	if s.onFrame != nil {
		s.onFrame(i)
	}
	return s.frames[i], nil
}

// recordingDisplay keeps every rendered tick for assertions.
type recordingDisplay struct {
	ticks []enroll.Tick
}

func (d *recordingDisplay) Render(tick enroll.Tick) {
	d.ticks = append(d.ticks, tick)
}

// failingDetector simulates a detection backend outage.
type failingDetector struct{}

func (failingDetector) Detect(context.Context, image.Image) ([]detect.Box, error) {
	return nil, errors.New("detector unavailable")
}

type loopFixture struct {
	store   *store.Store
	engine  *recognizer.Engine
	manager *enroll.Manager
	display *recordingDisplay
}

func newLoopFixture(t *testing.T, target int) *loopFixture {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	engine := recognizer.NewEngine()
	return &loopFixture{
		store:   st,
		engine:  engine,
		manager: enroll.NewManager(st, recognizer.NewTrainer(0), engine, enroll.Options{Target: target}),
		display: &recordingDisplay{},
	}
}
