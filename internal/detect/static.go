package detect

import (
	"context"
	"image"
)

// FullFrame treats the entire frame as a single face, inset by a margin
// fraction on every side. It serves imports of pre-cropped face photos,
// where running a real detector would be pointless.
type FullFrame struct {
	Margin float64 // fraction of width/height to inset, 0 to 0.4
}

// Detect returns one box covering the frame minus the margin.
func (f FullFrame) Detect(_ context.Context, frame image.Image) ([]Box, error) {
	b := frame.Bounds()
	margin := f.Margin
	if margin < 0 {
		margin = 0
	}
	if margin > 0.4 {
		margin = 0.4
	}
	dx := int(float64(b.Dx()) * margin)
	dy := int(float64(b.Dy()) * margin)

	rect := image.Rect(b.Min.X+dx, b.Min.Y+dy, b.Max.X-dx, b.Max.Y-dy)
	if rect.Empty() {
		return nil, nil
	}
	return []Box{{Rect: rect, Score: 1.0}}, nil
}

// Script replays a fixed sequence of detections, one entry per Detect call,
// and keeps returning the final entry once the sequence is exhausted. Tests
// use it to drive capture and recognition flows without a detector sidecar.
type Script struct {
	Frames [][]Box
	calls  int
}

// Detect returns the next scripted detection set.
func (s *Script) Detect(_ context.Context, _ image.Image) ([]Box, error) {
	if len(s.Frames) == 0 {
		return nil, nil
	}
	i := min(s.calls, len(s.Frames)-1)
	s.calls++
	return s.Frames[i], nil
}

// Calls returns how many times Detect has been invoked.
func (s *Script) Calls() int {
	return s.calls
}
