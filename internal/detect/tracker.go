package detect

import "image"

// Tracker follows the primary face across consecutive frames and reports
// when it has stayed put long enough to sample. A face counts as the same
// face when its box overlaps the previous frame's box by at least
// iouThreshold; short detection dropouts are forgiven up to maxMisses
// frames before the streak resets.
type Tracker struct {
	stableFrames int
	maxMisses    int
	iouThreshold float64

	last   Box
	streak int
	misses int
}

// NewTracker builds a tracker that declares the primary face stable after
// stableFrames consecutive sightings.
func NewTracker(stableFrames, maxMisses int, iouThreshold float64) *Tracker {
	if stableFrames < 1 {
		stableFrames = 1
	}
	return &Tracker{
		stableFrames: stableFrames,
		maxMisses:    maxMisses,
		iouThreshold: iouThreshold,
	}
}

// Observe feeds one frame's detections and returns the primary face together
// with whether it is stable enough to sample. With no detections the current
// streak survives for up to maxMisses frames.
func (t *Tracker) Observe(boxes []Box) (Box, bool) {
	primary, ok := Largest(boxes)
	if !ok {
		if t.streak > 0 {
			t.misses++
			if t.misses > t.maxMisses {
				t.Reset()
			}
		}
		return Box{}, false
	}

	t.misses = 0
	if t.streak > 0 && IoU(t.last.Rect, primary.Rect) >= t.iouThreshold {
		t.streak++
	} else {
		t.streak = 1
	}
	t.last = primary

	return primary, t.streak >= t.stableFrames
}

// Reset clears the streak, e.g. when a capture session starts over.
func (t *Tracker) Reset() {
	t.last = Box{Rect: image.Rectangle{}}
	t.streak = 0
	t.misses = 0
}

// Streak returns the current consecutive-sighting count.
func (t *Tracker) Streak() int {
	return t.streak
}
