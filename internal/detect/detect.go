// Package detect defines the face detection boundary. Detection itself is an
// injected capability: the rest of the system only sees bounding boxes, so a
// remote InsightFace sidecar, a scripted fake and a whole-frame fallback are
// interchangeable.
package detect

import (
	"context"
	"image"
	"sort"
)

// Box is one detected face: its bounding rectangle in frame pixel
// coordinates and the detector's confidence score.
type Box struct {
	Rect  image.Rectangle
	Score float64
}

// Detector locates faces in a frame. Implementations must be safe to call
// repeatedly from a single goroutine; they do not need to be concurrency
// safe.
type Detector interface {
	Detect(ctx context.Context, frame image.Image) ([]Box, error)
}

// Largest returns the box with the greatest area, which the capture flow
// treats as the primary face. The second return is false when boxes is empty.
func Largest(boxes []Box) (Box, bool) {
	if len(boxes) == 0 {
		return Box{}, false
	}
	best := boxes[0]
	for _, b := range boxes[1:] {
		if area(b.Rect) > area(best.Rect) {
			best = b
		}
	}
	return best, true
}

// NonMaxSuppression drops boxes that overlap a higher-scored box by more
// than iouThreshold. Detectors occasionally report the same face twice; this
// keeps only the best report per face. The input slice is not modified.
func NonMaxSuppression(boxes []Box, iouThreshold float64) []Box {
	if len(boxes) <= 1 {
		return boxes
	}

	sorted := make([]Box, len(boxes))
	copy(sorted, boxes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	kept := make([]Box, 0, len(sorted))
	for _, candidate := range sorted {
		suppressed := false
		for _, winner := range kept {
			if IoU(candidate.Rect, winner.Rect) > iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, candidate)
		}
	}
	return kept
}

func area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}
