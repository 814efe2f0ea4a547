package recognizer

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/kozaktomas/face-station/internal/constants"
	"github.com/kozaktomas/face-station/internal/imgproc"
	"github.com/kozaktomas/face-station/internal/lbph"
)

// Result is the outcome of recognizing one face. When the best match is at
// or beyond the threshold the face is reported unknown: Known is false,
// Person is empty and Label is -1, with Nearest still naming the closest
// enrolled person for operator context.
type Result struct {
	Person     string          `json:"person,omitempty"`
	Label      int             `json:"label"`
	Known      bool            `json:"known"`
	Distance   float64         `json:"distance"`
	Confidence float64         `json:"confidence"`
	Nearest    string          `json:"nearest,omitempty"`
	Box        image.Rectangle `json:"-"`
	At         time.Time       `json:"at"`
}

// Engine serves recognition against the current model. The model reference
// is the single synchronization point between the frame loop and background
// retraining: Swap installs a completely built model in one step, and
// readers either see the old model or the new one, never a half-updated
// state.
type Engine struct {
	mu        sync.RWMutex
	model     *Model
	threshold float64 // runtime override; 0 means use the model's
}

// NewEngine returns an engine with no model loaded. Recognition fails with
// ErrNoModelLoaded until a model is swapped in.
func NewEngine() *Engine {
	return &Engine{}
}

// Swap atomically replaces the current model and returns the previous one
// (nil on first install). In-flight recognitions complete against the model
// reference they already hold.
func (e *Engine) Swap(m *Model) *Model {
	e.mu.Lock()
	defer e.mu.Unlock()
	prev := e.model
	e.model = m
	return prev
}

// Current returns the model now being served, or nil.
func (e *Engine) Current() *Model {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.model
}

// HasModel reports whether a model is loaded.
func (e *Engine) HasModel() bool {
	return e.Current() != nil
}

// SetThreshold overrides the model's distance threshold at runtime. Zero
// restores the trained threshold.
func (e *Engine) SetThreshold(threshold float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.threshold = threshold
}

// Recognize crops the face box out of the frame, normalizes it identically
// to training and classifies it. The returned Result carries the box.
func (e *Engine) Recognize(frame image.Image, box image.Rectangle) (Result, error) {
	normalized, err := imgproc.NormalizeFace(frame, box)
	if err != nil {
		return Result{}, fmt.Errorf("failed to normalize probe: %w", err)
	}
	result, err := e.RecognizeNormalized(normalized)
	if err != nil {
		return Result{}, err
	}
	result.Box = box
	return result, nil
}

// RecognizeNormalized classifies a crop that is already in the normalized
// sample form (see imgproc.NormalizeFace); stored samples can be probed
// directly. Fails with ErrNoModelLoaded when no model is installed; it
// never guesses without one.
func (e *Engine) RecognizeNormalized(crop *image.Gray) (Result, error) {
	e.mu.RLock()
	m := e.model
	threshold := e.threshold
	e.mu.RUnlock()

	if m == nil {
		return Result{}, ErrNoModelLoaded
	}
	if threshold == 0 {
		threshold = m.threshold
	}

	b := crop.Bounds()
	if b.Dx() != constants.NormalizedSize || b.Dy() != constants.NormalizedSize {
		return Result{}, fmt.Errorf("probe crop is %dx%d, want normalized %dx%d",
			b.Dx(), b.Dy(), constants.NormalizedSize, constants.NormalizedSize)
	}

	vec := lbph.Extract(crop, m.grid)
	matches := m.Search(vec, 1)
	if len(matches) == 0 {
		return Result{Label: -1, Distance: 2.0, At: time.Now()}, nil
	}

	best := matches[0]
	result := Result{
		Label:      -1,
		Distance:   best.Distance,
		Confidence: confidence(best.Distance),
		Nearest:    best.Person,
		At:         time.Now(),
	}
	if best.Distance < threshold {
		result.Known = true
		result.Person = best.Person
		result.Label = best.Label
	}
	return result, nil
}

// confidence maps a cosine distance to a 0-100 score. Lower distance means
// higher confidence.
func confidence(distance float64) float64 {
	return max(0, min(100, (1-distance)*100))
}
