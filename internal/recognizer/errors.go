package recognizer

import "errors"

// Failure taxonomy shared across capture, training, recognition and model
// persistence. Callers match with errors.Is; wrapped variants carry detail.
var (
	// ErrCaptureQualityRejected reports a probe or candidate face that failed
	// the quality gates (too small, too blurry or a near duplicate).
	ErrCaptureQualityRejected = errors.New("capture quality rejected")

	// ErrInsufficientSamples reports a capture session or dataset below the
	// minimum sample count. Training refuses to run rather than produce a
	// degenerate model.
	ErrInsufficientSamples = errors.New("insufficient samples")

	// ErrEmptyDataset reports a training request against a store with no
	// people at all.
	ErrEmptyDataset = errors.New("empty dataset")

	// ErrNoModelLoaded reports a recognition request before any model was
	// trained or loaded. The engine never guesses without a model.
	ErrNoModelLoaded = errors.New("no model loaded")

	// ErrCorruptModel reports persisted model artifacts that are unreadable
	// or disagree with each other.
	ErrCorruptModel = errors.New("corrupt model")
)
