// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Sample normalization constants
const (
	// NormalizedSize is the edge length in pixels of a normalized face sample.
	// Every stored sample and every probe crop is resized to this square.
	NormalizedSize = 128
)

// Capture quality gate constants
const (
	// MinFaceSizePx is the minimum width and height of a face box accepted
	// during capture. Smaller detections carry too little texture to train on.
	MinFaceSizePx = 80

	// DefaultBlurThreshold is the minimum variance of the Laplacian response
	// on the resized face crop, measured before equalization. Lower variance
	// means a blurrier image.
	DefaultBlurThreshold = 60.0

	// DefaultMinPixelDiff is the minimum mean absolute pixel difference between
	// a candidate and the previously accepted sample. Forces the subject to
	// move between samples instead of filling the session with near-duplicates.
	DefaultMinPixelDiff = 4.0

	// DefaultSessionTarget is the number of accepted samples that completes
	// a capture session. Operator overrides are clamped to the
	// MinSessionTarget..MaxSessionTarget range by the config layer.
	DefaultSessionTarget = 50

	// MinSessionTarget and MaxSessionTarget bound operator-configured session
	// targets.
	MinSessionTarget = 40
	MaxSessionTarget = 60

	// FrameBudgetFactor scales the session target into the frame budget.
	// A session that consumes its budget before reaching the target fails.
	FrameBudgetFactor = 4
)

// Face tracking constants
const (
	// StableFrames is the number of consecutive associated detections required
	// before a tracked face counts as stable.
	StableFrames = 3

	// MaxTrackMisses is the number of consecutive missed frames tolerated
	// before the stability counter resets.
	MaxTrackMisses = 1

	// TrackIoUThreshold is the minimum Intersection over Union between
	// consecutive detections to associate them with the same track.
	TrackIoUThreshold = 0.3

	// NMSIoUThreshold is the IoU above which overlapping detections are
	// merged during non-maximum suppression.
	NMSIoUThreshold = 0.4
)

// Trainer constants
const (
	// GridCells is the number of cells per axis the normalized sample is
	// divided into for local texture histograms.
	GridCells = 8

	// MinSamplesPerPerson is the minimum number of stored samples a person
	// needs before training is allowed.
	MinSamplesPerPerson = 2
)

// Recognition constants
const (
	// DefaultRecognizeThreshold is the maximum cosine distance for a match
	// to count as a known person. Lower values = stricter matching.
	DefaultRecognizeThreshold = 0.35

	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	HNSWMaxNeighbors = 16
)

// Web constants
const (
	// EventChannelBuffer is the buffer size of per-listener event channels.
	EventChannelBuffer = 100

	// MaxUploadSize is the maximum accepted size of an uploaded probe image.
	MaxUploadSize = 32 << 20
)
