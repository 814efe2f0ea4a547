package cmd

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/kozaktomas/face-station/internal/capture"
	"github.com/kozaktomas/face-station/internal/config"
	"github.com/kozaktomas/face-station/internal/detect"
	"github.com/kozaktomas/face-station/internal/enroll"
	"github.com/kozaktomas/face-station/internal/recognizer"
	"github.com/kozaktomas/face-station/internal/store"
)

// openStore opens the sample store at the configured data directory,
// creating it on first run.
func openStore(cfg *config.Config) (*store.Store, error) {
	st, err := store.Open(cfg.Paths.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open sample store at %s: %w", cfg.Paths.DataDir, err)
	}
	return st, nil
}

// loadEngine creates the recognition engine and installs persisted model
// artifacts when present. A missing model is not an error; corrupt
// artifacts are.
func loadEngine(cfg *config.Config) (*recognizer.Engine, error) {
	engine := recognizer.NewEngine()

	model, err := recognizer.LoadModel(cfg.Paths.ModelDir)
	if err != nil {
		return nil, err
	}
	if model != nil {
		engine.Swap(model)
		log.WithFields(log.Fields{
			"version": model.Version(),
			"people":  len(model.People()),
		}).Info("model loaded from disk")
	}
	return engine, nil
}

// newManager wires the enrollment state machine from the config.
func newManager(cfg *config.Config, st *store.Store, engine *recognizer.Engine) (*enroll.Manager, error) {
	mode, err := capture.ParseMode(cfg.Capture.Mode)
	if err != nil {
		return nil, fmt.Errorf("invalid capture mode in config: %w", err)
	}

	trainer := recognizer.NewTrainer(cfg.Recognize.Threshold)
	return enroll.NewManager(st, trainer, engine, enroll.Options{
		ModelDir:      cfg.Paths.ModelDir,
		Mode:          mode,
		Target:        cfg.Capture.Target,
		MinFaceSize:   cfg.Capture.MinFaceSize,
		BlurThreshold: cfg.Capture.BlurThreshold,
		MinPixelDiff:  cfg.Capture.MinPixelDiff,
	}), nil
}

// newDetector picks the face detector: the HTTP sidecar by default, or
// the full-frame fallback for directories of pre-cropped face photos.
func newDetector(cfg *config.Config, fullFrame bool) detect.Detector {
	if fullFrame {
		return detect.FullFrame{}
	}
	return detect.NewHTTPDetector(cfg.Detector.URL)
}
