package cmd

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize/english"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-station/internal/config"
	"github.com/kozaktomas/face-station/internal/recognizer"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Retrain the recognition model from the sample store",
	Long: `Retrain the recognition model over every sample in the store and
persist the result as the new current model. Use this after editing the
dataset directories by hand; enrollment retrains automatically.

Examples:
  # Retrain with the configured threshold
  face-station train

  # Retrain with a tighter match threshold
  face-station train --threshold 0.25`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().Float64("threshold", 0, "Distance threshold to stamp into the model (0 = config default)")
	trainCmd.Flags().Bool("dry-run", false, "Train but do not persist or replace the current model")
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	threshold := cfg.Recognize.Threshold
	if f := mustGetFloat64(cmd, "threshold"); f > 0 {
		threshold = f
	}
	dryRun := mustGetBool(cmd, "dry-run")

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	if st.TotalSamples() == 0 {
		return fmt.Errorf("sample store at %s is empty; enroll someone first", cfg.Paths.DataDir)
	}

	// The persisted model decides the next version number, if there is one.
	version := 1
	current, err := recognizer.LoadModel(cfg.Paths.ModelDir)
	if err != nil {
		fmt.Printf("Warning: existing model artifacts are unreadable (%v); starting over at v1\n", err)
	} else if current != nil {
		version = current.Version() + 1
	}

	fmt.Printf("Training model v%d over %s of %s...\n",
		version,
		english.Plural(st.TotalSamples(), "sample", ""),
		english.Plural(len(st.People()), "person", "people"))

	bar := progressbar.NewOptions(st.TotalSamples(),
		progressbar.OptionSetDescription("Extracting features"),
		progressbar.OptionShowCount(),
		progressbar.OptionFullWidth(),
	)

	trainer := recognizer.NewTrainer(threshold)
	trainer.OnProgress(func(done, total int) {
		bar.Set(done)
	})

	model, err := trainer.Train(st, version)
	fmt.Println()
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	stats := model.Stats()
	fmt.Printf("Model v%d trained in %s\n", model.Version(), stats.Duration.Round(time.Millisecond))
	fmt.Printf("  People:    %d\n", stats.People)
	fmt.Printf("  Samples:   %d\n", stats.Samples)
	fmt.Printf("  Features:  %d dimensions\n", stats.FeatureDim)
	fmt.Printf("  Threshold: %.3f (suggested from intra-person spread: %.3f)\n",
		model.Threshold(), stats.SuggestedThreshold)

	if dryRun {
		fmt.Println("Dry run: model discarded, artifacts unchanged")
		return nil
	}

	if err := recognizer.SaveModel(model, cfg.Paths.ModelDir); err != nil {
		return fmt.Errorf("failed to persist model artifacts: %w", err)
	}
	fmt.Printf("Artifacts written to %s\n", cfg.Paths.ModelDir)

	return nil
}
