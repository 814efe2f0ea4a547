package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-station/internal/config"
	"github.com/kozaktomas/face-station/internal/live"
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Run live recognition over a stream of camera frames",
	Long: `Run live recognition: every frame goes through face detection and
each detected face is matched against the current model. Results print as
they happen; faces beyond the distance threshold report as unknown.

A trained model must exist. Frames are read from a directory in filename
order, standing in for a camera feed.`,
	RunE: runLive,
}

func init() {
	rootCmd.AddCommand(liveCmd)

	liveCmd.Flags().String("frames", "", "Directory of frame images to read in filename order")
	liveCmd.Flags().Duration("interval", 0, "Delay between frames, e.g. 200ms (0 = no delay)")
	liveCmd.Flags().Float64("threshold", 0, "Distance threshold override (0 = model default)")
	liveCmd.Flags().Bool("full-frame", false, "Treat each frame as a pre-cropped face instead of calling the detector")
	liveCmd.Flags().Bool("quiet", false, "Log results instead of printing them")
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	framesDir := mustGetString(cmd, "frames")
	if framesDir == "" {
		return errors.New("--frames is required; point it at a directory of camera frames")
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	engine, err := loadEngine(cfg)
	if err != nil {
		return err
	}
	if threshold := mustGetFloat64(cmd, "threshold"); threshold > 0 {
		engine.SetThreshold(threshold)
	}

	manager, err := newManager(cfg, st, engine)
	if err != nil {
		return err
	}
	if err := manager.StartLiveRecognition(); err != nil {
		return fmt.Errorf("cannot start live recognition: %w (run 'face-station train' first)", err)
	}

	source, err := live.NewDirectorySource(framesDir)
	if err != nil {
		return err
	}
	if source.Len() == 0 {
		return fmt.Errorf("no frames found in %s", framesDir)
	}

	model := engine.Current()
	fmt.Printf("Live recognition with model v%d (%s), %s in %s\n\n",
		model.Version(),
		english.Plural(len(model.People()), "person", "people"),
		english.Plural(source.Len(), "frame", ""), framesDir)

	var display live.Display = live.NewTerminalDisplay(os.Stdout)
	if mustGetBool(cmd, "quiet") {
		display = live.LogDisplay{}
	}

	ctx, cancel := interruptContext()
	defer cancel()

	loop := live.New(source, newDetector(cfg, mustGetBool(cmd, "full-frame")), manager, display, live.Options{
		Interval: mustGetDuration(cmd, "interval"),
	})
	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
