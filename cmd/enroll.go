package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-station/internal/capture"
	"github.com/kozaktomas/face-station/internal/config"
	"github.com/kozaktomas/face-station/internal/enroll"
	"github.com/kozaktomas/face-station/internal/live"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll [person]",
	Short: "Capture face samples for a person and retrain the model",
	Long: `Capture face samples for a person from a stream of camera frames.
Frames are read from a directory in filename order; each one runs through
face detection and the quality gates. When enough samples are accepted the
model is retrained in the background and swapped in.

In manual mode, press s (then enter) to take a sample, space to toggle
back to auto, q to cancel the session.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("frames", "", "Directory of frame images to read in filename order")
	enrollCmd.Flags().String("mode", "", "Capture mode: auto or manual (defaults to config)")
	enrollCmd.Flags().Int("target", 0, "Samples to capture, clamped to 40-60 (0 = config default)")
	enrollCmd.Flags().Duration("interval", 0, "Delay between frames, e.g. 200ms (0 = no delay)")
	enrollCmd.Flags().Bool("full-frame", false, "Treat each frame as a pre-cropped face instead of calling the detector")
}

// stdinKeys forwards operator keypresses from stdin to the frame loop.
// Input is line-buffered: type the key, then enter.
func stdinKeys() <-chan string {
	keys := make(chan string, 8)
	go func() {
		defer close(keys)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			keys <- line
		}
	}()
	return keys
}

// interruptContext returns a context cancelled by SIGINT or SIGTERM.
func interruptContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal...")
		cancel()
	}()

	return ctx, cancel
}

func runEnroll(cmd *cobra.Command, args []string) error {
	person := args[0]
	cfg := config.Load()

	framesDir := mustGetString(cmd, "frames")
	if framesDir == "" {
		return errors.New("--frames is required; point it at a directory of camera frames")
	}
	if target := mustGetInt(cmd, "target"); target > 0 {
		cfg.Capture.Target = config.ClampTarget(target)
	}

	var mode capture.Mode
	if s := mustGetString(cmd, "mode"); s != "" {
		var err error
		if mode, err = capture.ParseMode(s); err != nil {
			return err
		}
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	engine, err := loadEngine(cfg)
	if err != nil {
		return err
	}
	manager, err := newManager(cfg, st, engine)
	if err != nil {
		return err
	}

	source, err := live.NewDirectorySource(framesDir)
	if err != nil {
		return err
	}
	if source.Len() == 0 {
		return fmt.Errorf("no frames found in %s", framesDir)
	}

	snapshot, err := manager.StartCapture(person, mode)
	if err != nil {
		return err
	}

	fmt.Printf("Enrolling %s: %d samples wanted, %s mode, %s in %s\n",
		snapshot.Person, snapshot.Target, snapshot.Mode,
		english.Plural(source.Len(), "frame", ""), framesDir)
	if snapshot.Mode == capture.ModeManual {
		fmt.Println("Keys: s = take sample, space = switch to auto, q = cancel (press enter after each key)")
	}
	fmt.Println()

	ctx, cancel := interruptContext()
	defer cancel()

	display := live.NewTerminalDisplay(os.Stdout)
	loop := live.New(source, newDetector(cfg, mustGetBool(cmd, "full-frame")), manager, display, live.Options{
		Interval: mustGetDuration(cmd, "interval"),
		Keys:     stdinKeys(),
	})

	runErr := loop.Run(ctx)
	display.Finish()

	if runErr != nil && errors.Is(runErr, context.Canceled) {
		return abortEnrollment(manager)
	}
	if runErr != nil {
		return runErr
	}

	final := manager.Status()
	if final.Status == enroll.StatusCapturing {
		// The frame directory ran out mid-session.
		outcome, cancelErr := manager.CancelEnrollment()
		if cancelErr != nil {
			return cancelErr
		}
		return fmt.Errorf("frame stream ended after %d of %d samples; session samples discarded",
			outcome.LastOutcome.Accepted, outcome.LastOutcome.Target)
	}
	if final.LastError != "" {
		return fmt.Errorf("enrollment failed: %s", final.LastError)
	}

	fmt.Printf("\n%s is enrolled with %s; model v%d covers %s.\n",
		snapshot.Person,
		english.Plural(st.Count(snapshot.Person), "sample", ""),
		final.ModelVersion,
		english.Plural(final.ModelPeople, "person", "people"))
	return nil
}

// abortEnrollment cleans up after an operator interrupt: an active session
// is cancelled so its samples are discarded, a running retraining is
// allowed to finish.
func abortEnrollment(manager *enroll.Manager) error {
	snap := manager.Status()
	if snap.Status == enroll.StatusCapturing {
		if outcome, err := manager.CancelEnrollment(); err == nil && outcome.LastOutcome != nil {
			fmt.Printf("Capture cancelled, %s discarded.\n",
				english.Plural(outcome.LastOutcome.Accepted, "session sample", ""))
		}
		return nil
	}

	manager.Wait()
	if final := manager.Status(); final.LastError == "" && final.ModelVersion > 0 {
		fmt.Printf("Retraining finished before shutdown: model v%d ready.\n", final.ModelVersion)
	}
	return nil
}
