package live

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize/english"
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"

	"github.com/kozaktomas/face-station/internal/capture"
	"github.com/kozaktomas/face-station/internal/enroll"
)

// Display renders what each frame produced. Implementations run on the
// loop goroutine and must not block.
type Display interface {
	Render(tick enroll.Tick)
}

// TerminalDisplay renders capture progress as a bar and recognition
// results as plain lines, for interactive use.
type TerminalDisplay struct {
	out       io.Writer
	bar       *progressbar.ProgressBar
	sessionID string
	version   int
}

// NewTerminalDisplay writes to out, or stdout when out is nil.
func NewTerminalDisplay(out io.Writer) *TerminalDisplay {
	if out == nil {
		out = os.Stdout
	}
	return &TerminalDisplay{out: out}
}

func (d *TerminalDisplay) Render(tick enroll.Tick) {
	if tick.Capture != nil {
		d.renderCapture(tick)
	}
	for _, r := range tick.Results {
		if r.Known {
			fmt.Fprintf(d.out, "%s  %.1f%%  distance %.3f\n", r.Person, r.Confidence, r.Distance)
		} else if r.Nearest != "" {
			fmt.Fprintf(d.out, "unknown  nearest %s  distance %.3f\n", r.Nearest, r.Distance)
		} else {
			fmt.Fprintln(d.out, "unknown")
		}
	}
	d.renderModelChange(tick.Snapshot)
}

func (d *TerminalDisplay) renderCapture(tick enroll.Tick) {
	snap := tick.Snapshot

	created := false
	if snap.Status == enroll.StatusCapturing && snap.SessionID != d.sessionID {
		d.sessionID = snap.SessionID
		d.bar = progressbar.NewOptions(snap.Target,
			progressbar.OptionSetWriter(d.out),
			progressbar.OptionSetDescription("Capturing "+snap.Person),
			progressbar.OptionShowCount(),
			progressbar.OptionFullWidth(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
		created = true
		if snap.Accepted > 0 {
			d.bar.Add(snap.Accepted)
		}
	}
	if !created && tick.Capture.Accepted && d.bar != nil {
		d.bar.Add(1)
	}

	switch {
	case tick.Capture.Done:
		d.Finish()
		if out := snap.LastOutcome; out != nil {
			fmt.Fprintf(d.out, "Captured %s for %s, retraining...\n",
				english.Plural(out.Accepted, "sample", ""), out.Person)
		}
	case tick.Capture.Exhausted:
		d.Finish()
		fmt.Fprintf(d.out, "Capture failed: %s\n", snap.LastError)
	}
}

// renderModelChange prints one line when a retrain finished and a new
// model version started serving.
func (d *TerminalDisplay) renderModelChange(snap enroll.Snapshot) {
	if snap.ModelVersion > d.version {
		d.version = snap.ModelVersion
		fmt.Fprintf(d.out, "Model v%d ready (%s)\n",
			snap.ModelVersion, english.Plural(snap.ModelPeople, "person", "people"))
	}
}

// Finish terminates a running progress bar line. Safe to call when no bar
// is active.
func (d *TerminalDisplay) Finish() {
	if d.bar == nil {
		return
	}
	fmt.Fprintln(d.out)
	d.bar = nil
	d.sessionID = ""
}

// LogDisplay reports frame outcomes through the structured log, for
// headless runs. Session lifecycle is already logged by the state machine,
// so only per-frame outcomes show up here.
type LogDisplay struct{}

func (LogDisplay) Render(tick enroll.Tick) {
	if v := tick.Capture; v != nil {
		switch {
		case v.Accepted:
			log.WithFields(log.Fields{
				"person": v.Sample.Person,
				"seq":    v.Sample.Seq,
			}).Info("sample accepted")
		case v.Reason != capture.ReasonNone && v.Reason != capture.ReasonManualWait:
			log.WithField("reason", string(v.Reason)).Debug("frame rejected")
		}
	}
	for _, r := range tick.Results {
		if r.Known {
			log.WithFields(log.Fields{
				"person":     r.Person,
				"confidence": fmt.Sprintf("%.1f", r.Confidence),
				"distance":   fmt.Sprintf("%.3f", r.Distance),
			}).Info("face recognized")
		} else {
			log.WithFields(log.Fields{
				"nearest":  r.Nearest,
				"distance": fmt.Sprintf("%.3f", r.Distance),
			}).Info("unknown face")
		}
	}
}
