package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-station/internal/config"
	"github.com/kozaktomas/face-station/internal/constants"
	"github.com/kozaktomas/face-station/internal/lbph"
	"github.com/kozaktomas/face-station/internal/recognizer"
	"github.com/kozaktomas/face-station/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report model statistics and threshold quality",
	Long: `Report statistics about the current model and how well the distance
threshold separates enrolled people: every stored sample is probed against
the model and counted as a hit, a miss (nearest neighbor is someone else)
or an unknown (nearest neighbor beyond the threshold).

Use this after enrolling to decide whether the threshold needs tuning.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

// probeReport is the per-person outcome of probing stored samples against
// the model.
type probeReport struct {
	hits, misses, unknowns int
	distances              []float64
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	model, err := recognizer.LoadModel(cfg.Paths.ModelDir)
	if err != nil {
		return err
	}
	if model == nil {
		return fmt.Errorf("no model artifacts in %s; run 'face-station train' first", cfg.Paths.ModelDir)
	}

	trainStats := model.Stats()
	fmt.Printf("Model v%d, trained %s\n", model.Version(), model.TrainedAt().Format(time.RFC3339))
	fmt.Printf("  People:    %d\n", trainStats.People)
	fmt.Printf("  Samples:   %d\n", trainStats.Samples)
	fmt.Printf("  Features:  %d dimensions\n", trainStats.FeatureDim)
	fmt.Printf("  Threshold: %.3f\n", model.Threshold())
	fmt.Printf("  Intra-person distance: mean %.3f, p95 %.3f, suggested threshold %.3f\n\n",
		trainStats.MeanIntraDistance, trainStats.P95IntraDistance, trainStats.SuggestedThreshold)

	reports := probeStore(st, model)
	if len(reports) == 0 {
		fmt.Println("Sample store is empty; nothing to probe.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSAMPLES\tHITS\tMISSES\tUNKNOWN\tMEAN DIST\tP95 DIST")
	fmt.Fprintln(w, "----\t-------\t----\t------\t-------\t---------\t--------")

	var all []float64
	var hits, total int
	for _, name := range st.People() {
		r := reports[name]
		n := r.hits + r.misses + r.unknowns
		mean, _ := stats.Mean(r.distances)
		p95, _ := stats.Percentile(r.distances, 95)
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%.3f\t%.3f\n",
			name, n, r.hits, r.misses, r.unknowns, mean, p95)

		all = append(all, r.distances...)
		hits += r.hits
		total += n
	}
	w.Flush()

	if total > 0 {
		mean, _ := stats.Mean(all)
		median, _ := stats.Median(all)
		fmt.Printf("\nSelf-recognition: %d/%d (%.1f%%) within threshold\n",
			hits, total, 100*float64(hits)/float64(total))
		fmt.Printf("Nearest-neighbor distance: mean %.3f, median %.3f\n", mean, median)
	}

	return nil
}

// probeStore runs every stored sample through the model's index and buckets
// the nearest non-self neighbor per person.
func probeStore(st *store.Store, model *recognizer.Model) map[string]*probeReport {
	reports := make(map[string]*probeReport)

	for _, name := range st.People() {
		r := &probeReport{}
		reports[name] = r

		for _, sample := range st.Samples(name) {
			vec := lbph.Extract(sample.Image, constants.GridCells)

			// The sample itself sits in the index at distance ~0, so ask
			// for two neighbors and skip the self hit.
			matches := model.Search(vec, 2)
			var best *recognizer.Match
			for i := range matches {
				if matches[i].Distance > 1e-6 {
					best = &matches[i]
					break
				}
			}
			if best == nil {
				continue
			}

			r.distances = append(r.distances, best.Distance)
			switch {
			case best.Distance >= model.Threshold():
				r.unknowns++
			case best.Person == name:
				r.hits++
			default:
				r.misses++
			}
		}
	}

	return reports
}
