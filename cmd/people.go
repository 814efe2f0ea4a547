package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-station/internal/config"
	"github.com/kozaktomas/face-station/internal/recognizer"
)

var peopleCmd = &cobra.Command{
	Use:   "people",
	Short: "List enrolled people and their sample counts",
	Long: `Lists every person in the sample store together with their sample
count and, when a model exists, the label the model assigned them.`,
	RunE: runPeople,
}

func init() {
	rootCmd.AddCommand(peopleCmd)
}

func runPeople(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}

	names := st.People()
	if len(names) == 0 {
		fmt.Println("No people enrolled yet.")
		return nil
	}

	model, err := recognizer.LoadModel(cfg.Paths.ModelDir)
	if err != nil {
		fmt.Printf("Warning: model artifacts are unreadable: %v\n\n", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSAMPLES\tLABEL\tTRAINED")
	fmt.Fprintln(w, "----\t-------\t-----\t-------")

	for _, name := range names {
		label, trained := "-", "no"
		if model != nil {
			if l, ok := model.LabelFor(name); ok {
				label = fmt.Sprintf("%d", l)
				if model.SampleCount(name) == st.Count(name) {
					trained = "yes"
				} else {
					trained = "stale"
				}
			}
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", name, st.Count(name), label, trained)
	}

	w.Flush()

	fmt.Printf("\nTotal: %s, %s\n",
		english.Plural(len(names), "person", "people"),
		english.Plural(st.TotalSamples(), "sample", ""))
	if model != nil {
		fmt.Printf("Model: v%d over %s\n", model.Version(), english.Plural(model.Size(), "sample", ""))
	} else {
		fmt.Println("Model: none trained yet")
	}

	return nil
}
