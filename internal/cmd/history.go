// internal/cmd/history.go
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ratio1/r1nodectl/pkg/utils"
)

func NewHistoryCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history NAME",
		Short: "Show the performance history of a running node",
		Long: `Query a running Edge Node for its recorded performance history: CPU
load, occupied memory and, when present, GPU figures. Series are
aligned to the timestamp axis before display.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			hist, err := a.nodes.GetHistory(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get node history from %s: %w", args[0], err)
			}

			if asJSON {
				out, err := json.MarshalIndent(hist, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))

				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.TabIndent)
			fmt.Fprintf(w, "Container:\t%s\n", args[0])
			fmt.Fprintf(w, "Uptime:\t%s\n", hist.Uptime)
			fmt.Fprintf(w, "Version:\t%s\n", hist.Version)
			fmt.Fprintf(w, "Epoch:\t%d (availability %.1f%%)\n", hist.CurrentEpoch, hist.CurrentEpochAvail*100)
			if n := len(hist.Timestamps); n > 0 {
				span := time.Duration(hist.Timestamps[n-1]-hist.Timestamps[0]) * time.Second
				fmt.Fprintf(w, "Window:\t%s (%d samples)\n", utils.FormatDuration(span), n)
			}
			writeSeries(w, "CPU load", hist.CPULoad, "%")
			writeSeries(w, "Memory", hist.OccupiedMemory, " GB")
			writeSeries(w, "GPU load", hist.GPULoad, "%")
			writeSeries(w, "GPU memory", hist.GPUOccupiedMemory, " GB")

			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the reconciled history as JSON")

	return cmd
}

// writeSeries prints the latest and average value of one series. Absent
// series (a node without a GPU) are skipped entirely.
func writeSeries(w *tabwriter.Writer, label string, values []float64, unit string) {
	if len(values) == 0 {
		return
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	fmt.Fprintf(w, "%s:\t%.1f%s now, %.1f%s average\n", label, values[len(values)-1], unit, sum/float64(len(values)), unit)
}
