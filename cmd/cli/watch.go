package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kcaldas/blockfit/internal/di"
)

func newWatchCommand(app func() *di.App) *cobra.Command {
	var (
		threshold float64
		interval  time.Duration
		timeout   time.Duration
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Wait until memory usage crosses a threshold",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if threshold <= 0 || threshold > 1 {
				return fmt.Errorf("threshold must be in (0, 1], got %v", threshold)
			}
			rec, err := app().Coordinator.Watch(cmd.Context(), threshold, interval, timeout)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), rec)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "usage %.3f crossed %.3f at %s (%s pressure)\n",
				rec.Usage, rec.Threshold, rec.Timestamp.Format(time.RFC3339), rec.PressureLevel)
			return nil
		},
	}
	cmd.Flags().Float64VarP(&threshold, "threshold", "t", 0.8, "usage fraction to wait for")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "time between checks")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "give up after this long")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the threshold record as JSON")
	return cmd
}
