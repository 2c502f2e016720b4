package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kcaldas/blockfit/internal/di"
	"github.com/kcaldas/blockfit/pkg/coordinator"
)

func newBatchCommand(app func() *di.App) *cobra.Command {
	var (
		maxConcurrent int
		asJSON        bool
	)
	cmd := &cobra.Command{
		Use:   "batch <batch-file|->",
		Short: "Run every request in a batch file with bounded concurrency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			spec, err := loadBatch(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}

			limit := a.Settings.MaxConcurrent
			if spec.MaxConcurrent > 0 {
				limit = spec.MaxConcurrent
			}
			if cmd.Flags().Changed("max-concurrent") {
				limit = maxConcurrent
			}

			reqs := make([]coordinator.Request, len(spec.Requests))
			for i, rs := range spec.Requests {
				reqs[i] = toRequest(rs, a.Settings, a.Selector.Counter())
				if rs.Label == "" {
					reqs[i].Label = fmt.Sprintf("batch%d", i)
				}
			}

			recs := a.Coordinator.RunBatch(cmd.Context(), reqs, limit)
			if asJSON {
				if err := writeJSON(cmd.OutOrStdout(), recs); err != nil {
					return err
				}
			} else {
				printBatchTable(cmd.OutOrStdout(), recs)
			}

			failed := 0
			for _, r := range recs {
				if r.Status != coordinator.StatusCompleted {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d runs did not complete", failed, len(recs))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&maxConcurrent, "max-concurrent", "c", 0, "maximum runs in flight")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print run records as JSON")
	return cmd
}

func printBatchTable(w io.Writer, recs []coordinator.Record) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LABEL\tSTATUS\tKEPT\tTOKENS\tRATIO\tDURATION")
	for _, r := range recs {
		if r.Outcome == nil {
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t-\t%s\n", r.Label, r.Status, r.Duration())
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d/%d\t%.3f\t%s\n", r.Label, r.Status,
			r.Outcome.BlocksKept, r.Outcome.OptimizedTokens, r.Outcome.OriginalTokens,
			r.Outcome.CompressionRatio, r.Duration())
	}
	_ = tw.Flush()
}
