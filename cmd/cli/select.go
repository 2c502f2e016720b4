package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/glamour"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/kcaldas/blockfit/internal/di"
	"github.com/kcaldas/blockfit/pkg/blocks"
	"github.com/kcaldas/blockfit/pkg/coordinator"
)

type selectOptions struct {
	strategy          string
	maxTokens         int
	preserveStructure bool
	timeout           time.Duration
	asJSON            bool
	render            bool
	diff              bool
	copy              bool
}

func newSelectCommand(app func() *di.App) *cobra.Command {
	opts := &selectOptions{}
	cmd := &cobra.Command{
		Use:   "select [request-file|-]",
		Short: "Select blocks from a request file into a token budget",
		Long: `Reads a YAML or JSON request, runs it through the coordinator and prints
the assembled content. Flags override the values in the request file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := ""
			if len(args) == 1 {
				arg = args[0]
			}
			return runSelect(cmd, app(), arg, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.strategy, "strategy", "s", "", "scoring strategy (priority, recency, importance, semantic, balanced)")
	cmd.Flags().IntVarP(&opts.maxTokens, "max-tokens", "m", 0, "token budget")
	cmd.Flags().BoolVar(&opts.preserveStructure, "preserve-structure", true, "group output by section")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "completion timeout")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the run record as JSON")
	cmd.Flags().BoolVar(&opts.render, "render", false, "render the output as markdown")
	cmd.Flags().BoolVar(&opts.diff, "diff", false, "print a unified diff of the input against the output")
	cmd.Flags().BoolVar(&opts.copy, "copy", false, "copy the output to the clipboard")
	cmd.MarkFlagsMutuallyExclusive("json", "render")
	cmd.MarkFlagsMutuallyExclusive("json", "diff")
	return cmd
}

func runSelect(cmd *cobra.Command, app *di.App, arg string, opts *selectOptions) error {
	spec, err := loadRequest(arg, cmd.InOrStdin())
	if err != nil {
		return err
	}

	req := toRequest(spec, app.Settings, app.Selector.Counter())
	flags := cmd.Flags()
	if flags.Changed("strategy") {
		req.Strategy = blocks.Strategy(opts.strategy)
	}
	if flags.Changed("max-tokens") {
		req.MaxTokens = opts.maxTokens
	}
	if flags.Changed("preserve-structure") {
		req.PreserveStructure = opts.preserveStructure
	}
	if flags.Changed("timeout") {
		req.Timeout = opts.timeout
	}

	app.Logger.Debug("running selection", "source", arg, "blocks", len(req.Blocks), "max_tokens", req.MaxTokens)
	rec := app.Coordinator.Run(cmd.Context(), req)

	out := cmd.OutOrStdout()
	if opts.asJSON {
		if err := writeJSON(out, rec); err != nil {
			return err
		}
		return statusError(rec)
	}
	if err := statusError(rec); err != nil {
		return err
	}

	content := rec.Outcome.OptimizedContent
	switch {
	case opts.diff:
		text, err := unifiedDiff(originalContent(req.Blocks), content)
		if err != nil {
			return err
		}
		fmt.Fprint(out, text)
	case opts.render:
		rendered, err := renderMarkdown(content, isTerminal(out))
		if err != nil {
			return err
		}
		fmt.Fprint(out, rendered)
	default:
		fmt.Fprintln(out, content)
	}
	printSummary(cmd.ErrOrStderr(), rec)

	if opts.copy {
		if err := clipboard.WriteAll(content); err != nil {
			return fmt.Errorf("failed to copy output: %w", err)
		}
	}
	return nil
}

func statusError(rec coordinator.Record) error {
	if rec.Status == coordinator.StatusCompleted {
		return nil
	}
	return fmt.Errorf("run %s finished with status %s: %s", rec.RunID, rec.Status, rec.ErrorMessage)
}

func printSummary(w io.Writer, rec coordinator.Record) {
	o := rec.Outcome
	fmt.Fprintf(w, "%s: kept %d, dropped %d, truncated %d, %d/%d tokens (ratio %.3f, %s)\n",
		rec.RunID, o.BlocksKept, o.BlocksDropped, o.BlocksTruncated,
		o.OptimizedTokens, o.OriginalTokens, o.CompressionRatio, o.StrategyUsed)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

func unifiedDiff(original, optimized string) (string, error) {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(optimized),
		FromFile: "input",
		ToFile:   "selected",
		Context:  2,
	})
	if err != nil {
		return "", fmt.Errorf("failed to diff output: %w", err)
	}
	return text, nil
}

func renderMarkdown(content string, terminal bool) (string, error) {
	style := "notty"
	if terminal {
		style = "dark"
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := renderer.Render(content)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}
