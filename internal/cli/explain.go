package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/tridup/internal/engine"
	"github.com/roach88/tridup/internal/store"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	*RootOptions
	Database string
	Row      int
	Outcome  string
}

// ExplainResult is the JSON payload of explain.
type ExplainResult struct {
	RunID     string                 `json:"run_id"`
	Decisions []store.DecisionRecord `json:"decisions"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain <run-id>",
		Short: "Show why rows of a journaled run were admitted or rejected",
		Long: `Print the journaled decision of every row of a run, or of one row.

Example:
  tridup explain 0190b6a2-... --db journal.db --row 42
  tridup explain 0190b6a2-... --db journal.db --outcome pair_limit`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite journal (required)")
	cmd.Flags().IntVar(&opts.Row, "row", -1, "only this 0-based data row")
	cmd.Flags().StringVar(&opts.Outcome, "outcome", "", "only this outcome (admit|exact_duplicate|pair_limit|value_limit)")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}

func runExplain(opts *ExplainOptions, runID string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	var filter store.DecisionFilter
	if opts.Row >= 0 {
		filter.Row = &opts.Row
	}
	if opts.Outcome != "" {
		o, err := engine.ParseOutcome(opts.Outcome)
		if err != nil {
			return formatter.Fail(ExitCommandError, "invalid --outcome", err)
		}
		filter.Outcome = &o
	}

	st, err := openExisting(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	if _, err := st.GetRun(ctx, runID); err != nil {
		return formatter.Fail(ExitCommandError, fmt.Sprintf("run %s", runID), err)
	}
	decisions, err := st.ReadDecisions(ctx, runID, filter)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to read decisions", err)
	}

	if formatter.IsJSON() {
		return formatter.Success(ExplainResult{RunID: runID, Decisions: decisions})
	}

	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	w := formatter.Writer
	if len(decisions) == 0 {
		fmt.Fprintln(w, "No matching decisions")
		return nil
	}
	for _, d := range decisions {
		if d.Outcome == engine.Admit {
			fmt.Fprintf(w, "row %-6d %s\n", d.Row, green("admit"))
			continue
		}
		fmt.Fprintf(w, "row %-6d %s  %s\n", d.Row, yellow(fmt.Sprintf("%-15s", d.Outcome)), d.Detail)
	}
	return nil
}
