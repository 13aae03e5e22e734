package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/tridup/internal/engine"
	"github.com/roach88/tridup/internal/store"
)

// RunView is the JSON form of a journaled run.
type RunView struct {
	ID               string        `json:"id"`
	Status           string        `json:"status"`
	InputRows        int           `json:"input_rows"`
	NextRow          int           `json:"next_row"`
	Admitted         int           `json:"admitted"`
	RejectedExact    int           `json:"rejected_exact"`
	RejectedPair     int           `json:"rejected_pair"`
	RejectedValue    int           `json:"rejected_value"`
	Limits           engine.Limits `json:"limits"`
	ConfigHash       string        `json:"config_hash"`
	InputFingerprint string        `json:"input_fingerprint"`
	CreatedAt        string        `json:"created_at"`
}

func viewOf(r *store.Run) RunView {
	return RunView{
		ID:               r.ID,
		Status:           string(r.Status),
		InputRows:        r.InputRows,
		NextRow:          r.NextRow,
		Admitted:         r.Admitted,
		RejectedExact:    r.RejectedExact,
		RejectedPair:     r.RejectedPair,
		RejectedValue:    r.RejectedValue,
		Limits:           r.Limits,
		ConfigHash:       r.ConfigHash,
		InputFingerprint: r.InputFingerprint,
		CreatedAt:        r.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	var database string

	cmd := &cobra.Command{
		Use:           "runs",
		Short:         "List journaled runs",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(rootOpts, database, cmd)
		},
	}

	cmd.Flags().StringVar(&database, "db", "", "SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}

func runRuns(opts *RootOptions, database string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := openExisting(database)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	runs, err := st.ListRuns(cmd.Context())
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to list runs", err)
	}

	views := make([]RunView, len(runs))
	for i, r := range runs {
		views[i] = viewOf(r)
	}
	if formatter.IsJSON() {
		return formatter.Success(views)
	}

	w := formatter.Writer
	if len(views) == 0 {
		fmt.Fprintln(w, color.New(color.FgHiBlack).Sprint("No runs"))
		return nil
	}
	fmt.Fprintf(w, "%-36s  %-11s  %9s  %9s  %9s  %s\n", "RUN", "STATUS", "ROWS", "ADMITTED", "REJECTED", "CREATED")
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %s  %9s  %9d  %9d  %s\n",
			r.ID,
			statusColor(r.Status).Sprintf("%-11s", r.Status),
			fmt.Sprintf("%d/%d", r.NextRow, r.InputRows),
			r.Admitted,
			r.Rejected(),
			r.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	return nil
}

func statusColor(s store.RunStatus) *color.Color {
	switch s {
	case store.StatusComplete:
		return color.New(color.FgGreen)
	case store.StatusRunning:
		return color.New(color.FgCyan)
	case store.StatusInterrupted:
		return color.New(color.FgYellow)
	}
	return color.New(color.FgRed, color.Bold)
}
