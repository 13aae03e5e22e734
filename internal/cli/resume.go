package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tridup/internal/engine"
	"github.com/roach88/tridup/internal/store"
	"github.com/roach88/tridup/internal/table"
)

// ResumeOptions holds flags for the resume command.
type ResumeOptions struct {
	*RootOptions
	ConfigFlags
	Output   string
	Rejects  string
	Database string

	// Clock overrides the engine clock (for testing).
	Clock engine.Clock
}

// NewResumeCommand creates the resume command.
func NewResumeCommand(rootOpts *RootOptions) *cobra.Command {
	return newResumeCommand(&ResumeOptions{RootOptions: rootOpts})
}

func newResumeCommand(opts *ResumeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume <run-id> <input>...",
		Short: "Continue an interrupted run from its last checkpoint",
		Long: `Continue a journaled run that was interrupted.

The configuration is resolved as for "run" and must hash to the value the
run was started with; the inputs must have the same fingerprint. The output
is identical to an uninterrupted run.

Example:
  tridup resume 0190b6a2-... heroes.xlsx --db journal.db -o filtered.xlsx`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResume(opts, args[0], args[1:], cmd)
		},
	}

	opts.ConfigFlags.register(cmd)
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output table (required)")
	cmd.Flags().StringVar(&opts.Rejects, "rejects", "", "write rejected rows with reasons to this table")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite journal of the run (required)")
	_ = cmd.MarkFlagRequired("output")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runResume(opts *ResumeOptions, runID string, paths []string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	st, err := openExisting(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to open journal", err)
	}
	defer closeStore(st, logger)

	run, err := st.GetRun(ctx, runID)
	if err != nil {
		return formatter.Fail(ExitCommandError, fmt.Sprintf("run %s", runID), err)
	}
	if !run.Resumable() {
		return formatter.Fail(ExitCommandError, "cannot resume",
			fmt.Errorf("%w: run %s is %s", errResumeMismatch, run.ID, run.Status))
	}

	cfg, err := opts.resolve(cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, "invalid configuration", err)
	}
	hash, err := cfg.Hash()
	if err != nil {
		return formatter.Fail(ExitCommandError, "invalid configuration", err)
	}
	if hash != run.ConfigHash {
		return formatter.Fail(ExitCommandError, "cannot resume",
			fmt.Errorf("%w: configuration differs from run %s (started with %s)", errResumeMismatch, run.ID, run.Config))
	}

	in, err := loadInput(cfg, paths)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to load input", err)
	}
	if in.fingerprint != run.InputFingerprint || len(in.records) != run.InputRows {
		return formatter.Fail(ExitCommandError, "cannot resume",
			fmt.Errorf("%w: input differs from run %s (%d rows, now %d)", errResumeMismatch, run.ID, run.InputRows, len(in.records)))
	}

	cp, err := st.LoadCheckpoint(ctx, run.ID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		cp = nil
		logger.Info("no checkpoint, restarting run from row 0", "run_id", run.ID)
	case err != nil:
		return formatter.Fail(ExitCommandError, "failed to load checkpoint", err)
	}

	engineOpts := []engine.EngineOption{
		engine.WithLogger(logger),
		engine.WithWorkers(cfg.Workers),
		engine.WithProgressEvery(cfg.ProgressEvery),
		engine.WithCheckpointEvery(cfg.CheckpointEvery),
		engine.WithClock(opts.Clock),
		engine.WithJournal(store.NewJournal(st, run.ID)),
	}
	startRow := 0
	if cp != nil {
		engineOpts = append(engineOpts, engine.WithCheckpoint(cp))
		startRow = cp.NextRow
	}
	eng, err := engine.New(cfg.Limits(), engineOpts...)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to restore run", err)
	}

	if err := st.SetStatus(ctx, run.ID, store.StatusRunning); err != nil {
		return formatter.Fail(ExitCommandError, "failed to reopen run", err)
	}
	logger.Info("resuming run", "run_id", run.ID, "start_row", startRow)

	runCtx, stop := signalContext(cmd, logger)
	defer stop()
	res, runErr := eng.Run(runCtx, in.records)

	return finishRun(formatter, finishParams{
		title:    "tridup resume",
		store:    st,
		runID:    run.ID,
		in:       in,
		startRow: startRow,
		res:      res,
		runErr:   runErr,
		rejections: func() ([]table.Rejection, error) {
			return journaledRejections(cmd, st, run.ID)
		},
		output:  opts.Output,
		rejects: opts.Rejects,
	})
}

// journaledRejections reads the rejected rows of a run from the journal.
// A resumed engine only knows the rows after its checkpoint.
func journaledRejections(cmd *cobra.Command, st *store.Store, runID string) ([]table.Rejection, error) {
	decisions, err := st.ReadDecisions(cmd.Context(), runID, store.DecisionFilter{})
	if err != nil {
		return nil, err
	}
	var out []table.Rejection
	for _, d := range decisions {
		if d.Outcome == engine.Admit {
			continue
		}
		out = append(out, table.Rejection{Row: d.Row, Reason: d.Outcome.String(), Detail: d.Detail})
	}
	return out, nil
}

// openExisting opens a journal that must already exist.
func openExisting(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return store.Open(path)
}
