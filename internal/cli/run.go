package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/tridup/internal/config"
	"github.com/roach88/tridup/internal/engine"
	"github.com/roach88/tridup/internal/store"
	"github.com/roach88/tridup/internal/table"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	ConfigFlags
	Output   string
	Rejects  string
	Database string

	// Clock overrides the engine clock (for testing).
	Clock engine.Clock

	// IDGenerator overrides the run ID generator (for testing).
	// If nil, the store uses UUIDv7Generator.
	IDGenerator store.IDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <input>...",
		Short: "Filter input tables and write the admitted rows",
		Long: `Read one or more tables (.csv, .tsv or .xlsx), admit rows in input order
and write the admitted rows with their summed auxiliary column.

With --db every decision and periodic checkpoints are journaled in SQLite,
so an interrupted run can be continued with "tridup resume".

Example:
  tridup run heroes.xlsx -o filtered.xlsx --header-row 1
  tridup run a.csv b.csv -o out.csv --rejects rejects.csv --db journal.db`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilter(opts, args, cmd)
		},
	}

	opts.ConfigFlags.register(cmd)
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output table (required)")
	cmd.Flags().StringVar(&opts.Rejects, "rejects", "", "write rejected rows with reasons to this table")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite journal for decisions and checkpoints")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runFilter(opts *RunOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := opts.resolve(cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, "invalid configuration", err)
	}
	formatter.VerboseLog("Config: %s", cfg)

	in, err := loadInput(cfg, paths)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to load input", err)
	}
	logger.Info("input loaded", "files", len(paths), "rows", len(in.records))

	var (
		st      *store.Store
		journal *store.Journal
	)
	if opts.Database != "" {
		st, err = store.Open(opts.Database, store.WithIDGenerator(opts.IDGenerator))
		if err != nil {
			return formatter.Fail(ExitCommandError, "failed to open journal", err)
		}
		defer closeStore(st, logger)

		run, err := createRun(cmd.Context(), st, cfg, in)
		if err != nil {
			return formatter.Fail(ExitCommandError, "failed to create run", err)
		}
		journal = store.NewJournal(st, run.ID)
		logger.Info("run journaled", "run_id", run.ID, "db", opts.Database)
	}

	engineOpts := []engine.EngineOption{
		engine.WithLogger(logger),
		engine.WithWorkers(cfg.Workers),
		engine.WithProgressEvery(cfg.ProgressEvery),
		engine.WithCheckpointEvery(cfg.CheckpointEvery),
		engine.WithClock(opts.Clock),
	}
	if journal != nil {
		engineOpts = append(engineOpts, engine.WithJournal(journal))
	}
	eng, err := engine.New(cfg.Limits(), engineOpts...)
	if err != nil {
		return formatter.Fail(ExitCommandError, "invalid limits", err)
	}

	ctx, stop := signalContext(cmd, logger)
	defer stop()
	res, runErr := eng.Run(ctx, in.records)

	runID := ""
	if journal != nil {
		runID = journal.RunID()
	}
	return finishRun(formatter, finishParams{
		title:      "tridup run",
		store:      st,
		runID:      runID,
		in:         in,
		startRow:   0,
		res:        res,
		runErr:     runErr,
		rejections: func() ([]table.Rejection, error) { return table.Rejections(res.Decisions), nil },
		output:     opts.Output,
		rejects:    opts.Rejects,
	})
}

func createRun(ctx context.Context, st *store.Store, cfg config.Config, in *input) (*store.Run, error) {
	hash, err := cfg.Hash()
	if err != nil {
		return nil, err
	}
	data, err := cfg.MarshalCanonical()
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return st.CreateRun(ctx, store.NewRun{
		ConfigHash:       hash,
		Config:           data,
		InputFingerprint: in.fingerprint,
		InputRows:        len(in.records),
		Limits:           cfg.Limits(),
	})
}

type finishParams struct {
	title      string
	store      *store.Store
	runID      string
	in         *input
	startRow   int
	res        *engine.Result
	runErr     error
	rejections func() ([]table.Rejection, error)
	output     string
	rejects    string
}

// finishRun records the final run status, writes the outputs of a
// complete run and prints the summary.
func finishRun(f *OutputFormatter, p finishParams) error {
	ctx := context.Background()
	interrupted := p.runErr != nil && p.res != nil &&
		(errors.Is(p.runErr, context.Canceled) || errors.Is(p.runErr, context.DeadlineExceeded))

	if p.runErr != nil && !interrupted {
		if p.store != nil && p.runID != "" {
			_ = p.store.SetStatus(ctx, p.runID, store.StatusFailed)
		}
		return f.Fail(ExitCommandError, "run failed", p.runErr)
	}

	summary := newRunSummary(p.runID, p.in, p.startRow, p.res)
	if interrupted {
		if p.store != nil && p.runID != "" {
			if err := p.store.FinishRun(ctx, p.runID, store.StatusInterrupted, p.res.Stats); err != nil {
				return f.Fail(ExitCommandError, "failed to record interrupted run", err)
			}
		}
		if err := reportSummary(f, p.title, summary); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "run interrupted")
	}

	rejections, err := p.rejections()
	if err != nil {
		return f.Fail(ExitCommandError, "failed to read decisions", err)
	}
	if err := writeOutputs(p.in, p.res.Admitted, rejections, p.output, p.rejects); err != nil {
		return f.Fail(ExitCommandError, "failed to write output", err)
	}
	if p.store != nil && p.runID != "" {
		if err := p.store.FinishRun(ctx, p.runID, store.StatusComplete, p.res.Stats); err != nil {
			return f.Fail(ExitCommandError, "failed to record run", err)
		}
	}

	summary.Output = p.output
	summary.Rejects = p.rejects
	return reportSummary(f, p.title, summary)
}

func reportSummary(f *OutputFormatter, title string, s RunSummary) error {
	if f.IsJSON() {
		return f.Success(s)
	}
	printRunSummary(f.Writer, title, s)
	return nil
}

func closeStore(st *store.Store, logger *slog.Logger) {
	if err := st.Close(); err != nil {
		logger.Error("error closing journal", "error", err)
	}
}
