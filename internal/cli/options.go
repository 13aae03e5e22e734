package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/tridup/internal/config"
)

var (
	errInput          = errors.New("input error")
	errResumeMismatch = errors.New("run does not match")
)

// ConfigFlags are the configuration flags shared by run, resume, check and
// validate. Flags override the config file and the environment only when
// set on the command line.
type ConfigFlags struct {
	Path      string
	EnvFile   string
	IDs       string
	Sum       string
	MaxPair   int
	MaxValue  int
	Sheet     string
	HeaderRow int
	Workers   int
}

func (f *ConfigFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.Path, "config", "c", "", "config file (.yaml, .toml or .cue)")
	fl.StringVar(&f.EnvFile, "env-file", ".env", "dotenv file with TRIDUP_* variables (skipped if missing)")
	fl.StringVar(&f.IDs, "ids", "", "comma-separated identifier columns (exactly 3)")
	fl.StringVar(&f.Sum, "sum", "", "auxiliary sum column")
	fl.IntVar(&f.MaxPair, "max-pair", 0, "max admitted records sharing a pair")
	fl.IntVar(&f.MaxValue, "max-value", 0, "max occurrences of one identifier value")
	fl.StringVar(&f.Sheet, "sheet", "", "worksheet of .xlsx inputs (default first)")
	fl.IntVar(&f.HeaderRow, "header-row", 0, "0-based row holding the column names")
	fl.IntVar(&f.Workers, "workers", 0, "goroutines for the aggregation pre-pass")
}

// resolve layers defaults, the config file, the environment and the flags
// changed on cmd, then validates the result.
func (f *ConfigFlags) resolve(cmd *cobra.Command) (config.Config, error) {
	if f.EnvFile != "" {
		if err := config.LoadDotEnv(f.EnvFile); err != nil {
			return config.Config{}, err
		}
	}
	cfg, err := config.Load(f.Path)
	if err != nil {
		return cfg, err
	}

	changed := cmd.Flags().Changed
	if changed("ids") {
		cfg.IdentifierColumns = config.SplitColumns(f.IDs)
	}
	if changed("sum") {
		cfg.AuxiliarySumField = f.Sum
	}
	if changed("max-pair") {
		cfg.MaxPairDuplicates = f.MaxPair
	}
	if changed("max-value") {
		cfg.MaxValueFrequency = f.MaxValue
	}
	if changed("sheet") {
		cfg.Sheet = f.Sheet
	}
	if changed("header-row") {
		cfg.HeaderRow = f.HeaderRow
	}
	if changed("workers") {
		cfg.Workers = f.Workers
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newLogger returns the text logger for a command: Info by default, Debug
// with --verbose.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
// The command's context is used as parent when set (tests).
func signalContext(cmd *cobra.Command, logger *slog.Logger) (context.Context, context.CancelFunc) {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping after the current row", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
