package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/tridup/internal/config"
)

// ValidationResult is the JSON payload of a successful validate.
type ValidationResult struct {
	Valid  bool          `json:"valid"`
	Hash   string        `json:"hash"`
	Config config.Config `json:"config"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &ConfigFlags{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Print the effective configuration or the validation error",
		Long: `Resolve the configuration exactly as "run" would (defaults, config file,
.env, TRIDUP_* environment, flags) and print it with its hash.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, flags, cmd)
		},
	}

	flags.register(cmd)
	return cmd
}

func runValidate(opts *RootOptions, flags *ConfigFlags, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := flags.resolve(cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, "invalid configuration", err)
	}
	hash, err := cfg.Hash()
	if err != nil {
		return formatter.Fail(ExitCommandError, "hash configuration", err)
	}

	if formatter.IsJSON() {
		return formatter.Success(ValidationResult{Valid: true, Hash: hash, Config: cfg})
	}

	green := color.New(color.FgGreen).SprintFunc()
	w := formatter.Writer
	fmt.Fprintf(w, "%s configuration is valid\n", green("✓"))
	fmt.Fprintf(w, "  identifier_columns:  %s\n", strings.Join(cfg.IdentifierColumns, ", "))
	fmt.Fprintf(w, "  auxiliary_sum_field: %s\n", cfg.AuxiliarySumField)
	fmt.Fprintf(w, "  max_pair_duplicates: %d\n", cfg.MaxPairDuplicates)
	fmt.Fprintf(w, "  max_value_frequency: %d\n", cfg.MaxValueFrequency)
	fmt.Fprintf(w, "  sheet:               %q\n", cfg.Sheet)
	fmt.Fprintf(w, "  header_row:          %d\n", cfg.HeaderRow)
	fmt.Fprintf(w, "  workers:             %d\n", cfg.Workers)
	fmt.Fprintf(w, "  progress_every:      %d\n", cfg.ProgressEvery)
	fmt.Fprintf(w, "  checkpoint_every:    %d\n", cfg.CheckpointEvery)
	fmt.Fprintf(w, "  hash:                %s\n", hash)
	return nil
}
