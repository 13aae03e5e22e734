package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/tridup/internal/engine"
)

// CheckReport is the result of the check command.
type CheckReport struct {
	Inputs     []string        `json:"inputs"`
	Rows       int             `json:"rows"`
	Limits     engine.Limits   `json:"limits"`
	Valid      bool            `json:"valid"`
	Violations []ViolationView `json:"violations"`
}

// ViolationView is the JSON form of engine.Violation.
type ViolationView struct {
	Kind    string `json:"kind"`
	Subject string `json:"subject"`
	Count   int    `json:"count"`
	Limit   int    `json:"limit"`
	Rows    []int  `json:"rows"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &ConfigFlags{}

	cmd := &cobra.Command{
		Use:   "check <table>...",
		Short: "Verify that a table satisfies the admission limits",
		Long: `Check an existing table against the three admission invariants:
no identifier triple twice, no pair in more records than the pair limit,
no identifier value more often than the value limit.

Exits with status 1 when violations are found.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, flags, args, cmd)
		},
	}

	flags.register(cmd)
	return cmd
}

func runCheck(opts *RootOptions, flags *ConfigFlags, paths []string, cmd *cobra.Command) error {
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
	in, err := loadInput(cfg, paths)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to load input", err)
	}

	violations := engine.Verify(in.records, cfg.Limits())
	report := CheckReport{
		Inputs:     paths,
		Rows:       len(in.records),
		Limits:     cfg.Limits(),
		Valid:      len(violations) == 0,
		Violations: make([]ViolationView, len(violations)),
	}
	for i, v := range violations {
		report.Violations[i] = ViolationView{
			Kind:    v.Kind.String(),
			Subject: v.Subject,
			Count:   v.Count,
			Limit:   v.Limit,
			Rows:    v.Rows,
		}
	}

	if formatter.IsJSON() {
		if err := formatter.Success(report); err != nil {
			return err
		}
	} else {
		printCheckReport(formatter, report, violations)
	}

	if !report.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d violation(s)", len(violations)))
	}
	return nil
}

func printCheckReport(f *OutputFormatter, r CheckReport, violations []engine.Violation) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed, color.Bold).SprintFunc()

	if r.Valid {
		fmt.Fprintf(f.Writer, "%s %d rows satisfy %s\n", green("OK"), r.Rows, r.Limits)
		return
	}
	fmt.Fprintf(f.Writer, "%s %d violation(s) in %d rows (%s)\n", red("FAIL"), len(violations), r.Rows, r.Limits)
	for _, v := range violations {
		fmt.Fprintf(f.Writer, "  %s\n", v)
	}
}
