package cli

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/roach88/tridup/internal/config"
	"github.com/roach88/tridup/internal/engine"
	"github.com/roach88/tridup/internal/ir"
	"github.com/roach88/tridup/internal/table"
)

// input is a loaded and bound set of input tables.
type input struct {
	paths       []string
	table       *table.Table
	binding     *table.Binding
	records     []ir.Record
	fingerprint string
}

// loadInput reads, concatenates and binds the input tables.
func loadInput(cfg config.Config, paths []string) (*input, error) {
	t, err := table.ReadAll(paths, cfg.ReadOptions())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInput, err)
	}
	b, err := table.Bind(t.Header, cfg.Columns())
	if err != nil {
		return nil, err
	}
	records, err := b.Records(t)
	if err != nil {
		return nil, err
	}
	return &input{
		paths:       paths,
		table:       t,
		binding:     b,
		records:     records,
		fingerprint: ir.InputFingerprint(records),
	}, nil
}

// writeOutputs writes the admitted table and, when rejectsPath is set, the
// rejects report.
func writeOutputs(in *input, admitted []ir.Record, rejections []table.Rejection, outPath, rejectsPath string) error {
	if err := table.Write(outPath, table.Output(in.table.Header, in.binding, admitted)); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	if rejectsPath == "" {
		return nil
	}
	if err := table.Write(rejectsPath, table.Rejects(in.table.Header, in.records, rejections)); err != nil {
		return fmt.Errorf("write %s: %w", rejectsPath, err)
	}
	return nil
}

// RunSummary is the result of run and resume.
type RunSummary struct {
	RunID     string       `json:"run_id,omitempty"`
	Inputs    []string     `json:"inputs"`
	Output    string       `json:"output,omitempty"`
	Rejects   string       `json:"rejects,omitempty"`
	StartRow  int          `json:"start_row"`
	Stats     engine.Stats `json:"stats"`
	DedupRate float64      `json:"dedup_rate"`
	Complete  bool         `json:"complete"`
}

func newRunSummary(runID string, in *input, startRow int, res *engine.Result) RunSummary {
	return RunSummary{
		RunID:     runID,
		Inputs:    in.paths,
		StartRow:  startRow,
		Stats:     res.Stats,
		DedupRate: math.Round(res.Stats.DedupRate()*100) / 100,
		Complete:  res.Complete,
	}
}

// printRunSummary renders s for humans.
func printRunSummary(w io.Writer, title string, s RunSummary) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed, color.Bold).SprintFunc()

	st := s.Stats
	fmt.Fprintf(w, "%s\n", cyan("=== "+title+" ==="))
	if s.RunID != "" {
		fmt.Fprintf(w, "Run:         %s\n", s.RunID)
	}
	fmt.Fprintf(w, "Inputs:      %s\n", strings.Join(s.Inputs, ", "))
	fmt.Fprintf(w, "Rows:        %d (%d distinct triples)\n", st.TotalRecords, st.DistinctTriples)
	if s.StartRow > 0 {
		fmt.Fprintf(w, "Resumed at:  row %d\n", s.StartRow)
	}
	fmt.Fprintf(w, "Processed:   %d\n", st.Processed)
	fmt.Fprintf(w, "Admitted:    %s\n", green(st.Admitted))
	fmt.Fprintf(w, "Rejected:    %s (exact %d, pair %d, value %d)\n",
		yellow(st.Rejected()), st.RejectedExact, st.RejectedPair, st.RejectedValue)
	fmt.Fprintf(w, "Dedup rate:  %.2f%%\n", st.DedupRate())
	fmt.Fprintf(w, "Elapsed:     %s\n", time.Duration(st.ElapsedMs)*time.Millisecond)
	if s.Output != "" {
		fmt.Fprintf(w, "Output:      %s\n", s.Output)
	}
	if s.Rejects != "" {
		fmt.Fprintf(w, "Rejects:     %s\n", s.Rejects)
	}
	if !s.Complete {
		fmt.Fprintf(w, "%s\n", red(fmt.Sprintf("Interrupted after row %d.", st.Processed)))
		if s.RunID != "" {
			fmt.Fprintf(w, "Resume with: tridup resume %s %s\n", s.RunID, strings.Join(s.Inputs, " "))
		}
	}
}
