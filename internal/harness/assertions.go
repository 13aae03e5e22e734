package harness

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/tridup/internal/engine"
)

// AssertionError is returned when an expectation fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string       // Expectation that failed
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			if event.Detail != "" {
				fmt.Fprintf(&buf, "  [%d] %s: %s\n", event.Row, event.Outcome, event.Detail)
			} else {
				fmt.Fprintf(&buf, "  [%d] %s\n", event.Row, event.Outcome)
			}
		}
	}
	return buf.String()
}

func assertAdmitted(result *Result, want []int) error {
	got := result.AdmittedRows()
	if slices.Equal(got, want) {
		return nil
	}
	return &AssertionError{
		Type:     "admitted",
		Expected: fmt.Sprintf("rows %v", want),
		Actual:   fmt.Sprintf("rows %v", got),
		Trace:    result.Trace,
	}
}

func assertAux(result *Result, want map[int]int64) []error {
	var errs []error
	for _, row := range sortedRows(want) {
		event, ok := result.Event(row)
		switch {
		case !ok:
			errs = append(errs, &AssertionError{
				Type:     "aux",
				Expected: fmt.Sprintf("row %d admitted with aux %d", row, want[row]),
				Actual:   "row not in trace",
			})
		case event.Outcome != engine.Admit.String():
			errs = append(errs, &AssertionError{
				Type:     "aux",
				Expected: fmt.Sprintf("row %d admitted with aux %d", row, want[row]),
				Actual:   fmt.Sprintf("row %d rejected: %s", row, event.Detail),
				Trace:    result.Trace,
			})
		case event.Aux != want[row]:
			errs = append(errs, &AssertionError{
				Type:     "aux",
				Expected: fmt.Sprintf("row %d aux %d", row, want[row]),
				Actual:   fmt.Sprintf("row %d aux %d", row, event.Aux),
			})
		}
	}
	return errs
}

func assertOutcomes(result *Result, want map[int]string) []error {
	var errs []error
	for _, row := range sortedRows(want) {
		event, ok := result.Event(row)
		if ok && event.Outcome == want[row] {
			continue
		}
		actual := "row not in trace"
		if ok {
			actual = event.Outcome
		}
		errs = append(errs, &AssertionError{
			Type:     "outcomes",
			Expected: fmt.Sprintf("row %d %s", row, want[row]),
			Actual:   actual,
			Trace:    result.Trace,
		})
	}
	return errs
}

func assertStats(stats engine.Stats, want map[string]int) []error {
	names := make([]string, 0, len(want))
	for name := range want {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		get, ok := statNames[name]
		if !ok {
			errs = append(errs, fmt.Errorf("unknown counter %q", name))
			continue
		}
		if got := get(stats); got != want[name] {
			errs = append(errs, &AssertionError{
				Type:     "stats",
				Expected: fmt.Sprintf("%s = %d", name, want[name]),
				Actual:   fmt.Sprintf("%s = %d", name, got),
			})
		}
	}
	return errs
}

// assertInvariants re-checks the admitted set from scratch.
func assertInvariants(result *Result, limits engine.Limits) []error {
	var errs []error
	for _, v := range engine.Verify(result.Admitted, limits) {
		errs = append(errs, &AssertionError{
			Type:     "invariant",
			Expected: fmt.Sprintf("admitted set within %s", limits),
			Actual:   v.String(),
			Trace:    result.Trace,
		})
	}
	if err := result.Stats.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("stats: %w", err))
	}
	return errs
}

// EvaluateExpectations checks result against expect and the admission
// invariants. Returns the messages of every failed check.
func EvaluateExpectations(result *Result, expect Expect, limits engine.Limits) []string {
	var errs []error
	if expect.Admitted != nil {
		if err := assertAdmitted(result, expect.Admitted); err != nil {
			errs = append(errs, err)
		}
	}
	errs = append(errs, assertAux(result, expect.Aux)...)
	errs = append(errs, assertOutcomes(result, expect.Outcomes)...)
	errs = append(errs, assertStats(result.Stats, expect.Stats)...)
	errs = append(errs, assertInvariants(result, limits)...)

	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return msgs
}

func sortedRows[V any](m map[int]V) []int {
	rows := make([]int, 0, len(m))
	for row := range m {
		rows = append(rows, row)
	}
	sort.Ints(rows)
	return rows
}
