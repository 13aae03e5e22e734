package harness

import (
	"github.com/roach88/tridup/internal/engine"
	"github.com/roach88/tridup/internal/ir"
)

// TraceEvent is one journaled decision, as read back from the store.
type TraceEvent struct {
	Row     int    `json:"row"`
	Outcome string `json:"outcome"`
	Subject string `json:"subject,omitempty"`
	Detail  string `json:"detail,omitempty"`

	// Aux is the aggregated sum of an admitted row.
	Aux int64 `json:"aux,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expectation and invariant holds.
	Pass bool `json:"pass"`

	// Trace holds one event per input row in row order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Admitted holds the admitted records with aggregated Aux.
	Admitted []ir.Record `json:"-"`

	Stats engine.Stats `json:"stats"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AdmittedRows returns the rows of the admitted records in input order.
func (r *Result) AdmittedRows() []int {
	rows := make([]int, len(r.Admitted))
	for i, rec := range r.Admitted {
		rows[i] = rec.Row
	}
	return rows
}

// Event returns the trace event for row, or false if the row was not traced.
func (r *Result) Event(row int) (TraceEvent, bool) {
	if row < 0 || row >= len(r.Trace) || r.Trace[row].Row != row {
		return TraceEvent{}, false
	}
	return r.Trace[row], true
}
