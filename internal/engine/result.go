package engine

import (
	"fmt"

	"github.com/roach88/tridup/internal/ir"
)

// Stats summarizes a run.
type Stats struct {
	TotalRecords    int   `json:"total_records"`
	Processed       int   `json:"processed"`
	Admitted        int   `json:"admitted"`
	RejectedExact   int   `json:"rejected_exact"`
	RejectedPair    int   `json:"rejected_pair"`
	RejectedValue   int   `json:"rejected_value"`
	DistinctTriples int   `json:"distinct_triples"`
	ElapsedMs       int64 `json:"elapsed_ms"`
}

// Rejected returns the number of rejected records.
func (s Stats) Rejected() int {
	return s.RejectedExact + s.RejectedPair + s.RejectedValue
}

// DedupRate returns the share of processed records that were rejected, in
// percent. Zero when nothing was processed.
func (s Stats) DedupRate() float64 {
	if s.Processed == 0 {
		return 0
	}
	return float64(s.Rejected()) / float64(s.Processed) * 100
}

// Validate checks the internal consistency of the counters.
func (s Stats) Validate() error {
	if s.Admitted+s.Rejected() != s.Processed {
		return fmt.Errorf("admitted (%d) + rejected (%d) != processed (%d)",
			s.Admitted, s.Rejected(), s.Processed)
	}
	if s.Processed > s.TotalRecords {
		return fmt.Errorf("processed (%d) > total records (%d)", s.Processed, s.TotalRecords)
	}
	if s.Admitted > s.DistinctTriples && s.DistinctTriples > 0 {
		return fmt.Errorf("admitted (%d) > distinct triples (%d)", s.Admitted, s.DistinctTriples)
	}
	return nil
}

func (s *Stats) count(d Decision) {
	s.Processed++
	switch d.Outcome {
	case Admit:
		s.Admitted++
	case RejectExactDuplicate:
		s.RejectedExact++
	case RejectPairLimit:
		s.RejectedPair++
	case RejectValueLimit:
		s.RejectedValue++
	}
}

func (s Stats) canonical() map[string]any {
	return map[string]any{
		"total_records":    s.TotalRecords,
		"processed":        s.Processed,
		"admitted":         s.Admitted,
		"rejected_exact":   s.RejectedExact,
		"rejected_pair":    s.RejectedPair,
		"rejected_value":   s.RejectedValue,
		"distinct_triples": s.DistinctTriples,
		"elapsed_ms":       s.ElapsedMs,
	}
}

// Result is the output of a run.
type Result struct {
	// Admitted holds the admitted records in input order, with Aux replaced
	// by the aggregate of their triple.
	Admitted []ir.Record

	// Decisions holds one decision per row processed by this invocation.
	// A resumed run only carries the rows after its checkpoint.
	Decisions []Decision

	Stats Stats

	// Complete is false when the run stopped early on cancellation.
	Complete bool
}

// AdmittedRows returns the row indices of the admitted records.
func (r *Result) AdmittedRows() []int {
	rows := make([]int, len(r.Admitted))
	for i, rec := range r.Admitted {
		rows[i] = rec.Row
	}
	return rows
}
