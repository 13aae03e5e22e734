package table

import (
	"slices"
	"strconv"

	"github.com/roach88/tridup/internal/engine"
	"github.com/roach88/tridup/internal/ir"
)

// Extra columns of the rejects report.
const (
	ColumnRejectReason = "reject_reason"
	ColumnRejectDetail = "reject_detail"
)

// Output renders the admitted records with the input header, in input
// order, with the sum column replaced by each record's aggregate.
func Output(header []string, b *Binding, admitted []ir.Record) *Table {
	out := &Table{Header: slices.Clone(header)}
	for _, rec := range admitted {
		cells := slices.Clone(rec.Cells)
		if len(cells) < len(header) {
			cells = append(cells, make([]string, len(header)-len(cells))...)
		}
		cells[b.SumColumn()] = strconv.FormatInt(rec.Aux, 10)
		out.Rows = append(out.Rows, Row{Line: rec.Line, Cells: cells[:len(header)]})
	}
	return out
}

// Rejection is a rejected row and the check that rejected it.
type Rejection struct {
	Row    int
	Reason string
	Detail string
}

// Rejections extracts the rejected rows from engine decisions.
func Rejections(decisions []engine.Decision) []Rejection {
	var out []Rejection
	for _, d := range decisions {
		if d.Admitted() {
			continue
		}
		out = append(out, Rejection{Row: d.Row, Reason: d.Outcome.String(), Detail: d.Detail()})
	}
	return out
}

// Rejects renders the rejected records with two extra columns naming the
// check that rejected them. Original sum values are kept.
func Rejects(header []string, records []ir.Record, rejections []Rejection) *Table {
	out := &Table{Header: append(slices.Clone(header), ColumnRejectReason, ColumnRejectDetail)}
	for _, r := range rejections {
		if r.Row < 0 || r.Row >= len(records) {
			continue
		}
		rec := records[r.Row]
		cells := make([]string, len(header), len(header)+2)
		copy(cells, rec.Cells)
		cells = append(cells, r.Reason, r.Detail)
		out.Rows = append(out.Rows, Row{Line: rec.Line, Cells: cells})
	}
	return out
}
