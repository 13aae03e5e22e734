package table

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/tridup/internal/engine"
	"github.com/roach88/tridup/internal/ir"
)

// Columns names the columns the engine reads.
type Columns struct {
	IDs [3]string
	Sum string
}

// BindError reports a configured column that does not fit the header.
type BindError struct {
	Column  string
	Header  []string
	Message string
}

// Error implements the error interface.
func (e *BindError) Error() string {
	return fmt.Sprintf("column %q: %s (header: %s)", e.Column, e.Message, strings.Join(e.Header, ", "))
}

// IsBindError returns true if the error is a BindError.
func IsBindError(err error) bool {
	var be *BindError
	return errors.As(err, &be)
}

// Binding maps configured column names to positions in a header.
type Binding struct {
	cols   Columns
	ids    [3]int
	sum    int
	header []string
}

// Bind resolves cols against header.
func Bind(header []string, cols Columns) (*Binding, error) {
	b := &Binding{cols: cols, header: header}

	find := func(name string) (int, error) {
		idx := -1
		for i, h := range header {
			if h != name {
				continue
			}
			if idx >= 0 {
				return 0, &BindError{Column: name, Header: header, Message: "appears more than once"}
			}
			idx = i
		}
		if idx < 0 {
			return 0, &BindError{Column: name, Header: header, Message: "not found"}
		}
		return idx, nil
	}

	for i, name := range cols.IDs {
		idx, err := find(name)
		if err != nil {
			return nil, err
		}
		b.ids[i] = idx
	}
	idx, err := find(cols.Sum)
	if err != nil {
		return nil, err
	}
	b.sum = idx
	return b, nil
}

// SumColumn returns the index of the sum column.
func (b *Binding) SumColumn() int {
	return b.sum
}

// IDColumns returns the indices of the identifier columns.
func (b *Binding) IDColumns() [3]int {
	return b.ids
}

// Records converts the rows of t into engine records.
//
// Identifier cells are coerced with ir.ParseCell. The sum cell must hold an
// integer; an empty sum cell counts as 0.
func (b *Binding) Records(t *Table) ([]ir.Record, error) {
	records := make([]ir.Record, len(t.Rows))
	for i, row := range t.Rows {
		rec, err := b.record(i, row)
		if err != nil {
			return nil, err
		}
		records[i] = rec
	}
	return records, nil
}

func (b *Binding) record(i int, row Row) (ir.Record, error) {
	rec := ir.Record{Row: i, Line: row.Line, Cells: row.Cells}
	for j, col := range b.ids {
		v, err := ir.ParseCell(row.Cells[col])
		if err != nil {
			return rec, b.rowError(i, row, b.cols.IDs[j], err.Error())
		}
		rec.IDs[j] = v
	}

	aux, err := parseAux(row.Cells[b.sum])
	if err != nil {
		return rec, b.rowError(i, row, b.cols.Sum, err.Error())
	}
	rec.Aux = aux
	return rec, nil
}

func (b *Binding) rowError(i int, row Row, column, msg string) error {
	if row.Source != "" {
		msg = fmt.Sprintf("%s (in %s)", msg, row.Source)
	}
	return engine.NewRecordError(i, row.Line, column, msg)
}

// parseAux reads an integer sum cell. Integral decimals such as "12.0"
// (common in spreadsheet exports) are accepted.
func parseAux(cell string) (int64, error) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) >= 1<<63 {
		return 0, fmt.Errorf("sum value %q is not an integer", s)
	}
	return int64(f), nil
}
