package testutil

import (
	"fmt"

	"github.com/roach88/tridup/internal/ir"
)

// Records builds engine records from rows of {id0, id1, id2, aux}.
//
// Identifiers go through ir.FromAny, so "12" and 12 both become IRInt(12).
// Rows are numbered from 0 and Line is set as if a header sat on line 1.
// Panics on malformed rows; use only with literal test data.
func Records(rows ...[]any) []ir.Record {
	out := make([]ir.Record, len(rows))
	for i, r := range rows {
		if len(r) != 4 {
			panic(fmt.Sprintf("testutil.Records: row %d has %d fields, want 4", i, len(r)))
		}
		var ids [3]ir.IRValue
		cells := make([]string, 4)
		for j := 0; j < 3; j++ {
			v, err := ir.FromAny(r[j])
			if err != nil {
				panic(fmt.Sprintf("testutil.Records: row %d: %v", i, err))
			}
			ids[j] = v
			cells[j] = v.Text()
		}
		aux := toInt64(r[3])
		cells[3] = fmt.Sprint(aux)
		out[i] = ir.Record{Row: i, Line: i + 2, IDs: ids, Aux: aux, Cells: cells}
	}
	return out
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	}
	panic(fmt.Sprintf("testutil.Records: aux %v (%T) is not an integer", v, v))
}
