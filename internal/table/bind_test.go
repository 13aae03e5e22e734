package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tridup/internal/engine"
	"github.com/roach88/tridup/internal/ir"
	"github.com/roach88/tridup/internal/testutil"
)

var defaultColumns = Columns{IDs: [3]string{"ID1", "heroID2", "heroID3"}, Sum: "场次"}

func TestBind_Columns(t *testing.T) {
	header := []string{"场次", "note", "heroID3", "ID1", "heroID2"}
	b, err := Bind(header, defaultColumns)
	require.NoError(t, err)

	assert.Equal(t, [3]int{3, 4, 2}, b.IDColumns())
	assert.Equal(t, 0, b.SumColumn())
}

func TestBind_Errors(t *testing.T) {
	_, err := Bind([]string{"ID1", "heroID2", "场次"}, defaultColumns)
	require.Error(t, err)
	assert.True(t, IsBindError(err))
	assert.Contains(t, err.Error(), `"heroID3": not found`)

	_, err = Bind([]string{"ID1", "heroID2", "heroID3", "ID1", "场次"}, defaultColumns)
	assert.True(t, IsBindError(err))
	assert.Contains(t, err.Error(), "more than once")
}

func TestBinding_Records(t *testing.T) {
	tbl := &Table{
		Header: testutil.DefaultHeader,
		Rows: []Row{
			{Line: 2, Cells: []string{"A", " 12 ", "C", "10"}},
			{Line: 3, Cells: []string{"A", "B", "D", ""}},
			{Line: 5, Cells: []string{"x", "y", "z", "4.0"}},
		},
	}
	b, err := Bind(tbl.Header, defaultColumns)
	require.NoError(t, err)

	records, err := b.Records(tbl)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, [3]ir.IRValue{ir.IRString("A"), ir.IRInt(12), ir.IRString("C")}, records[0].IDs)
	assert.Equal(t, int64(10), records[0].Aux)
	assert.Equal(t, int64(0), records[1].Aux, "empty sum counts as zero")
	assert.Equal(t, int64(4), records[2].Aux)
	assert.Equal(t, 2, records[2].Row)
	assert.Equal(t, 5, records[2].Line)
	assert.Equal(t, tbl.Rows[0].Cells, records[0].Cells)
}

func TestBinding_RecordErrors(t *testing.T) {
	b, err := Bind(testutil.DefaultHeader, defaultColumns)
	require.NoError(t, err)

	tests := []struct {
		name   string
		cells  []string
		column string
	}{
		{"empty identifier", []string{"A", "", "C", "1"}, "heroID2"},
		{"invalid utf-8 identifier", []string{"\xc4\xe3", "B", "C", "1"}, "ID1"},
		{"fractional sum", []string{"A", "B", "C", "1.5"}, "场次"},
		{"text sum", []string{"A", "B", "C", "many"}, "场次"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := &Table{Header: testutil.DefaultHeader, Rows: []Row{
				{Line: 2, Cells: []string{"X", "Y", "Z", "1"}},
				{Source: "in.csv", Line: 7, Cells: tt.cells},
			}}
			_, err := b.Records(tbl)
			require.Error(t, err)

			var re *engine.RecordError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, 1, re.Row)
			assert.Equal(t, 7, re.Line)
			assert.Equal(t, tt.column, re.Column)
			assert.Contains(t, re.Message, "in.csv")
		})
	}
}

func TestOutputAndRejects(t *testing.T) {
	header := testutil.DefaultHeader
	records := testutil.Records(
		[]any{"A", "B", "C", 3},
		[]any{"C", "A", "B", 4},
		[]any{"A", "B", "D", 1},
	)
	b, err := Bind(header, defaultColumns)
	require.NoError(t, err)

	e, err := engine.New(engine.Limits{MaxPairDuplicates: 0, MaxValueFrequency: 3})
	require.NoError(t, err)
	res, err := e.Run(t.Context(), records)
	require.NoError(t, err)

	out := Output(header, b, res.Admitted)
	assert.Equal(t, header, out.Header)
	require.Len(t, out.Rows, 1)
	assert.Equal(t, []string{"A", "B", "C", "7"}, out.Rows[0].Cells)
	assert.Equal(t, "3", records[0].Cells[3], "input cells are not modified")

	rej := Rejects(header, records, Rejections(res.Decisions))
	assert.Equal(t, append(append([]string{}, header...), ColumnRejectReason, ColumnRejectDetail), rej.Header)
	require.Len(t, rej.Rows, 2)
	assert.Equal(t, []string{"C", "A", "B", "4", "exact_duplicate", "triple (A, B, C) already admitted at row 0"}, rej.Rows[0].Cells)
	assert.Equal(t, []string{"A", "B", "D", "1", "pair_limit", "pair {A, B} already in 1 admitted records"}, rej.Rows[1].Cells)
}
