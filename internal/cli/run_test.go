package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tridup/internal/table"
	"github.com/roach88/tridup/internal/testutil"
)

func TestRun_MissingOutputFlag(t *testing.T) {
	inTempDir(t, map[string]string{"in.csv": heroesCSV})

	res := execute(runCmd("text"), "in.csv")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "required flag")
	assert.Contains(t, res.err.Error(), "output")
	assert.Equal(t, ExitCommandError, GetExitCode(res.err))
}

func TestRun_TextSummary(t *testing.T) {
	inTempDir(t, map[string]string{"in.csv": heroesCSV})

	res := execute(runCmd("text"),
		"in.csv", "-o", "out.csv", "--rejects", "rejects.csv",
		"--max-pair", "1", "--max-value", "2")
	require.NoError(t, res.err, res.errOut)

	newGolden(t).Assert(t, "run_summary", []byte(res.out))
	assert.Contains(t, res.errOut, "engine starting")
	assert.Contains(t, res.errOut, "run complete")

	assert.Equal(t, [][]string{
		{"ID1", "heroID2", "heroID3", "场次"},
		{"A", "B", "C", "15"},
		{"A", "E", "F", "2"},
		{"G", "H", "I", "3"},
	}, testutil.ReadCSV(t, "out.csv"))

	assert.Equal(t, [][]string{
		{"ID1", "heroID2", "heroID3", "场次", "reject_reason", "reject_detail"},
		{"C", "B", "A", "5", "exact_duplicate", "triple (A, B, C) already admitted at row 0"},
		{"A", "B", "D", "1", "pair_limit", "pair {A, B} already in 1 admitted records"},
		{"A", "J", "K", "4", "value_limit", "value A already appears 2 times"},
	}, testutil.ReadCSV(t, "rejects.csv"))
}

func TestRun_JSONSummary(t *testing.T) {
	inTempDir(t, map[string]string{"in.csv": heroesCSV})

	res := execute(runCmd("json"), "in.csv", "-o", "out.csv", "--max-pair", "1", "--max-value", "2")
	require.NoError(t, res.err, res.errOut)

	var summary RunSummary
	resp := decodeResponse(t, res.out, &summary)
	assert.Equal(t, "ok", resp.Status)
	assert.Empty(t, summary.RunID)
	assert.Equal(t, []string{"in.csv"}, summary.Inputs)
	assert.Equal(t, "out.csv", summary.Output)
	assert.True(t, summary.Complete)
	assert.Equal(t, 6, summary.Stats.TotalRecords)
	assert.Equal(t, 3, summary.Stats.Admitted)
	assert.Equal(t, 1, summary.Stats.RejectedPair)
	assert.Equal(t, int64(1), summary.Stats.ElapsedMs)
	assert.InDelta(t, 50.0, summary.DedupRate, 1e-9)
}

func TestRun_ConcatenatesInputs(t *testing.T) {
	inTempDir(t, map[string]string{
		"a.csv": "ID1,heroID2,heroID3,场次\nA,B,C,1\n",
		"b.csv": "ID1,heroID2,heroID3,场次\nB,C,A,2\nD,E,F,3\n",
	})

	res := execute(runCmd("text"), "a.csv", "b.csv", "-o", "out.csv")
	require.NoError(t, res.err, res.errOut)
	assert.Equal(t, [][]string{
		{"ID1", "heroID2", "heroID3", "场次"},
		{"A", "B", "C", "3"},
		{"D", "E", "F", "3"},
	}, testutil.ReadCSV(t, "out.csv"))
}

func TestRun_XLSX(t *testing.T) {
	inTempDir(t, nil)
	in := &table.Table{
		Header: []string{"title"},
		Rows: []table.Row{
			{Cells: []string{"ID1", "heroID2", "heroID3", "场次"}},
			{Cells: []string{"101", "102", "103", "7"}},
			{Cells: []string{"103", "101", "102", "4"}},
			{Cells: []string{"101", "104", "105", "1"}},
		},
	}
	require.NoError(t, table.Write("in.xlsx", in))

	res := execute(runCmd("text"), "in.xlsx", "-o", "out.xlsx", "--header-row", "1", "--max-value", "1")
	require.NoError(t, res.err, res.errOut)

	out, err := table.Read("out.xlsx", table.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"ID1", "heroID2", "heroID3", "场次"}, out.Header)
	require.Len(t, out.Rows, 1)
	assert.Equal(t, []string{"101", "102", "103", "11"}, out.Rows[0].Cells)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		args  []string
		code  string
	}{
		{
			name:  "invalid limit",
			files: map[string]string{"in.csv": heroesCSV},
			args:  []string{"in.csv", "-o", "out.csv", "--max-value", "0"},
			code:  ErrCodeConfig,
		},
		{
			name:  "unknown column",
			files: map[string]string{"in.csv": heroesCSV},
			args:  []string{"in.csv", "-o", "out.csv", "--ids", "X,Y,Z"},
			code:  ErrCodeInput,
		},
		{
			name:  "malformed record",
			files: map[string]string{"in.csv": "ID1,heroID2,heroID3,场次\nA,,C,1\n"},
			args:  []string{"in.csv", "-o", "out.csv"},
			code:  ErrCodeRecord,
		},
		{
			name:  "bad sum",
			files: map[string]string{"in.csv": "ID1,heroID2,heroID3,场次\nA,B,C,many\n"},
			args:  []string{"in.csv", "-o", "out.csv"},
			code:  ErrCodeRecord,
		},
		{
			name: "missing input",
			args: []string{"missing.csv", "-o", "out.csv"},
			code: ErrCodeNotFound,
		},
		{
			name:  "unsupported format",
			files: map[string]string{"in.json": "{}"},
			args:  []string{"in.json", "-o", "out.csv"},
			code:  ErrCodeInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inTempDir(t, tt.files)

			res := execute(runCmd("json"), tt.args...)
			require.Error(t, res.err)
			assert.Equal(t, ExitCommandError, GetExitCode(res.err))

			resp := decodeResponse(t, res.out, nil)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code, resp.Error.Message)
		})
	}
}
