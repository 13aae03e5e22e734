package cli

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tridup/internal/store"
)

var journalArgs = []string{"--db", "journal.db", "--max-pair", "1", "--max-value", "2"}

func journaledRun(t *testing.T, extra ...string) {
	t.Helper()
	args := append([]string{"in.csv", "-o", "out.csv", "--rejects", "rejects.csv"}, journalArgs...)
	res := execute(runCmd("text", "run-1"), append(args, extra...)...)
	require.NoError(t, res.err, res.errOut)
	require.Contains(t, res.out, "Run:         run-1")
}

// interrupt rewinds a finished run so it looks stopped after nextRow rows.
func interrupt(t *testing.T, nextRow int) {
	t.Helper()
	db, err := sql.Open("sqlite3", "journal.db")
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range []string{
		`DELETE FROM checkpoints WHERE next_row > ?`,
		`DELETE FROM decisions WHERE row >= ?`,
		`UPDATE runs SET status = 'interrupted', next_row = ?`,
	} {
		_, err := db.Exec(stmt, nextRow)
		require.NoError(t, err)
	}
}

func TestRuns_ListsJournaledRun(t *testing.T) {
	inTempDir(t, map[string]string{"in.csv": heroesCSV})
	journaledRun(t)

	res := execute(NewRunsCommand(&RootOptions{Format: "json"}), "--db", "journal.db")
	require.NoError(t, res.err)

	var runs []RunView
	decodeResponse(t, res.out, &runs)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, string(store.StatusComplete), runs[0].Status)
	assert.Equal(t, 6, runs[0].InputRows)
	assert.Equal(t, 6, runs[0].NextRow)
	assert.Equal(t, 3, runs[0].Admitted)
	assert.Equal(t, 1, runs[0].RejectedValue)
	assert.Equal(t, 1, runs[0].Limits.MaxPairDuplicates)

	res = execute(NewRunsCommand(&RootOptions{Format: "text"}), "--db", "journal.db")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "run-1")
	assert.Contains(t, res.out, "complete")
	assert.Contains(t, res.out, "6/6")
}

func TestRuns_MissingJournal(t *testing.T) {
	inTempDir(t, nil)

	res := execute(NewRunsCommand(&RootOptions{Format: "json"}), "--db", "nope.db")
	require.Error(t, res.err)
	resp := decodeResponse(t, res.out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

func TestExplain(t *testing.T) {
	inTempDir(t, map[string]string{"in.csv": heroesCSV})
	journaledRun(t)

	res := execute(NewExplainCommand(&RootOptions{Format: "text"}), "run-1", "--db", "journal.db", "--row", "2")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "row 2")
	assert.Contains(t, res.out, "pair_limit")
	assert.Contains(t, res.out, "pair {A, B} already in 1 admitted records")
	assert.NotContains(t, res.out, "row 3")

	res = execute(NewExplainCommand(&RootOptions{Format: "json"}), "run-1", "--db", "journal.db")
	require.NoError(t, res.err)
	var all ExplainResult
	decodeResponse(t, res.out, &all)
	assert.Equal(t, "run-1", all.RunID)
	require.Len(t, all.Decisions, 6)
	require.NotNil(t, all.Decisions[1].Ref)
	assert.Equal(t, 0, *all.Decisions[1].Ref)

	res = execute(NewExplainCommand(&RootOptions{Format: "json"}), "run-1", "--db", "journal.db", "--outcome", "value_limit")
	require.NoError(t, res.err)
	var values ExplainResult
	decodeResponse(t, res.out, &values)
	require.Len(t, values.Decisions, 1)
	assert.Equal(t, 5, values.Decisions[0].Row)
	assert.Equal(t, "A", values.Decisions[0].Subject)
}

func TestExplain_Errors(t *testing.T) {
	inTempDir(t, map[string]string{"in.csv": heroesCSV})
	journaledRun(t)

	res := execute(NewExplainCommand(&RootOptions{Format: "json"}), "run-9", "--db", "journal.db")
	require.Error(t, res.err)
	resp := decodeResponse(t, res.out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)

	res = execute(NewExplainCommand(&RootOptions{Format: "text"}), "run-1", "--db", "journal.db", "--outcome", "bogus")
	require.Error(t, res.err)
	assert.Equal(t, ExitCommandError, GetExitCode(res.err))
	assert.Contains(t, res.errOut, "invalid --outcome")
}

func TestResume_ContinuesInterruptedRun(t *testing.T) {
	inTempDir(t, map[string]string{"in.csv": heroesCSV})
	t.Setenv("TRIDUP_CHECKPOINT_EVERY", "2")
	journaledRun(t)
	wantOut := readFile(t, "out.csv")
	wantRejects := readFile(t, "rejects.csv")

	interrupt(t, 2)

	args := append([]string{"run-1", "in.csv", "-o", "out2.csv", "--rejects", "rejects2.csv"}, journalArgs...)
	res := execute(resumeCmd("text"), args...)
	require.NoError(t, res.err, res.errOut)
	assert.Contains(t, res.out, "=== tridup resume ===")
	assert.Contains(t, res.out, "Resumed at:  row 2")
	assert.Contains(t, res.out, "Admitted:    3")

	assert.Equal(t, wantOut, readFile(t, "out2.csv"))
	assert.Equal(t, wantRejects, readFile(t, "rejects2.csv"))

	res = execute(NewRunsCommand(&RootOptions{Format: "json"}), "--db", "journal.db")
	require.NoError(t, res.err)
	var runs []RunView
	decodeResponse(t, res.out, &runs)
	require.Len(t, runs, 1)
	assert.Equal(t, string(store.StatusComplete), runs[0].Status)
	assert.Equal(t, 6, runs[0].NextRow)
}

func TestResume_WithoutCheckpointRestarts(t *testing.T) {
	inTempDir(t, map[string]string{"in.csv": heroesCSV})
	journaledRun(t)
	wantOut := readFile(t, "out.csv")

	interrupt(t, 0)

	args := append([]string{"run-1", "in.csv", "-o", "out2.csv"}, journalArgs...)
	res := execute(resumeCmd("text"), args...)
	require.NoError(t, res.err, res.errOut)
	assert.NotContains(t, res.out, "Resumed at")
	assert.Equal(t, wantOut, readFile(t, "out2.csv"))
}

func TestResume_Refusals(t *testing.T) {
	tests := []struct {
		name      string
		interrupt bool
		edit      string
		args      []string
		code      string
	}{
		{
			name: "complete run",
			args: journalArgs,
			code: ErrCodeCheckpoint,
		},
		{
			name:      "changed config",
			interrupt: true,
			args:      []string{"--db", "journal.db", "--max-pair", "1", "--max-value", "3"},
			code:      ErrCodeCheckpoint,
		},
		{
			name:      "changed input",
			interrupt: true,
			edit:      heroesCSV + "X,Y,Z,1\n",
			args:      journalArgs,
			code:      ErrCodeCheckpoint,
		},
		{
			name: "unknown run",
			args: journalArgs,
			code: ErrCodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inTempDir(t, map[string]string{"in.csv": heroesCSV})
			journaledRun(t)
			if tt.interrupt {
				interrupt(t, 2)
			}
			if tt.edit != "" {
				inTempDirWrite(t, "in.csv", tt.edit)
			}

			runID := "run-1"
			if tt.code == ErrCodeNotFound {
				runID = "run-404"
			}
			args := append([]string{runID, "in.csv", "-o", "out2.csv"}, tt.args...)
			res := execute(resumeCmd("json"), args...)
			require.Error(t, res.err)
			assert.Equal(t, ExitCommandError, GetExitCode(res.err))
			resp := decodeResponse(t, res.out, nil)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code, resp.Error.Message)
		})
	}
}
