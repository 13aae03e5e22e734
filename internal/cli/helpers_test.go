package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/sebdah/goldie/v2"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tridup/internal/store"
	"github.com/roach88/tridup/internal/testutil"
)

// goldenDir is absolute so tests may chdir into a temp dir.
var goldenDir string

func TestMain(m *testing.M) {
	color.NoColor = true
	dir, err := filepath.Abs(filepath.Join("testdata", "golden"))
	if err != nil {
		panic(err)
	}
	goldenDir = dir
	os.Exit(m.Run())
}

func newGolden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir(goldenDir),
		goldie.WithNameSuffix(".golden"),
	)
}

// heroesCSV decides, with --max-pair 1 --max-value 2:
// admit, exact_duplicate, pair_limit, admit, admit, value_limit.
const heroesCSV = "ID1,heroID2,heroID3,场次\n" +
	"A,B,C,10\n" +
	"C,B,A,5\n" +
	"A,B,D,1\n" +
	"A,E,F,2\n" +
	"G,H,I,3\n" +
	"A,J,K,4\n"

// inTempDir switches to a fresh temp dir and writes files into it.
func inTempDir(t *testing.T, files map[string]string) {
	t.Helper()
	t.Chdir(t.TempDir())
	for name, content := range files {
		require.NoError(t, os.WriteFile(name, []byte(content), 0o644))
	}
}

// inTempDirWrite replaces a file in the current temp dir.
func inTempDirWrite(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(name, []byte(content), 0o644))
}

type cmdResult struct {
	out    string
	errOut string
	err    error
}

func execute(cmd *cobra.Command, args ...string) cmdResult {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return cmdResult{out: out.String(), errOut: errOut.String(), err: err}
}

// runCmd builds a run command with a deterministic clock and run IDs.
func runCmd(format string, ids ...string) *cobra.Command {
	return newRunCommand(&RunOptions{
		RootOptions: &RootOptions{Format: format},
		Clock:       testutil.NewStepClock(time.Millisecond),
		IDGenerator: store.NewFixedGenerator(ids...),
	})
}

func resumeCmd(format string) *cobra.Command {
	return newResumeCommand(&ResumeOptions{
		RootOptions: &RootOptions{Format: format},
		Clock:       testutil.NewStepClock(time.Millisecond),
	})
}

// decodeResponse parses a JSON CLIResponse, decoding Data into data.
func decodeResponse(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), "output: %s", out)
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return CLIResponse{Status: raw.Status, Error: raw.Error}
}

func readFile(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(name)
	require.NoError(t, err)
	return string(data)
}
