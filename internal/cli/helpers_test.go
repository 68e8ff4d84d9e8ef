package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/sebdah/goldie/v2"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

var refdataPath = filepath.Join("testdata", "refdata.cue")

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func docPath(name string) string {
	return filepath.Join("testdata", "docs", name)
}

// testOptions returns root options over a fresh ledger and the test reference data.
func testOptions(t *testing.T, format string) *RootOptions {
	t.Helper()
	return &RootOptions{
		Format:   format,
		Database: filepath.Join(t.TempDir(), "ledger.db"),
		RefData:  refdataPath,
	}
}

// execute runs cmd with args and returns what it wrote to stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// decode unmarshals a JSON envelope, decoding its data into data.
func decode(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), out)
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return CLIResponse{Status: raw.Status, Error: raw.Error}
}

// seedLedger ingests the week 12 and week 14 documents and registers a
// monday strike in week 12.
func seedLedger(t *testing.T, opts *RootOptions) {
	t.Helper()
	_, err := execute(t, NewIngestCommand(opts), docPath("week12.txt"), docPath("week14.yaml"))
	require.NoError(t, err)
	_, err = execute(t, NewStrikeCommand(opts), "add", "2023-2024", "12", "monday")
	require.NoError(t, err)
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}
