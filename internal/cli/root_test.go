package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "mealledger", cmd.Use)
	assert.Contains(t, cmd.Long, "deduplicated")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"ingest"}, {"list"}, {"summary"}, {"check"}, {"sync"}, {"manual"}, {"stats"}, {"values"},
		{"territory", "list"}, {"territory", "rollup"},
		{"strike", "add"}, {"strike", "remove"}, {"strike", "list"},
		{"schools", "list"}, {"schools", "assign"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(filepath.Join(path...), func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	// --db and --refdata fall back to the environment, so their flag defaults are empty.
	for _, name := range []string{"db", "refdata", "metrics-file"} {
		f := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, "", f.DefValue, name)
	}
}

func TestIngestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	ingestCmd, _, err := cmd.Find([]string{"ingest"})
	require.NoError(t, err)

	assert.Equal(t, "4", ingestCmd.Flags().Lookup("workers").DefValue)
	assert.Equal(t, "10", ingestCmd.Flags().Lookup("batch-size").DefValue)
	assert.Equal(t, "2", ingestCmd.Flags().Lookup("tolerance").DefValue)
	assert.Equal(t, "false", ingestCmd.Flags().Lookup("trace").DefValue)
}

func TestListCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"list", "summary"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		for _, flag := range []string{"year", "week", "school", "type", "territory"} {
			assert.NotNil(t, sub.Flags().Lookup(flag), "%s --%s", name, flag)
		}
	}
}

func TestFormatValidation(t *testing.T) {
	// Test valid formats
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	// Test invalid formats
	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "stats"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRoot_DatabaseFromEnvironment(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "env.db")
	t.Setenv(EnvDatabase, dbPath)
	t.Setenv(EnvRefData, refdataPath)

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "json", "stats"})
	require.NoError(t, cmd.Execute())

	assert.FileExists(t, dbPath)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestRoot_DatabaseFlagWinsOverEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvDatabase, filepath.Join(dir, "env.db"))

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--db", filepath.Join(dir, "flag.db"), "--refdata", refdataPath, "stats"})
	require.NoError(t, cmd.Execute())

	assert.FileExists(t, filepath.Join(dir, "flag.db"))
	assert.NoFileExists(t, filepath.Join(dir, "env.db"))
}
