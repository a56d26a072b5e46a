package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statecore/internal/store"
)

// newDatabase creates an empty database file and returns its path.
func newDatabase(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Close())
	return path
}

// clearDBEnv unsets STATECORE_DB for the test so --db and config files
// decide the database.
func clearDBEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STATECORE_DB", "")
	require.NoError(t, os.Unsetenv("STATECORE_DB"))
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	clearDBEnv(t)
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "statecore", cmd.Use)
	assert.Contains(t, cmd.Long, "time-travel")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"run", "inspect", "clear", "history", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
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

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Empty(t, configFlag.DefValue)
}

func TestRunCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	runCmd, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)

	for _, name := range []string{"db", "dev", "metrics-addr"} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), name)
	}
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := execute(t, "--format", "yaml", "inspect", "--db", newDatabase(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}

func TestOpenDatabase(t *testing.T) {
	clearDBEnv(t)
	opts := &RootOptions{Format: "text"}

	_, err := opts.openDatabase("")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no database")

	_, err = opts.openDatabase(filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not found")

	path := newDatabase(t)
	st, err := opts.openDatabase(path)
	require.NoError(t, err)
	require.NoError(t, st.Close())
}

func TestOpenDatabase_FromConfig(t *testing.T) {
	path := newDatabase(t)
	cfgPath := filepath.Join(t.TempDir(), "statecore.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("db: "+path+"\n"), 0644))
	clearDBEnv(t)

	opts := &RootOptions{Format: "text", ConfigPath: cfgPath}
	st, err := opts.openDatabase("")
	require.NoError(t, err)
	require.NoError(t, st.Close())
}

func TestLoadConfig_BadFile(t *testing.T) {
	opts := &RootOptions{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")}
	_, err := opts.loadConfig()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}
