package cli

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statecore/internal/ir"
	"github.com/roach88/statecore/internal/persist"
	"github.com/roach88/statecore/internal/store"
)

// seedHistory appends one entry per label to session.
func seedHistory(t *testing.T, path, session string, labels ...string) {
	t.Helper()
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, label := range labels {
		require.NoError(t, st.AppendHistory(context.Background(), store.HistoryRecord{
			Session:     session,
			Seq:         int64(i + 1),
			RecordedAt:  base.Add(time.Duration(i) * time.Second),
			Label:       label,
			ChangedKeys: []string{"ui"},
			Snapshot: ir.IRObject{
				"ui": ir.IRObject{"theme": ir.IRString("dark")},
			},
		}))
	}
}

func TestClearKeepsTheme(t *testing.T) {
	path := seedDatabase(t, map[string]string{
		persist.RecordKey: `{"ui":{"theme":"dark","lastViewedPage":"/"}}`,
		persist.ThemeKey:  "dark",
	})

	out, _, err := execute(t, "clear", "--db", path)
	require.NoError(t, err)
	assert.Equal(t, "Removed: appState\n", out)

	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()
	_, ok, err := st.Get(context.Background(), persist.RecordKey)
	require.NoError(t, err)
	assert.False(t, ok)
	theme, ok, err := st.Get(context.Background(), persist.ThemeKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dark", theme)
}

func TestClearThemeAndHistory(t *testing.T) {
	path := seedDatabase(t, map[string]string{
		persist.RecordKey: `{"ui":{"theme":"dark","lastViewedPage":"/"}}`,
		persist.ThemeKey:  "dark",
	})
	seedHistory(t, path, "s1", "State updated: ui")
	seedHistory(t, path, "s2", "State updated: ui")

	out, _, err := execute(t, "--format", "json", "clear", "--db", path, "--theme", "--history", "--session", "s1")
	require.NoError(t, err)

	var resp struct {
		Data ClearResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, ClearResult{
		Removed:        []string{"appState", "theme"},
		HistoryCleared: true,
		Session:        "s1",
	}, resp.Data)

	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()
	records, err := st.Records(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
	sessions, err := st.Sessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, sessions)
}

func TestClearAllHistoryText(t *testing.T) {
	path := newDatabase(t)
	seedHistory(t, path, "s1", "a", "b")

	out, _, err := execute(t, "clear", "--db", path, "--history")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared all history\n")
}

func TestClearSessionRequiresHistory(t *testing.T) {
	_, _, err := execute(t, "clear", "--db", newDatabase(t), "--session", "s1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "--session requires --history")
}
