package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statecore/internal/ir"
)

func TestSetGetRemove(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	_, ok, err := s.Get(ctx, "appState")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "appState", `{"ui":{"theme":"dark"}}`))
	v, ok, err := s.Get(ctx, "appState")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"ui":{"theme":"dark"}}`, v)

	require.NoError(t, s.Set(ctx, "appState", `{}`))
	records, err := s.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(2), records[0].Version, "overwrite bumps the version")

	require.NoError(t, s.Remove(ctx, "appState"))
	require.NoError(t, s.Remove(ctx, "appState"), "removing a missing key is fine")
	_, ok, err = s.Get(ctx, "appState")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSet_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/state.db"

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(t.Context(), "theme", "dracula"))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	v, ok, err := s.Get(t.Context(), "theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dracula", v)
}

func TestAppendHistory_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	rec := createTestHistory("sess-1", 1, "dark")
	require.NoError(t, s.AppendHistory(ctx, rec))

	dup := rec
	dup.Label = "changed"
	require.NoError(t, s.AppendHistory(ctx, dup))

	got, err := s.ReadHistory(ctx, "sess-1", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "State updated: ui", got[0].Label, "first write wins")
}

func TestAppendHistory_ComputesDigest(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	rec := createTestHistory("sess-1", 1, "dark")
	require.NoError(t, s.AppendHistory(ctx, rec))

	got, err := s.ReadHistory(ctx, "sess-1", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)

	want, err := ir.Digest(ir.DomainSnapshot, rec.Snapshot)
	require.NoError(t, err)
	assert.Equal(t, want, got[0].Digest)
	assert.True(t, ir.Equal(rec.Snapshot, got[0].Snapshot))
	assert.Equal(t, []string{"ui"}, got[0].ChangedKeys)
	assert.Equal(t, rec.RecordedAt.UnixMilli(), got[0].RecordedAt.UnixMilli())
}

func TestTrimAndClearHistory(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	for seq := int64(1); seq <= 5; seq++ {
		require.NoError(t, s.AppendHistory(ctx, createTestHistory("a", seq, "dark")))
	}
	require.NoError(t, s.AppendHistory(ctx, createTestHistory("b", 1, "light")))

	require.NoError(t, s.TrimHistory(ctx, "a", 2))
	got, err := s.ReadHistory(ctx, "a", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(4), got[0].Seq)
	assert.Equal(t, int64(5), got[1].Seq)

	require.NoError(t, s.ClearHistory(ctx, "a"))
	sessions, err := s.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, sessions)

	require.NoError(t, s.ClearHistory(ctx, ""))
	sessions, err = s.Sessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}
