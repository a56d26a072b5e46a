package debug

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statecore/internal/engine"
	"github.com/roach88/statecore/internal/state"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestHandle_Help(t *testing.T) {
	_, r := newFixture(t)

	out, err := r.Handle().Exec("help")
	require.NoError(t, err)
	newGoldie(t).Assert(t, "help", []byte(out))
}

func TestHandle_History(t *testing.T) {
	s, r := newFixture(t)
	h := r.Handle()

	out, err := h.Exec("history")
	require.NoError(t, err)
	assert.Equal(t, "(no history)", out)

	require.NoError(t, s.SetTheme("dark"))
	require.NoError(t, s.SetAuthState(true, &state.UserData{Username: state.String("ada")}))
	require.NoError(t, s.SetLoading(true))
	settle(t, s)

	out, err = h.Exec("history")
	require.NoError(t, err)
	newGoldie(t).Assert(t, "history", []byte(out))
}

func TestHandle_UpdateTravelEval(t *testing.T) {
	s, r := newFixture(t)
	h := r.Handle()

	out, err := h.Exec(`update {"ui":{"lastViewedPage":"/reports"}}`)
	require.NoError(t, err)
	assert.Equal(t, "state updated", out)
	settle(t, s)

	out, err = h.Exec("eval ui.lastViewedPage")
	require.NoError(t, err)
	assert.Equal(t, `"/reports"`, out)

	out, err = h.Exec("eval history == 1 && !user.isAuthenticated")
	require.NoError(t, err)
	assert.Equal(t, "true", out)

	out, err = h.Exec("travel 5")
	require.NoError(t, err)
	assert.Equal(t, "false", out)

	out, err = h.Exec("travel 0")
	require.NoError(t, err)
	assert.Equal(t, "true", out)

	out, err = h.Exec("reset")
	require.NoError(t, err)
	assert.Equal(t, "state reset", out)
	assert.Equal(t, "", s.Current().UI().LastViewedPage)
}

func TestHandle_State(t *testing.T) {
	_, r := newFixture(t)

	out, err := r.Handle().Exec("state")
	require.NoError(t, err)
	assert.Contains(t, out, `"theme": "light"`)
}

func TestHandle_Errors(t *testing.T) {
	_, r := newFixture(t)
	h := r.Handle()

	_, err := h.Exec("explode")
	assert.ErrorIs(t, err, ErrUnknownCommand)

	_, err = h.Exec("update [1]")
	assert.Error(t, err)

	_, err = h.Exec("update")
	assert.Error(t, err)

	_, err = h.Exec(`update {"ui":5}`)
	assert.True(t, engine.IsUpdateError(err, engine.ErrCodeInvalidSlice))

	_, err = h.Exec("travel x")
	assert.Error(t, err)

	_, err = h.Exec("eval ")
	assert.Error(t, err)
}
