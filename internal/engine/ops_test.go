package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statecore/internal/state"
)

func TestOps_AuthLifecycle(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SetAuthState(true, &state.UserData{
		UserID:      state.String("u-1"),
		Username:    state.String("ada"),
		Roles:       []string{"admin"},
		Permissions: []string{"write"},
	}))
	user := s.Current().User()
	assert.True(t, user.IsAuthenticated)
	assert.Equal(t, "ada", user.Username)

	require.NoError(t, s.ClearIdentity())
	user = s.Current().User()
	assert.False(t, user.IsAuthenticated)
	assert.Empty(t, user.UserID)
	assert.Empty(t, user.Permissions)
}

func TestOps_NotificationLifecycle(t *testing.T) {
	s := newTestStore(t)

	first, err := s.AddNotification("saved", "", map[string]any{"title": "Saved"})
	require.NoError(t, err)
	assert.Equal(t, "n-1", first.ID)
	assert.Equal(t, state.NotificationInfo, first.Type)
	assert.Equal(t, testNow.UnixMilli(), first.Timestamp)
	assert.False(t, first.Read)

	second, err := s.AddNotification("failed", state.NotificationError, nil)
	require.NoError(t, err)

	list := s.Current().UI().Notifications
	require.Len(t, list, 2)
	assert.Equal(t, []string{first.ID, second.ID}, []string{list[0].ID, list[1].ID})
	assert.Equal(t, "Saved", list[0].Metadata["title"])

	require.NoError(t, s.MarkNotificationRead(second.ID))
	list = s.Current().UI().Notifications
	assert.False(t, list[0].Read)
	assert.True(t, list[1].Read)

	require.NoError(t, s.ClearNotifications())
	assert.Empty(t, s.Current().UI().Notifications)
}

func TestOps_AddNotificationRejectsUnknownType(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddNotification("x", "fatal", nil)
	assert.True(t, IsUpdateError(err, ErrCodeInvalidValue))
	assert.Empty(t, s.Current().UI().Notifications)
}

func TestOps_UI(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SetLoading(true))
	require.NoError(t, s.SetLastViewedPage("/reports"))
	require.NoError(t, s.ToggleSidebar())
	require.NoError(t, s.SetModal("confirm", true))

	ui := s.Current().UI()
	assert.True(t, ui.IsLoading)
	assert.Equal(t, "/reports", ui.LastViewedPage)
	assert.True(t, ui.SidebarCollapsed)
	assert.True(t, ui.Modals["confirm"])

	require.NoError(t, s.ToggleSidebar())
	assert.False(t, s.Current().UI().SidebarCollapsed)
}

func TestOps_SetThemeWritesBoth(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SetTheme("dracula"))

	prefs, ok := s.Current().Preferences()
	require.True(t, ok)
	assert.Equal(t, "dracula", prefs.Theme)
	assert.Equal(t, "dracula", s.Current().UI().Theme)
}

func TestOps_PreferencesAndFilters(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.UpdatePreferences(state.PreferencesUpdate{Language: state.String("fr")}))
	prefs, _ := s.Current().Preferences()
	assert.Equal(t, "fr", prefs.Language)
	assert.Equal(t, "UTC", prefs.Timezone)

	size := 50
	require.NoError(t, s.UpdateFilters(state.FiltersUpdate{PageSize: &size}))
	f, ok := s.Current().Filters()
	require.True(t, ok)
	assert.Equal(t, 50, f.PageSize)
}

func TestOps_Route(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SetRouteCustomData(map[string]any{"draft": true}))
	require.NoError(t, s.SetRoute(state.RouterState{
		URL:    "/users/7",
		Params: map[string]any{"id": "7"},
		Title:  "Users",
	}))

	r, ok := s.Current().Router()
	require.True(t, ok)
	assert.Equal(t, "/users/7", r.URL)
	assert.Equal(t, map[string]any{"draft": true}, r.CustomData)

	require.NoError(t, s.SetRouteCustomData(nil))
	r, _ = s.Current().Router()
	assert.Nil(t, r.CustomData)
}
