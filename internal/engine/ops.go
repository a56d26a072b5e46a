package engine

import (
	"fmt"

	"github.com/roach88/statecore/internal/ir"
	"github.com/roach88/statecore/internal/state"
)

// Derived operations. Each one computes its patch against the current state
// under the writer lock and goes through the same merge, validation and
// publication path as Update.

// SetAuthState sets user.isAuthenticated and applies the optional identity
// data on top.
func (s *Store) SetAuthState(authenticated bool, data *state.UserData) error {
	return s.apply("set_auth_state", func(state.AppState) (ir.IRObject, error) {
		return state.AuthPatch(authenticated, data)
	})
}

// ClearIdentity removes the identity fields of the user slice and marks the
// user as signed out.
func (s *Store) ClearIdentity() error {
	return s.apply("clear_identity", func(state.AppState) (ir.IRObject, error) {
		return state.ClearIdentityPatch(), nil
	})
}

// SetTheme writes theme to ui.theme and preferences.theme.
func (s *Store) SetTheme(theme string) error {
	return s.apply("set_theme", func(state.AppState) (ir.IRObject, error) {
		return state.ThemePatch(theme), nil
	})
}

// AddNotification appends a notification and returns it. An empty type
// defaults to info.
func (s *Store) AddNotification(message string, typ state.NotificationType, metadata map[string]any) (state.Notification, error) {
	t, ok := state.ParseNotificationType(string(typ))
	if !ok {
		err := &UpdateError{
			Code:    ErrCodeInvalidValue,
			Message: fmt.Sprintf("unknown notification type %q", typ),
			Slice:   state.SliceUI,
		}
		return state.Notification{}, s.reject("add_notification", err)
	}

	var n state.Notification
	err := s.apply("add_notification", func(cur state.AppState) (ir.IRObject, error) {
		n = state.Notification{
			ID:        s.ids.Generate(),
			Message:   message,
			Type:      t,
			Timestamp: s.now().UnixMilli(),
			Metadata:  metadata,
		}
		return state.AppendNotificationPatch(cur, n)
	})
	if err != nil {
		return state.Notification{}, err
	}
	return n, nil
}

// MarkNotificationRead marks the notification with id as read.
func (s *Store) MarkNotificationRead(id string) error {
	return s.apply("mark_notification_read", func(cur state.AppState) (ir.IRObject, error) {
		return state.MarkReadPatch(cur, id), nil
	})
}

// ClearNotifications empties the notification list.
func (s *Store) ClearNotifications() error {
	return s.apply("clear_notifications", func(state.AppState) (ir.IRObject, error) {
		return state.NotificationsPatch(nil)
	})
}

// SetLoading sets ui.isLoading.
func (s *Store) SetLoading(loading bool) error {
	return s.apply("set_loading", func(state.AppState) (ir.IRObject, error) {
		return state.LoadingPatch(loading), nil
	})
}

// SetLastViewedPage sets ui.lastViewedPage.
func (s *Store) SetLastViewedPage(page string) error {
	return s.apply("set_last_viewed_page", func(state.AppState) (ir.IRObject, error) {
		return state.LastViewedPagePatch(page), nil
	})
}

// ToggleSidebar flips ui.sidebarCollapsed; absent counts as expanded.
func (s *Store) ToggleSidebar() error {
	return s.apply("toggle_sidebar", func(cur state.AppState) (ir.IRObject, error) {
		return state.SidebarPatch(!cur.UI().SidebarCollapsed), nil
	})
}

// UpdatePreferences merges u into the preferences slice.
func (s *Store) UpdatePreferences(u state.PreferencesUpdate) error {
	return s.apply("update_preferences", func(state.AppState) (ir.IRObject, error) {
		return state.PreferencesPatch(u)
	})
}

// SetModal opens or closes the modal with the given id.
func (s *Store) SetModal(id string, open bool) error {
	return s.apply("set_modal", func(state.AppState) (ir.IRObject, error) {
		return state.ModalPatch(id, open), nil
	})
}

// UpdateFilters merges u into the filters slice.
func (s *Store) UpdateFilters(u state.FiltersUpdate) error {
	return s.apply("update_filters", func(state.AppState) (ir.IRObject, error) {
		return state.FiltersPatch(u)
	})
}

// SetRoute replaces the router slice with r, keeping customData unless r
// sets it.
func (s *Store) SetRoute(r state.RouterState) error {
	return s.apply("set_route", func(cur state.AppState) (ir.IRObject, error) {
		return state.RouterPatch(cur, r)
	})
}

// SetRouteCustomData sets router.customData; nil removes it.
func (s *Store) SetRouteCustomData(data any) error {
	return s.apply("set_route_custom_data", func(cur state.AppState) (ir.IRObject, error) {
		return state.RouterCustomDataPatch(cur, data)
	})
}
