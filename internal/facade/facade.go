// Package facade is the domain API the rest of the application uses to read
// and change state. It hides patch construction and the ordering between
// state writes and router calls.
package facade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/statecore/internal/engine"
	"github.com/roach88/statecore/internal/router"
	"github.com/roach88/statecore/internal/state"
)

// ErrUnknownTheme is returned by SetTheme for names outside the theme
// catalogue.
var ErrUnknownTheme = errors.New("unknown theme")

// ThemeStore keeps the explicit theme choice. *persist.Adapter implements it.
type ThemeStore interface {
	SaveTheme(ctx context.Context, theme string) error
	ClearTheme(ctx context.Context) error
}

// Facade wraps a store and a router with typed operations.
type Facade struct {
	store       *engine.Store
	nav         router.Navigator
	themes      ThemeStore
	prefersDark func() bool
	logger      *slog.Logger
}

// Option configures a Facade.
type Option func(*Facade)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(f *Facade) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithThemeStore records explicit theme choices in ts.
func WithThemeStore(ts ThemeStore) Option {
	return func(f *Facade) {
		f.themes = ts
	}
}

// WithSystemPreference reports whether the host prefers a dark theme. It is
// consulted by ClearThemePreference. Default: light.
func WithSystemPreference(prefersDark func() bool) Option {
	return func(f *Facade) {
		if prefersDark != nil {
			f.prefersDark = prefersDark
		}
	}
}

// New creates a Facade over st. nav may be nil when the application has no
// router; navigation methods then only update state.
func New(st *engine.Store, nav router.Navigator, opts ...Option) *Facade {
	f := &Facade{
		store:       st,
		nav:         nav,
		prefersDark: func() bool { return false },
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Store returns the underlying store.
func (f *Facade) Store() *engine.Store {
	return f.store
}

// User

// SetAuthenticated sets the authentication flag and applies data.
func (f *Facade) SetAuthenticated(authenticated bool, data *state.UserData) error {
	return f.store.SetAuthState(authenticated, data)
}

// SignOut clears the authentication flag. Identity fields are cleared by the
// effects runner when it observes the transition.
func (f *Facade) SignOut() error {
	return f.store.SetAuthState(false, nil)
}

// UI

// SetTheme applies a theme from the catalogue and remembers it as the
// explicit choice. Unknown names are rejected without changing state.
func (f *Facade) SetTheme(ctx context.Context, theme string) error {
	if !state.IsKnownTheme(theme) {
		f.logger.Warn("theme is not available", "theme", theme)
		return fmt.Errorf("%w: %q", ErrUnknownTheme, theme)
	}
	if err := f.store.SetTheme(theme); err != nil {
		return err
	}
	if f.themes != nil {
		if err := f.themes.SaveTheme(ctx, theme); err != nil {
			f.logger.Warn("failed to save theme preference", "theme", theme, "error", err)
		}
	}
	return nil
}

// ClearThemePreference forgets the explicit theme choice and falls back to
// the system theme.
func (f *Facade) ClearThemePreference(ctx context.Context) error {
	if f.themes != nil {
		if err := f.themes.ClearTheme(ctx); err != nil {
			f.logger.Warn("failed to clear theme preference", "error", err)
		}
	}
	return f.store.SetTheme(state.SystemTheme(f.prefersDark()))
}

// Notify adds a notification. An empty type means info.
func (f *Facade) Notify(message string, typ state.NotificationType, metadata map[string]any) (state.Notification, error) {
	return f.store.AddNotification(message, typ, metadata)
}

// MarkNotificationRead marks the notification with id as read.
func (f *Facade) MarkNotificationRead(id string) error {
	return f.store.MarkNotificationRead(id)
}

// ClearNotifications removes every notification.
func (f *Facade) ClearNotifications() error {
	return f.store.ClearNotifications()
}

// SetLoading sets the global loading flag.
func (f *Facade) SetLoading(loading bool) error {
	return f.store.SetLoading(loading)
}

// ToggleSidebar flips the sidebar collapsed flag.
func (f *Facade) ToggleSidebar() error {
	return f.store.ToggleSidebar()
}

// SetLastViewedPage records page as the last viewed page.
func (f *Facade) SetLastViewedPage(page string) error {
	return f.store.SetLastViewedPage(page)
}

// OpenModal marks the modal id as open.
func (f *Facade) OpenModal(id string) error {
	return f.store.SetModal(id, true)
}

// CloseModal marks the modal id as closed.
func (f *Facade) CloseModal(id string) error {
	return f.store.SetModal(id, false)
}

// Preferences and filters

// UpdatePreferences merges u into the preferences slice.
func (f *Facade) UpdatePreferences(u state.PreferencesUpdate) error {
	return f.store.UpdatePreferences(u)
}

// UpdateFilters merges u into the filters slice.
func (f *Facade) UpdateFilters(u state.FiltersUpdate) error {
	return f.store.UpdateFilters(u)
}

// Navigation

// NavigateTo records path as the last viewed page, then asks the router to
// navigate there.
func (f *Facade) NavigateTo(ctx context.Context, path string, opts router.NavigateOptions) (bool, error) {
	if err := f.store.SetLastViewedPage(path); err != nil {
		return false, err
	}
	return f.navigate(ctx, path, opts)
}

// NavigateWithData records path and stores data as router.customData before
// navigating, so the target route can read it on arrival.
func (f *Facade) NavigateWithData(ctx context.Context, path string, data any, opts router.NavigateOptions) (bool, error) {
	if err := f.store.SetLastViewedPage(path); err != nil {
		return false, err
	}
	if err := f.store.SetRouteCustomData(data); err != nil {
		return false, err
	}
	return f.navigate(ctx, path, opts)
}

// UpdateQueryParams merges params into the current URL's query without
// changing the path. An empty value removes a parameter.
func (f *Facade) UpdateQueryParams(ctx context.Context, params map[string]string) (bool, error) {
	return f.navigate(ctx, "", router.NavigateOptions{
		QueryParams: params,
		MergeQuery:  true,
		ReplaceURL:  true,
	})
}

// ResetState restores the initial state.
func (f *Facade) ResetState() error {
	return f.store.Reset()
}

func (f *Facade) navigate(ctx context.Context, path string, opts router.NavigateOptions) (bool, error) {
	if f.nav == nil {
		return false, nil
	}
	ok, err := f.nav.Navigate(ctx, path, opts)
	if err != nil {
		return false, fmt.Errorf("navigate %q: %w", path, err)
	}
	return ok, nil
}
