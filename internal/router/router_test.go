package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statecore/internal/state"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern, path string
		params        map[string]string
		ok            bool
	}{
		{"/", "/", map[string]string{}, true},
		{"/users/:id", "/users/7", map[string]string{"id": "7"}, true},
		{"/users/:id", "/users", nil, false},
		{"/users/:id", "/users/7/edit", nil, false},
		{"/docs/**", "/docs/a/b", map[string]string{}, true},
		{"/auth/login", "/auth/login/", map[string]string{}, true},
		{"/auth/login", "/auth/logout", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.path, func(t *testing.T) {
			params, ok := match(tt.pattern, tt.path)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.params, params)
			}
		})
	}
}

func TestMemory_NavigateAndListen(t *testing.T) {
	m := NewMemory(WithLogger(discard()), WithRoutes(
		Route{Pattern: "/users/:id", Data: map[string]any{"title": "User"}},
		Route{Pattern: "/**"},
	))

	var events []NavigationEnd
	stop := m.OnNavigationEnd(func(ev NavigationEnd) { events = append(events, ev) })

	ok, err := m.Navigate(context.Background(), "/users/7?tab=info", NavigateOptions{})
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "/users/7?tab=info", m.CurrentURL())
	require.Len(t, events, 1)
	assert.Equal(t, map[string]string{"id": "7"}, events[0].Match.Params)
	assert.Equal(t, map[string]string{"tab": "info"}, events[0].Match.QueryParams)
	assert.Equal(t, "User", events[0].Match.Data["title"])

	stop()
	_, err = m.Navigate(context.Background(), "/settings", NavigateOptions{})
	require.NoError(t, err)
	assert.Len(t, events, 1, "removed listener is not called")
	assert.Equal(t, []string{"/users/7?tab=info", "/settings"}, m.History())
}

func TestMemory_NoRoute(t *testing.T) {
	m := NewMemory(WithLogger(discard()), WithRoutes(Route{Pattern: "/"}))
	ok, err := m.Navigate(context.Background(), "/missing", NavigateOptions{})
	assert.False(t, ok)
	assert.True(t, errors.Is(err, ErrNoRoute))
	assert.Equal(t, "/", m.CurrentURL())
}

func TestMemory_Guard(t *testing.T) {
	m := NewMemory(WithLogger(discard()), WithRoutes(Route{
		Pattern: "/admin",
		Guard:   func(context.Context, Match) bool { return false },
	}))
	ok, err := m.Navigate(context.Background(), "/admin", NavigateOptions{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, m.History())
}

func TestMemory_MergeQuery(t *testing.T) {
	m := NewMemory(WithLogger(discard()))
	ctx := context.Background()

	_, err := m.Navigate(ctx, "/list?page=1&sort=name", NavigateOptions{})
	require.NoError(t, err)

	_, err = m.Navigate(ctx, "", NavigateOptions{
		QueryParams: map[string]string{"page": "2", "sort": ""},
		MergeQuery:  true,
		ReplaceURL:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, "/list?page=2", m.CurrentURL())
	assert.Equal(t, []string{"/list?page=2"}, m.History(), "replaceUrl rewrites the last entry")
}

func TestMemory_CancelledContext(t *testing.T) {
	m := NewMemory(WithLogger(discard()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Navigate(ctx, "/x", NavigateOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRouteTitle(t *testing.T) {
	assert.Equal(t, "Dashboard", RouteTitle("/x", map[string]any{"title": "Dashboard"}))
	assert.Equal(t, "User Settings", RouteTitle("/account/user-settings", nil))
	assert.Equal(t, "Reports", RouteTitle("/REPORTS?x=1", nil))
	assert.Equal(t, "Home", RouteTitle("/", nil))
}

type fakeStore struct {
	mu     sync.Mutex
	pages  []string
	routes []state.RouterState
}

func (f *fakeStore) SetLastViewedPage(page string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages = append(f.pages, page)
	return nil
}

func (f *fakeStore) SetRoute(r state.RouterState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes = append(f.routes, r)
	return nil
}

func TestTracker(t *testing.T) {
	m := NewMemory(WithLogger(discard()), WithRoutes(Route{Pattern: "/projects/:id"}))
	store := &fakeStore{}
	tracker := Track(m, store, discard())

	_, err := m.Navigate(context.Background(), "/projects/42?view=board", NavigateOptions{})
	require.NoError(t, err)

	require.Len(t, store.pages, 1)
	assert.Equal(t, "/projects/42?view=board", store.pages[0])
	require.Len(t, store.routes, 1)
	r := store.routes[0]
	assert.Equal(t, "/projects/42?view=board", r.URL)
	assert.Equal(t, map[string]any{"id": "42"}, r.Params)
	assert.Equal(t, map[string]any{"view": "board"}, r.QueryParams)
	assert.Equal(t, "42", r.Title)

	tracker.Close()
	tracker.Close()
	_, err = m.Navigate(context.Background(), "/projects/43", NavigateOptions{})
	require.NoError(t, err)
	assert.Len(t, store.pages, 1)
}
