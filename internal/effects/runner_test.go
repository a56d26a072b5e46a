package effects

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statecore/internal/engine"
	"github.com/roach88/statecore/internal/router"
	"github.com/roach88/statecore/internal/state"
)

// countingNav records every path effects navigate to.
type countingNav struct {
	*router.Memory
	mu    sync.Mutex
	paths []string
}

func (n *countingNav) Navigate(ctx context.Context, path string, opts router.NavigateOptions) (bool, error) {
	n.mu.Lock()
	n.paths = append(n.paths, path)
	n.mu.Unlock()
	return n.Memory.Navigate(ctx, path, opts)
}

func (n *countingNav) Paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

type fixture struct {
	store     *engine.Store
	nav       *countingNav
	analytics *MemoryAnalytics
	runner    *Runner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := engine.New(engine.WithLogger(logger), engine.WithIDGenerator(engine.NewSequenceGenerator("n")))
	require.NoError(t, err)
	nav := &countingNav{Memory: router.NewMemory(router.WithLogger(logger))}
	tracker := router.Track(nav, store, logger)
	analytics := &MemoryAnalytics{}
	runner := Start(context.Background(), store, nav, analytics, WithLogger(logger))

	t.Cleanup(func() {
		runner.Close()
		tracker.Close()
		store.Close()
	})
	return &fixture{store: store, nav: nav, analytics: analytics, runner: runner}
}

func (f *fixture) settle(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.store.Settle(ctx))
}

func TestRunner_LoginRedirectsToLastViewedPage(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.store.SetLastViewedPage("/reports"))
	f.settle(t)
	require.NoError(t, f.store.SetAuthState(true, &state.UserData{Username: state.String("ada")}))
	f.settle(t)

	assert.Equal(t, "/reports", f.nav.CurrentURL())
	assert.Contains(t, f.analytics.Names(), EventUserLoggedIn)
}

func TestRunner_ProfileUpdateDoesNotRedirectAgain(t *testing.T) {
	f := newFixture(t)
	require.False(t, f.store.Current().User().IsAuthenticated)

	require.NoError(t, f.store.SetAuthState(true, &state.UserData{UserID: state.String("u1")}))
	f.settle(t)
	require.Len(t, f.nav.Paths(), 1)

	require.NoError(t, f.store.SetAuthState(true, &state.UserData{Username: state.String("ada")}))
	f.settle(t)

	assert.Equal(t, []string{"/"}, f.nav.Paths())
	assert.Equal(t, "ada", f.store.Current().User().Username)
	logins := 0
	for _, name := range f.analytics.Names() {
		if name == EventUserLoggedIn {
			logins++
		}
	}
	assert.Equal(t, 1, logins)
}

func TestRunner_NilNavigator(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := engine.New(engine.WithLogger(logger))
	require.NoError(t, err)
	analytics := &MemoryAnalytics{}
	runner := Start(context.Background(), store, nil, analytics, WithLogger(logger))
	t.Cleanup(func() {
		runner.Close()
		store.Close()
	})

	require.NoError(t, store.SetAuthState(true, nil))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, store.Settle(ctx))

	assert.Equal(t, []string{EventUserLoggedIn}, analytics.Names())
}

func TestRunner_LoginFromLoginPageGoesHome(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.store.SetLastViewedPage(DefaultLoginPath))
	require.NoError(t, f.store.SetAuthState(true, nil))
	f.settle(t)

	assert.Equal(t, "/", f.nav.CurrentURL())
}

func TestRunner_LogoutClearsIdentityAndRedirects(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.store.SetAuthState(true, &state.UserData{
		UserID:      state.String("u-1"),
		Username:    state.String("ada"),
		Roles:       []string{"admin"},
		Permissions: []string{"write"},
		Profile:     &state.UserProfile{Email: "ada@example.com"},
	}))
	f.settle(t)

	require.NoError(t, f.store.SetAuthState(false, nil))
	f.settle(t)

	user := f.store.Current().User()
	assert.False(t, user.IsAuthenticated)
	assert.Empty(t, user.UserID)
	assert.Empty(t, user.Username)
	assert.Empty(t, user.Roles)
	assert.Empty(t, user.Permissions)
	assert.Nil(t, user.Profile)

	assert.Equal(t, DefaultLoginPath, f.nav.CurrentURL())
	assert.Equal(t, DefaultLoginPath, f.store.Current().UI().LastViewedPage)
	names := f.analytics.Names()
	require.Len(t, names, 3)
	assert.ElementsMatch(t, []string{EventUserLoggedIn, EventPageView}, names[:2], "page view of / races the login event")
	assert.Equal(t, EventUserLoggedOut, names[2])
}

func TestRunner_PageViewsOncePerDistinctPage(t *testing.T) {
	f := newFixture(t)

	for _, p := range []string{"/a", "/a", "", DefaultLoginPath, "/b"} {
		require.NoError(t, f.store.SetLastViewedPage(p))
	}
	f.settle(t)

	var pages []any
	for _, e := range f.analytics.Events() {
		if e.Name == EventPageView {
			pages = append(pages, e.Payload["page"])
		}
	}
	assert.Equal(t, []any{"/a", "/b"}, pages)
}

func TestRunner_ErrorNotificationEscalation(t *testing.T) {
	f := newFixture(t)

	_, err := f.store.AddNotification("saved", state.NotificationSuccess, nil)
	require.NoError(t, err)
	failed, err := f.store.AddNotification("boom", state.NotificationError, nil)
	require.NoError(t, err)
	f.settle(t)

	require.NoError(t, f.store.MarkNotificationRead(failed.ID))
	f.settle(t)

	var escalated []Event
	for _, e := range f.analytics.Events() {
		if e.Name == EventErrorNotification {
			escalated = append(escalated, e)
		}
	}
	require.Len(t, escalated, 1, "marking read does not re-fire")
	assert.Equal(t, "boom", escalated[0].Payload["message"])
}

func TestRunner_CloseUnsubscribesAll(t *testing.T) {
	f := newFixture(t)
	f.settle(t)
	assert.Equal(t, 3, f.store.SubscriberCount())

	f.runner.Close()
	f.runner.Close()
	assert.Equal(t, 0, f.store.SubscriberCount())

	require.NoError(t, f.store.SetAuthState(true, nil))
	f.settle(t)
	assert.Empty(t, f.analytics.Names())
}

func TestLogAnalytics(t *testing.T) {
	LogAnalytics{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}.Record(EventPageView, map[string]any{"page": "/"})
	LogAnalytics{}.Record(EventUserLoggedIn, nil)
}

func TestMulti(t *testing.T) {
	a, b := &MemoryAnalytics{}, &MemoryAnalytics{}
	Multi{a, b}.Record(EventPageView, map[string]any{"page": "/x"})
	assert.Equal(t, []string{EventPageView}, a.Names())
	assert.Equal(t, []string{EventPageView}, b.Names())
}
