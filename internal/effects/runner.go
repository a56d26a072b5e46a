package effects

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/statecore/internal/engine"
	"github.com/roach88/statecore/internal/router"
	"github.com/roach88/statecore/internal/state"
)

// DefaultLoginPath is where signed-out users are sent.
const DefaultLoginPath = "/auth/login"

// Runner owns the effect subscriptions. It starts eagerly and is disposed
// once with Close.
type Runner struct {
	store     *engine.Store
	nav       router.Navigator
	analytics Analytics
	logger    *slog.Logger
	loginPath string

	ctx    context.Context
	cancel context.CancelFunc
	subs   []*engine.Subscription
	once   sync.Once
}

// Option configures a Runner.
type Option func(*Runner)

// WithLoginPath sets the sign-in page path. Default: DefaultLoginPath.
func WithLoginPath(p string) Option {
	return func(r *Runner) {
		if p != "" {
			r.loginPath = p
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// Start subscribes the watchers and returns the running Runner. Navigations
// triggered by effects use ctx; Close cancels it. nav may be nil.
func Start(ctx context.Context, store *engine.Store, nav router.Navigator, analytics Analytics, opts ...Option) *Runner {
	r := &Runner{
		store:     store,
		nav:       nav,
		analytics: analytics,
		logger:    slog.Default(),
		loginPath: DefaultLoginPath,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.analytics == nil {
		r.analytics = LogAnalytics{Logger: r.logger}
	}
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.subs = append(r.subs,
		engine.Pairwise(store, isAuthenticated, r.onAuthChange),
		engine.Select(store, lastViewedPage, r.onPageView),
		engine.Select(store, lastNotification, r.onNotification),
	)
	r.logger.Debug("effects started", "watchers", len(r.subs))
	return r
}

// Close unsubscribes every watcher. It is idempotent.
func (r *Runner) Close() {
	r.once.Do(func() {
		for _, sub := range r.subs {
			sub.Unsubscribe()
		}
		r.cancel()
		r.logger.Debug("effects stopped")
	})
}

func (r *Runner) onAuthChange(was, is bool) {
	switch {
	case was && !is:
		if err := r.store.ClearIdentity(); err != nil {
			r.logger.Warn("clear identity after sign-out", "error", err)
		}
		r.navigate(r.loginPath)
		r.analytics.Record(EventUserLoggedOut, nil)

	case !was && is:
		target := r.store.Current().UI().LastViewedPage
		if target == "" || target == r.loginPath {
			target = "/"
		}
		r.navigate(target)
		r.analytics.Record(EventUserLoggedIn, map[string]any{"redirect": target})
	}
}

func (r *Runner) onPageView(page string) {
	if page == "" || page == r.loginPath {
		return
	}
	r.analytics.Record(EventPageView, map[string]any{"page": page})
}

func (r *Runner) onNotification(n notificationKey) {
	if !n.Present || n.Type != state.NotificationError {
		return
	}
	r.logger.Error("error notification", "id", n.ID, "message", n.Message)
	r.analytics.Record(EventErrorNotification, map[string]any{"id": n.ID, "message": n.Message})
}

// navigate does nothing without a router; the analytics event still fires.
func (r *Runner) navigate(path string) {
	if r.nav == nil {
		return
	}
	ok, err := r.nav.Navigate(r.ctx, path, router.NavigateOptions{})
	switch {
	case err != nil:
		r.logger.Warn("effect navigation failed", "path", path, "error", err)
	case !ok:
		r.logger.Info("effect navigation refused", "path", path)
	}
}

func isAuthenticated(s state.AppState) bool {
	return s.User().IsAuthenticated
}

func lastViewedPage(s state.AppState) string {
	return s.UI().LastViewedPage
}

// notificationKey identifies the last notification by content. The read
// flag is left out so marking a notification read does not re-fire it.
type notificationKey struct {
	Present bool
	ID      string
	Message string
	Type    state.NotificationType
}

func lastNotification(s state.AppState) notificationKey {
	list := s.UI().Notifications
	if len(list) == 0 {
		return notificationKey{}
	}
	n := list[len(list)-1]
	return notificationKey{Present: true, ID: n.ID, Message: n.Message, Type: n.Type}
}
