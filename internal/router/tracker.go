package router

import (
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/statecore/internal/state"
)

// RouteStore is the part of the store the tracker writes to.
type RouteStore interface {
	SetLastViewedPage(page string) error
	SetRoute(r state.RouterState) error
}

// Tracker mirrors completed navigations into the store: the URL becomes
// ui.lastViewedPage and the resolved route becomes the router slice.
type Tracker struct {
	store  RouteStore
	logger *slog.Logger
	stop   func()
}

// Track starts tracking nav. Call Close to stop.
func Track(nav Navigator, store RouteStore, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tracker{store: store, logger: logger}
	t.stop = nav.OnNavigationEnd(t.handle)
	return t
}

// Close stops tracking. It is safe to call more than once.
func (t *Tracker) Close() {
	if t.stop != nil {
		t.stop()
		t.stop = nil
	}
}

func (t *Tracker) handle(ev NavigationEnd) {
	if err := t.store.SetLastViewedPage(ev.URL); err != nil {
		t.logger.Warn("track last viewed page", "url", ev.URL, "error", err)
	}

	r := state.RouterState{
		URL:         ev.URL,
		Params:      toAny(ev.Match.Params),
		QueryParams: toAny(ev.Match.QueryParams),
		Data:        ev.Match.Data,
		Title:       RouteTitle(ev.Match.Path, ev.Match.Data),
	}
	if err := t.store.SetRoute(r); err != nil {
		t.logger.Warn("track route", "url", ev.URL, "error", err)
	}
}

var titleCaser = cases.Title(language.English)

// RouteTitle derives a page title: data["title"] when set, otherwise the
// last path segment with dashes turned into spaces and title-cased, and
// "Home" for the root.
func RouteTitle(path string, data map[string]any) string {
	if title, ok := data["title"].(string); ok && title != "" {
		return title
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	segs := splitPath(path)
	if len(segs) == 0 {
		return "Home"
	}
	last := strings.ReplaceAll(segs[len(segs)-1], "-", " ")
	return titleCaser.String(last)
}

func toAny(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
