package router

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"slices"
	"sync"
)

// Memory is an in-memory Navigator with a route table.
//
// With an empty route table every path is accepted. Listeners run
// synchronously inside Navigate, after the router's own state has been
// updated and outside its lock.
type Memory struct {
	mu        sync.Mutex
	routes    []Route
	current   string
	query     map[string]string
	history   []string
	listeners map[int]func(NavigationEnd)
	nextID    int
	logger    *slog.Logger
}

// MemoryOption configures a Memory router.
type MemoryOption func(*Memory)

// WithRoutes sets the route table. Routes are tried in order.
func WithRoutes(routes ...Route) MemoryOption {
	return func(m *Memory) {
		m.routes = append(m.routes, routes...)
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) MemoryOption {
	return func(m *Memory) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewMemory creates a router positioned at "/".
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		current:   "/",
		query:     map[string]string{},
		listeners: map[int]func(NavigationEnd){},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Navigate implements Navigator. An empty path keeps the current path, which
// together with MergeQuery updates the query string in place.
func (m *Memory) Navigate(ctx context.Context, path string, opts NavigateOptions) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	u, err := url.Parse(path)
	if err != nil {
		return false, fmt.Errorf("parse path %q: %w", path, err)
	}

	m.mu.Lock()
	target := u.Path
	if target == "" {
		target = m.current
	}
	query := map[string]string{}
	if opts.MergeQuery {
		maps.Copy(query, m.query)
	}
	for k, vs := range u.Query() {
		if len(vs) > 0 {
			query[k] = vs[len(vs)-1]
		}
	}
	for k, v := range opts.QueryParams {
		if v == "" && opts.MergeQuery {
			delete(query, k)
			continue
		}
		query[k] = v
	}

	route, params, ok := m.resolve(target)
	m.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNoRoute, target)
	}

	match := Match{
		Path:        target,
		Pattern:     route.Pattern,
		Params:      params,
		QueryParams: query,
		Data:        maps.Clone(route.Data),
	}
	if route.Guard != nil && !route.Guard(ctx, match) {
		m.logger.Info("navigation refused", "path", target)
		return false, nil
	}

	full := buildURL(target, query)

	m.mu.Lock()
	m.current = target
	m.query = query
	if opts.ReplaceURL && len(m.history) > 0 {
		m.history[len(m.history)-1] = full
	} else {
		m.history = append(m.history, full)
	}
	listeners := make([]func(NavigationEnd), 0, len(m.listeners))
	for _, id := range slices.Sorted(maps.Keys(m.listeners)) {
		listeners = append(listeners, m.listeners[id])
	}
	m.mu.Unlock()

	m.logger.Debug("navigation end", "url", full)
	ev := NavigationEnd{URL: full, Match: match}
	for _, fn := range listeners {
		fn(ev)
	}
	return true, nil
}

// CurrentURL implements Navigator.
func (m *Memory) CurrentURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return buildURL(m.current, m.query)
}

// OnNavigationEnd implements Navigator.
func (m *Memory) OnNavigationEnd(fn func(NavigationEnd)) func() {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// History returns the URLs of completed navigations, oldest first.
func (m *Memory) History() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.history)
}

// resolve finds the first matching route. Caller must hold m.mu.
func (m *Memory) resolve(path string) (Route, map[string]string, bool) {
	if len(m.routes) == 0 {
		return Route{Pattern: path}, map[string]string{}, true
	}
	for _, r := range m.routes {
		if params, ok := match(r.Pattern, path); ok {
			return r, params, true
		}
	}
	return Route{}, nil, false
}

func buildURL(path string, query map[string]string) string {
	if len(query) == 0 {
		return path
	}
	vals := url.Values{}
	for k, v := range query {
		vals.Set(k, v)
	}
	return path + "?" + vals.Encode()
}
