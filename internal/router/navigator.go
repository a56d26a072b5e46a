package router

import (
	"context"
	"errors"
)

// ErrNoRoute is returned when no route matches the requested path.
var ErrNoRoute = errors.New("no route matches path")

// Navigator is the routing collaborator consumed by the facade, the effects
// runner and the route tracker.
type Navigator interface {
	// Navigate moves to path. It reports false when navigation was refused
	// (for example by a guard) and an error when the path cannot be routed.
	Navigate(ctx context.Context, path string, opts NavigateOptions) (bool, error)

	// CurrentURL returns the URL of the last completed navigation.
	CurrentURL() string

	// OnNavigationEnd registers fn for completed navigations and returns a
	// function that removes it.
	OnNavigationEnd(fn func(NavigationEnd)) func()
}

// NavigateOptions tune a single navigation.
type NavigateOptions struct {
	// QueryParams are applied to the target URL.
	QueryParams map[string]string

	// MergeQuery merges QueryParams into the current query instead of
	// replacing it. An empty value removes the key.
	MergeQuery bool

	// ReplaceURL replaces the current history entry instead of pushing one.
	ReplaceURL bool
}

// NavigationEnd describes a completed navigation.
type NavigationEnd struct {
	// URL is the full URL including the query string.
	URL string

	// Match is the resolved route.
	Match Match
}
