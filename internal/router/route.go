package router

import (
	"context"
	"strings"
)

// Route is one entry of the route table.
//
// Pattern segments starting with ':' capture a parameter; a final "**"
// matches any remainder.
type Route struct {
	Pattern string
	Data    map[string]any

	// Guard may refuse a navigation. Nil allows everything.
	Guard func(ctx context.Context, m Match) bool
}

// Match is a route resolved against a concrete URL.
type Match struct {
	Path        string
	Pattern     string
	Params      map[string]string
	QueryParams map[string]string
	Data        map[string]any
}

// match reports whether path matches pattern and returns captured params.
func match(pattern, path string) (map[string]string, bool) {
	pSegs := splitPath(pattern)
	segs := splitPath(path)
	params := map[string]string{}

	for i, p := range pSegs {
		if p == "**" {
			return params, i == len(pSegs)-1
		}
		if i >= len(segs) {
			return nil, false
		}
		switch {
		case strings.HasPrefix(p, ":"):
			params[p[1:]] = segs[i]
		case p != segs[i]:
			return nil, false
		}
	}
	if len(segs) != len(pSegs) {
		return nil, false
	}
	return params, true
}

func splitPath(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
