package engine

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/roach88/statecore/internal/state"
)

// equalOpts defines structural equality for projections: nil and empty
// collections are equal, and snapshots compare by content.
var equalOpts = []cmp.Option{
	cmpopts.EquateEmpty(),
	cmp.Comparer(func(a, b state.AppState) bool { return a.Equal(b) }),
}

// Equal reports whether two projections are structurally equal under the
// selector rules.
func Equal[T any](a, b T) bool {
	return cmp.Equal(a, b, equalOpts...)
}

// Select subscribes fn to a projection of the state.
//
// fn receives the projection of the state at subscribe time first, then
// each later projection that differs structurally from the last one
// delivered. Projections must not retain references they later mutate.
func Select[T any](s *Store, project func(state.AppState) T, fn func(T)) *Subscription {
	var (
		last T
		seen bool
	)
	// Callbacks of one subscription run sequentially, so last needs no lock.
	return s.Subscribe(func(st state.AppState) {
		v := project(st)
		if seen && Equal(last, v) {
			return
		}
		last, seen = v, true
		fn(v)
	})
}

// Pairwise subscribes fn to consecutive distinct projections. The first
// projection is remembered and not delivered; each later distinct value is
// delivered together with the one before it.
func Pairwise[T any](s *Store, project func(state.AppState) T, fn func(prev, cur T)) *Subscription {
	var (
		prev T
		seen bool
	)
	return Select(s, project, func(cur T) {
		if seen {
			fn(prev, cur)
		}
		prev, seen = cur, true
	})
}
