package facade

import (
	"github.com/roach88/statecore/internal/engine"
	"github.com/roach88/statecore/internal/state"
)

// Streams deliver the current value on subscription and every later
// distinct value. Each returns the subscription to cancel.

func (f *Facade) IsAuthenticated(fn func(bool)) *engine.Subscription {
	return engine.Select(f.store, func(s state.AppState) bool { return s.User().IsAuthenticated }, fn)
}

func (f *Facade) UserRoles(fn func([]string)) *engine.Subscription {
	return engine.Select(f.store, func(s state.AppState) []string { return s.User().Roles }, fn)
}

func (f *Facade) Username(fn func(string)) *engine.Subscription {
	return engine.Select(f.store, func(s state.AppState) string { return s.User().Username }, fn)
}

// UserProfile delivers nil while no profile is set.
func (f *Facade) UserProfile(fn func(*state.UserProfile)) *engine.Subscription {
	return engine.Select(f.store, func(s state.AppState) *state.UserProfile { return s.User().Profile }, fn)
}

func (f *Facade) Theme(fn func(string)) *engine.Subscription {
	return engine.Select(f.store, func(s state.AppState) string { return s.UI().Theme }, fn)
}

func (f *Facade) Notifications(fn func([]state.Notification)) *engine.Subscription {
	return engine.Select(f.store, func(s state.AppState) []state.Notification { return s.UI().Notifications }, fn)
}

// UnreadCount delivers the number of notifications not yet marked read.
func (f *Facade) UnreadCount(fn func(int)) *engine.Subscription {
	return engine.Select(f.store, unreadCount, fn)
}

func (f *Facade) IsLoading(fn func(bool)) *engine.Subscription {
	return engine.Select(f.store, func(s state.AppState) bool { return s.UI().IsLoading }, fn)
}

func (f *Facade) IsSidebarCollapsed(fn func(bool)) *engine.Subscription {
	return engine.Select(f.store, func(s state.AppState) bool { return s.UI().SidebarCollapsed }, fn)
}

func (f *Facade) LastViewedPage(fn func(string)) *engine.Subscription {
	return engine.Select(f.store, func(s state.AppState) string { return s.UI().LastViewedPage }, fn)
}

// Preferences delivers nil while the slice is absent.
func (f *Facade) Preferences(fn func(*state.PreferencesState)) *engine.Subscription {
	return engine.Select(f.store, func(s state.AppState) *state.PreferencesState {
		p, ok := s.Preferences()
		if !ok {
			return nil
		}
		return &p
	}, fn)
}

// Filters delivers nil while the slice is absent.
func (f *Facade) Filters(fn func(*state.FiltersState)) *engine.Subscription {
	return engine.Select(f.store, func(s state.AppState) *state.FiltersState {
		v, ok := s.Filters()
		if !ok {
			return nil
		}
		return &v
	}, fn)
}

// CurrentRoute delivers nil until the first navigation completes.
func (f *Facade) CurrentRoute(fn func(*state.RouterState)) *engine.Subscription {
	return engine.Select(f.store, func(s state.AppState) *state.RouterState {
		r, ok := s.Router()
		if !ok {
			return nil
		}
		return &r
	}, fn)
}

// RouteData delivers router.customData, or nil when none is set.
func (f *Facade) RouteData(fn func(any)) *engine.Subscription {
	return engine.Select(f.store, func(s state.AppState) any {
		r, _ := s.Router()
		return r.CustomData
	}, fn)
}

func unreadCount(s state.AppState) int {
	n := 0
	for _, note := range s.UI().Notifications {
		if !note.Read {
			n++
		}
	}
	return n
}
