package state

import "github.com/roach88/statecore/internal/ir"

// Default values of the initial snapshot.
const (
	DefaultTheme    = "light"
	DefaultLanguage = "en"
	DefaultTimezone = "UTC"
)

// Initial returns a fresh copy of the built-in initial tree.
func Initial() ir.IRObject {
	return ir.Obj(
		ir.O(SliceUser, ir.Obj(
			ir.O("isAuthenticated", ir.IRBool(false)),
		)),
		ir.O(SliceUI, ir.Obj(
			ir.O("theme", ir.IRString(DefaultTheme)),
			ir.O("notifications", ir.IRArray{}),
			ir.O("isLoading", ir.IRBool(false)),
			ir.O("lastViewedPage", ir.IRString("")),
			ir.O("sidebarCollapsed", ir.IRBool(false)),
		)),
		ir.O(SlicePreferences, ir.Obj(
			ir.O("theme", ir.IRString(DefaultTheme)),
			ir.O("language", ir.IRString(DefaultLanguage)),
			ir.O("timezone", ir.IRString(DefaultTimezone)),
			ir.O("notifications", ir.Obj(
				ir.O("email", ir.IRBool(true)),
				ir.O("push", ir.IRBool(true)),
				ir.O("inApp", ir.IRBool(true)),
			)),
		)),
	)
}

// InitialState returns Initial() as a snapshot.
func InitialState() AppState {
	return AppState{root: Initial()}
}
