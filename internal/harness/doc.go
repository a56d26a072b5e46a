// Package harness runs YAML scenarios against a fully wired application.
//
// A scenario builds the application (store, router, persistence, effects,
// optional debug recorder and facade), drives the facade through setup and
// flow steps, and checks the outcome with assertions.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	config:
//	  dev_mode: true
//	  login_path: /auth/login
//	routes:
//	  - pattern: /users/:id
//	    data: { title: User }
//	storage:
//	  theme: dark
//	setup:
//	  - op: set_authenticated
//	    args: { authenticated: true, username: alice }
//	flow:
//	  - op: navigate
//	    args: { path: /users/42 }
//	    expect:
//	      result: true
//	  - op: set_theme
//	    args: { theme: no-such-theme }
//	    expect:
//	      error: unknown theme
//	assertions:
//	  - type: state
//	    path: router.params.id
//	    equals: "42"
//	  - type: expr
//	    expr: user.username == "alice" && len(ui.notifications) == 0
//	  - type: event_contains
//	    event: page_view
//	    payload: { page: /users/42 }
//
// # Operations
//
// Every facade operation has an op name in snake case (set_theme, notify,
// navigate_with_data, ...). The extra ops update, save_now, clear_persisted
// and debug reach the store, the persistence adapter and the debug console
// directly. OpNames lists them all.
//
// # Assertion Types
//
//   - expr: expr-lang boolean over the final state; top-level slices, url and events are variables
//   - state: compares the value at a dotted path, or requires it absent
//   - stored: compares a durable storage key after the final flush
//   - event_contains: an analytics event with a matching payload subset was recorded
//   - event_order: analytics events appear in the given order
//   - event_count: an analytics event was recorded exactly N times
//   - route: the router's final URL
//
// # Deterministic Testing
//
// Notification ids come from testutil.FixedIDGenerator and timestamps from
// testutil.StepClock. After every step the harness waits for the store to
// settle, so sequence numbers and changed slices are identical across runs
// and traces can be compared against golden files (see RunWithGolden).
package harness
