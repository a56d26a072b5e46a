package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statecore/internal/effects"
	"github.com/roach88/statecore/internal/ir"
	"github.com/roach88/statecore/internal/state"
)

func testResult() *Result {
	r := NewResult()
	r.State = state.InitialState().Apply(ir.Obj(
		ir.O("ui", ir.Obj(ir.O("theme", ir.IRString("dark")))),
		ir.O("router", ir.Obj(
			ir.O("url", ir.IRString("/users/42")),
			ir.O("params", ir.Obj(ir.O("id", ir.IRString("42")))),
		)),
	))
	r.URL = "/users/42"
	r.AddStep(TraceEvent{Phase: PhaseFlow, Op: "navigate", Seq: 3, Events: []effects.Event{
		{Name: "page_view", Payload: map[string]any{"page": "/users/42"}},
	}})
	r.AddStep(TraceEvent{Phase: PhaseFlow, Index: 1, Op: "sign_out", Seq: 7, Events: []effects.Event{
		{Name: "user_logged_out"},
		{Name: "page_view", Payload: map[string]any{"page": "/"}},
	}})
	r.Stored = map[string]string{
		"theme":    "dark",
		"appState": `{"ui":{"theme":"dark","lastViewedPage":"/users/42"}}`,
	}
	return r
}

func TestEvaluateAssertions(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string // empty means pass
	}{
		{"expr true", Assertion{Type: AssertExpr, Expr: `ui.theme == "dark" && router.params.id == "42"`}, ""},
		{"expr uses url and events", Assertion{Type: AssertExpr, Expr: `url == "/users/42" && len(events) == 3`}, ""},
		{"expr undefined is nil", Assertion{Type: AssertExpr, Expr: `filters == nil`}, ""},
		{"expr false", Assertion{Type: AssertExpr, Expr: `ui.isLoading`}, "Actual: false"},
		{"expr not bool", Assertion{Type: AssertExpr, Expr: `ui.theme`}, "ui.theme"},

		{"state equals", Assertion{Type: AssertState, Path: "ui.theme", Equals: "dark"}, ""},
		{"state nested object", Assertion{Type: AssertState, Path: "router.params", Equals: map[string]any{"id": "42"}}, ""},
		{"state empty list", Assertion{Type: AssertState, Path: "ui.notifications", Equals: []any{}}, ""},
		{"state mismatch", Assertion{Type: AssertState, Path: "ui.theme", Equals: "light"}, `ui.theme = "dark"`},
		{"state missing", Assertion{Type: AssertState, Path: "user.username", Equals: "x"}, "path not found"},
		{"state absent", Assertion{Type: AssertState, Path: "filters", Absent: true}, ""},
		{"state absent fails", Assertion{Type: AssertState, Path: "ui.theme", Absent: true}, "to be absent"},

		{"stored string", Assertion{Type: AssertStored, Key: "theme", Equals: "dark"}, ""},
		{"stored json", Assertion{Type: AssertStored, Key: "appState", Equals: map[string]any{
			"ui": map[string]any{"lastViewedPage": "/users/42", "theme": "dark"},
		}}, ""},
		{"stored json mismatch", Assertion{Type: AssertStored, Key: "appState", Equals: map[string]any{"ui": map[string]any{}}}, `key "appState"`},
		{"stored present without value", Assertion{Type: AssertStored, Key: "theme"}, ""},
		{"stored missing", Assertion{Type: AssertStored, Key: "nope"}, "key not stored"},
		{"stored absent", Assertion{Type: AssertStored, Key: "nope", Absent: true}, ""},

		{"event contains", Assertion{Type: AssertEventContains, Event: "page_view", Payload: map[string]any{"page": "/"}}, ""},
		{"event contains name only", Assertion{Type: AssertEventContains, Event: "user_logged_out"}, ""},
		{"event contains payload mismatch", Assertion{Type: AssertEventContains, Event: "page_view", Payload: map[string]any{"page": "/x"}}, "not found in events"},

		{"event order", Assertion{Type: AssertEventOrder, Events: []string{"page_view", "user_logged_out", "page_view"}}, ""},
		{"event order wrong", Assertion{Type: AssertEventOrder, Events: []string{"user_logged_out", "user_logged_in"}}, "missing user_logged_in"},

		{"event count", Assertion{Type: AssertEventCount, Event: "page_view", Count: 2}, ""},
		{"event count with payload", Assertion{Type: AssertEventCount, Event: "page_view", Payload: map[string]any{"page": "/"}, Count: 1}, ""},
		{"event count zero", Assertion{Type: AssertEventCount, Event: "error_notification", Count: 0}, ""},
		{"event count wrong", Assertion{Type: AssertEventCount, Event: "page_view", Count: 1}, "2 occurrences"},

		{"route", Assertion{Type: AssertRoute, URL: "/users/42"}, ""},
		{"route wrong", Assertion{Type: AssertRoute, URL: "/"}, "Actual: /users/42"},

		{"unknown type", Assertion{Type: "final_state"}, `unknown assertion type "final_state"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(testResult(), []Assertion{tt.assertion})
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.wantErr)
		})
	}
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	r := testResult()
	errs := EvaluateAssertions(r, []Assertion{{Type: AssertRoute, URL: "/"}})
	require.Len(t, errs, 1)

	assert.Contains(t, errs[0], "Assertion failed: route")
	assert.Contains(t, errs[0], "Full trace:")
	assert.Contains(t, errs[0], "sign_out")
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)

	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}

func TestSameValue(t *testing.T) {
	assert.True(t, sameValue(3, int64(3)))
	assert.True(t, sameValue(map[string]any{"a": []any{1, "x"}}, map[string]any{"a": []any{int64(1), "x"}}))
	assert.False(t, sameValue("3", 3))
	assert.False(t, sameValue(true, nil))
	assert.True(t, sameValue(nil, nil))
}
