package harness

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/roach88/statecore/internal/debug"
	"github.com/roach88/statecore/internal/effects"
	"github.com/roach88/statecore/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     AssertionType // Assertion type for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Trace    []TraceEvent  // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  %s\n", formatStep(event))
		}
	}

	return buf.String()
}

// assertExpr evaluates a boolean expression over the final state. The
// top-level slices are variables; url and events are also available.
func assertExpr(result *Result, assertion Assertion) error {
	env := debug.StateEnv(result.State.Tree())
	env["url"] = result.URL
	names := make([]any, len(result.Events))
	for i, e := range result.Events {
		names[i] = e.Name
	}
	env["events"] = names

	program, err := expr.Compile(assertion.Expr, expr.Env(env), expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return fmt.Errorf("compile expr %q: %w", assertion.Expr, err)
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return &AssertionError{
			Type:     AssertExpr,
			Expected: assertion.Expr,
			Actual:   fmt.Sprintf("evaluation error: %v", err),
		}
	}
	if ok, _ := out.(bool); !ok {
		return &AssertionError{
			Type:     AssertExpr,
			Expected: assertion.Expr,
			Actual:   "false",
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertState compares the value at a dotted path of the final state.
func assertState(result *Result, assertion Assertion) error {
	actual, ok := result.State.Lookup(assertion.Path)
	if assertion.Absent {
		if ok {
			return &AssertionError{
				Type:     AssertState,
				Expected: fmt.Sprintf("%s to be absent", assertion.Path),
				Actual:   formatValue(ir.ToAny(actual)),
			}
		}
		return nil
	}
	if !ok {
		return &AssertionError{
			Type:     AssertState,
			Expected: fmt.Sprintf("%s = %s", assertion.Path, formatValue(assertion.Equals)),
			Actual:   "path not found",
			Trace:    result.Trace,
		}
	}
	if !sameValue(assertion.Equals, ir.ToAny(actual)) {
		return &AssertionError{
			Type:     AssertState,
			Expected: fmt.Sprintf("%s = %s", assertion.Path, formatValue(assertion.Equals)),
			Actual:   fmt.Sprintf("%s = %s", assertion.Path, formatValue(ir.ToAny(actual))),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertStored compares a durable storage entry. JSON values are compared
// by content, other values as strings.
func assertStored(result *Result, assertion Assertion) error {
	raw, ok := result.Stored[assertion.Key]
	if assertion.Absent {
		if ok {
			return &AssertionError{
				Type:     AssertStored,
				Expected: fmt.Sprintf("key %q to be absent", assertion.Key),
				Actual:   raw,
			}
		}
		return nil
	}
	if !ok {
		return &AssertionError{
			Type:     AssertStored,
			Expected: fmt.Sprintf("key %q = %s", assertion.Key, formatValue(assertion.Equals)),
			Actual:   "key not stored",
		}
	}

	var actual any = raw
	if _, isString := assertion.Equals.(string); !isString {
		if v, err := ir.UnmarshalIRValue([]byte(raw)); err == nil {
			actual = ir.ToAny(v)
		}
	}
	if assertion.Equals != nil && !sameValue(assertion.Equals, actual) {
		return &AssertionError{
			Type:     AssertStored,
			Expected: fmt.Sprintf("key %q = %s", assertion.Key, formatValue(assertion.Equals)),
			Actual:   raw,
		}
	}
	return nil
}

// assertEventContains checks that an analytics event with the given name
// and payload (subset match) was recorded.
func assertEventContains(result *Result, assertion Assertion) error {
	for _, e := range result.Events {
		if e.Name == assertion.Event && matchPayload(e.Payload, assertion.Payload) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertEventContains,
		Expected: fmt.Sprintf("event %s with payload %s", assertion.Event, formatValue(assertion.Payload)),
		Actual:   fmt.Sprintf("not found in events %v", eventNames(result.Events)),
		Trace:    result.Trace,
	}
}

// assertEventOrder checks that events appear in the specified order.
// Events don't need to be consecutive (intervening events are allowed).
func assertEventOrder(result *Result, assertion Assertion) error {
	next := 0
	for _, e := range result.Events {
		if next < len(assertion.Events) && e.Name == assertion.Events[next] {
			next++
		}
	}
	if next < len(assertion.Events) {
		return &AssertionError{
			Type:     AssertEventOrder,
			Expected: fmt.Sprintf("events in order: %v", assertion.Events),
			Actual:   fmt.Sprintf("%v (missing %s)", eventNames(result.Events), assertion.Events[next]),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertEventCount checks that the event was recorded exactly Count times.
func assertEventCount(result *Result, assertion Assertion) error {
	count := 0
	for _, e := range result.Events {
		if e.Name == assertion.Event && matchPayload(e.Payload, assertion.Payload) {
			count++
		}
	}
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Event),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertRoute checks the router's final URL.
func assertRoute(result *Result, assertion Assertion) error {
	if result.URL != assertion.URL {
		return &AssertionError{
			Type:     AssertRoute,
			Expected: assertion.URL,
			Actual:   result.URL,
			Trace:    result.Trace,
		}
	}
	return nil
}

// matchPayload checks if actual contains all expected keys (subset match).
// Extra keys in actual are ignored.
func matchPayload(actual, expected map[string]any) bool {
	for key, want := range expected {
		got, ok := actual[key]
		if !ok || !sameValue(want, got) {
			return false
		}
	}
	return true
}

func eventNames(events []effects.Event) []string {
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.Name
	}
	return names
}

// formatValue renders a value as compact JSON for messages and traces.
func formatValue(v any) string {
	if v == nil {
		return "null"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertExpr:
			err = assertExpr(result, assertion)
		case AssertState:
			err = assertState(result, assertion)
		case AssertStored:
			err = assertStored(result, assertion)
		case AssertEventContains:
			err = assertEventContains(result, assertion)
		case AssertEventOrder:
			err = assertEventOrder(result, assertion)
		case AssertEventCount:
			err = assertEventCount(result, assertion)
		case AssertRoute:
			err = assertRoute(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
