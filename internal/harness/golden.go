package harness

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// FormatTrace renders a result as the text stored in golden files: one line
// per step with its sequence number, changed slices and outcome, the step's
// analytics events indented below it, and a closing line with the final URL
// and sequence number.
//
//	scenario: sign_out
//	setup  0 set_authenticated        seq=3   changed=router,ui,user
//	  event page_view {"page":"/"}
//	  event user_logged_in {"redirect":"/"}
//	flow   0 sign_out                 seq=7   changed=router,ui,user
//	  event user_logged_out
//	final url=/auth/login seq=7
func FormatTrace(name string, result *Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", name)
	for _, ev := range result.Trace {
		b.WriteString(formatStep(ev))
		b.WriteByte('\n')
		for _, e := range ev.Events {
			fmt.Fprintf(&b, "  event %s", e.Name)
			if len(e.Payload) > 0 {
				fmt.Fprintf(&b, " %s", formatValue(e.Payload))
			}
			b.WriteByte('\n')
		}
	}
	fmt.Fprintf(&b, "final url=%s seq=%d\n", result.URL, result.State.Seq())
	return b.String()
}

func formatStep(ev TraceEvent) string {
	changed := "-"
	if len(ev.Changed) > 0 {
		changed = strings.Join(ev.Changed, ",")
	}
	line := fmt.Sprintf("%-5s %2d %-24s seq=%-3d changed=%s", ev.Phase, ev.Index, ev.Op, ev.Seq, changed)
	if ev.Result != nil {
		line += " result=" + formatValue(ev.Result)
	}
	if ev.Error != "" {
		line += fmt.Sprintf(" error=%q", ev.Error)
	}
	return line
}

// RunWithGolden executes a scenario and compares its trace against a golden
// file. The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, []byte(FormatTrace(scenarioName, result)))
}
