package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	"github.com/roach88/statecore/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"` // "match", "updated" or "mismatch"
	Errors []string `json:"errors,omitempty"`

	diff string
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// RenderText implements TextRenderer.
func (r TestResult) RenderText(w io.Writer, verbose bool) {
	if r.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return
	}
	for _, s := range r.Scenarios {
		mark := "✓"
		if !s.Pass {
			mark = "✗"
		}
		switch s.Golden {
		case "updated":
			fmt.Fprintf(w, "%s %s (golden updated)\n", mark, s.Name)
		default:
			fmt.Fprintf(w, "%s %s\n", mark, s.Name)
		}
		for _, e := range s.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		if verbose && s.diff != "" {
			fmt.Fprintf(w, "  diff (-golden +actual):\n%s", s.diff)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", r.Passed, r.Failed, r.Total)
	if r.Failed == 0 {
		fmt.Fprintln(w, "✓ All scenarios passed")
	}
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenario-file-or-dir>...",
		Short: "Run scenario harness",
		Long: `Run YAML scenarios against a fully wired application.

Each scenario drives the facade through its setup and flow steps and checks
its assertions. When <dir>/golden/<scenario-file>.golden exists next to a
scenario, the formatted trace must match it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  statecore test ./testdata/scenarios
  statecore test ./testdata/scenarios --filter "sign_*"
  statecore test ./testdata/scenarios --update
  statecore test ./testdata/scenarios/route_tracking.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenario files by glob pattern (without extension)")

	return cmd
}

func runTests(opts *TestOptions, paths []string, cmd *cobra.Command) error {
	files, err := harness.ExpandPaths(paths)
	if err != nil {
		var notFound *harness.ScenarioNotFoundError
		if errors.As(err, &notFound) {
			return NewExitError(ExitCommandError, fmt.Sprintf("scenario path not found: %s", notFound.Path))
		}
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	files, err = filterScenarioFiles(files, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}
	for _, file := range files {
		opts.formatter(cmd).VerboseLog("running %s", file)
		scenResult := runScenario(ctx, file, opts)
		result.Scenarios = append(result.Scenarios, scenResult)

		if scenResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	out := opts.formatter(cmd)
	if result.Failed > 0 {
		msg := fmt.Sprintf("%d scenario(s) failed", result.Failed)
		if err := out.Failure(result, CodeTestFailed, msg); err != nil {
			return err
		}
		// Test failures = exit code 1
		return NewExitError(ExitFailure, msg)
	}
	return out.Success(result)
}

// filterScenarioFiles keeps files whose base name without extension
// matches the glob pattern.
func filterScenarioFiles(files []string, filter string) ([]string, error) {
	if filter == "" {
		return files, nil
	}
	if _, err := filepath.Match(filter, ""); err != nil {
		return nil, err
	}

	var out []string
	for _, f := range files {
		if ok, _ := filepath.Match(filter, scenarioBase(f)); ok {
			out = append(out, f)
		}
	}
	return out, nil
}

func scenarioBase(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// runScenario executes a single scenario file and returns the result.
func runScenario(ctx context.Context, file string, opts *TestOptions) ScenarioResult {
	res := ScenarioResult{Name: scenarioBase(file), Path: file}
	fail := func(format string, args ...any) ScenarioResult {
		res.Errors = append(res.Errors, fmt.Sprintf(format, args...))
		return res
	}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return fail("failed to load scenario: %v", err)
	}
	res.Name = scenario.Name

	result, err := harness.Run(ctx, scenario)
	if err != nil {
		return fail("execution failed: %v", err)
	}
	res.Errors = append(res.Errors, result.Errors...)

	trace := harness.FormatTrace(scenario.Name, result)
	goldenPath := goldenFilePath(file)

	switch {
	case opts.Update:
		if err := writeGolden(goldenPath, trace); err != nil {
			return fail("failed to update golden file: %v", err)
		}
		res.Golden = "updated"

	default:
		want, err := os.ReadFile(goldenPath)
		if os.IsNotExist(err) {
			// No golden file - use assertion-based validation only
			break
		}
		if err != nil {
			return fail("failed to read golden file: %v", err)
		}
		if string(want) != trace {
			res.Golden = "mismatch"
			res.diff = cmp.Diff(strings.Split(string(want), "\n"), strings.Split(trace, "\n"))
			return fail("trace does not match golden file (run with --update to regenerate)")
		}
		res.Golden = "match"
	}

	res.Pass = len(res.Errors) == 0
	return res
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	return filepath.Join(filepath.Dir(scenarioFile), "golden", scenarioBase(scenarioFile)+".golden")
}

// writeGolden writes the current trace as the golden file.
func writeGolden(path, trace string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(trace), 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}
