package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ScenarioNotFoundError is returned when a scenario path doesn't exist.
type ScenarioNotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf("scenario path %q does not exist", e.Path)
}

// ExpandPaths resolves files and directories into scenario files.
// Directories contribute their *.yaml and *.yml files (not recursive), in
// lexical order. Duplicates are dropped.
func ExpandPaths(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if os.IsNotExist(err) {
			return nil, &ScenarioNotFoundError{Path: p}
		}
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", p, err)
		}
		for _, e := range entries {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
				continue
			}
			out = append(out, filepath.Join(p, e.Name()))
		}
	}

	slices.Sort(out)
	return slices.Compact(out), nil
}

// Summary contains results from running a set of scenario files.
type Summary struct {
	Total    int       `json:"total"`
	Passed   int       `json:"passed"`
	Failed   int       `json:"failed"`
	Failures []Failure `json:"failures,omitempty"`
}

// Failure represents one failed scenario file.
type Failure struct {
	Scenario string   `json:"scenario,omitempty"`
	Path     string   `json:"path"`
	Errors   []string `json:"errors"`
}

// RunFiles loads and runs every scenario file and summarizes the outcome.
// A file that cannot be loaded or run counts as a failure; RunFiles itself
// only fails when ctx is done.
func RunFiles(ctx context.Context, files []string, opts ...Option) (*Summary, error) {
	summary := &Summary{}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Total++

		scenario, err := LoadScenario(path)
		if err != nil {
			summary.fail(Failure{Path: path, Errors: []string{err.Error()}})
			continue
		}

		result, err := Run(ctx, scenario, opts...)
		if err != nil {
			summary.fail(Failure{Scenario: scenario.Name, Path: path, Errors: []string{err.Error()}})
			continue
		}
		if !result.Pass {
			summary.fail(Failure{Scenario: scenario.Name, Path: path, Errors: result.Errors})
			continue
		}
		summary.Passed++
	}

	return summary, nil
}

func (s *Summary) fail(f Failure) {
	s.Failed++
	s.Failures = append(s.Failures, f)
}
