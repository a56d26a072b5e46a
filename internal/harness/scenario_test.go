package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes content to a scenario file in a temp dir.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
config:
  dev_mode: true
routes:
  - pattern: /users/:id
    data: { title: User }
storage:
  theme: dark
setup:
  - op: set_authenticated
    args: { authenticated: true, username: alice }
flow:
  - op: navigate
    args:
      path: /users/42
    expect:
      result: true
assertions:
  - type: state
    path: router.params.id
    equals: "42"
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.True(t, scenario.Config.DevMode)
	require.Len(t, scenario.Routes, 1)
	assert.Equal(t, "User", scenario.Routes[0].Data["title"])
	assert.Equal(t, map[string]string{"theme": "dark"}, scenario.Storage)
	assert.Len(t, scenario.Setup, 1)
	require.Len(t, scenario.Flow, 1)
	assert.Equal(t, "navigate", scenario.Flow[0].Op)
	assert.Equal(t, "/users/42", scenario.Flow[0].Args["path"])
	assert.Equal(t, true, scenario.Flow[0].Expect.Result)
	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, AssertState, scenario.Assertions[0].Type)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open scenario")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: test
description: d
flow:
  - op: toggle_sidebar
    invoke: Cart.addItem
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invoke")
}

func TestLoadScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: d\nflow:\n  - op: toggle_sidebar\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\nflow:\n  - op: toggle_sidebar\n",
			wantErr: "description is required",
		},
		{
			name:    "empty flow",
			content: "name: n\ndescription: d\n",
			wantErr: "flow must have at least one step",
		},
		{
			name:    "unknown op",
			content: "name: n\ndescription: d\nflow:\n  - op: launch_rockets\n",
			wantErr: `flow[0]: unknown op "launch_rockets"`,
		},
		{
			name:    "missing op in setup",
			content: "name: n\ndescription: d\nsetup:\n  - args: {}\nflow:\n  - op: toggle_sidebar\n",
			wantErr: "setup[0]: op is required",
		},
		{
			name:    "route without pattern",
			content: "name: n\ndescription: d\nroutes:\n  - data: {}\nflow:\n  - op: toggle_sidebar\n",
			wantErr: "routes[0]: pattern is required",
		},
		{
			name:    "unknown assertion type",
			content: "name: n\ndescription: d\nflow:\n  - op: toggle_sidebar\nassertions:\n  - type: final_state\n",
			wantErr: `unknown assertion type "final_state"`,
		},
		{
			name:    "expr without expr",
			content: "name: n\ndescription: d\nflow:\n  - op: toggle_sidebar\nassertions:\n  - type: expr\n",
			wantErr: "expr assertion requires expr",
		},
		{
			name:    "event order with one event",
			content: "name: n\ndescription: d\nflow:\n  - op: toggle_sidebar\nassertions:\n  - type: event_order\n    events: [page_view]\n",
			wantErr: "at least two events",
		},
		{
			name:    "stored without key",
			content: "name: n\ndescription: d\nflow:\n  - op: toggle_sidebar\nassertions:\n  - type: stored\n    absent: true\n",
			wantErr: "stored assertion requires key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOpNames(t *testing.T) {
	names := OpNames()
	assert.Contains(t, names, "set_theme")
	assert.Contains(t, names, "navigate_with_data")
	assert.Contains(t, names, "debug")
	assert.IsNonDecreasing(t, names)
}
