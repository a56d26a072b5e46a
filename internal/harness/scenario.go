package harness

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/statecore/internal/router"
)

// Scenario represents a test scenario loaded from YAML.
// Scenarios drive the facade through setup and flow steps and check the
// resulting state, analytics events, route and stored record.
type Scenario struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Config      ScenarioConfig    `yaml:"config,omitempty"`
	Routes      []RouteSpec       `yaml:"routes,omitempty"`
	Storage     map[string]string `yaml:"storage,omitempty"` // Seeds durable storage before the app starts
	Setup       []Step            `yaml:"setup,omitempty"`
	Flow        []Step            `yaml:"flow"`
	Assertions  []Assertion       `yaml:"assertions,omitempty"`
}

// ScenarioConfig overrides the application settings for one scenario.
type ScenarioConfig struct {
	DevMode         bool   `yaml:"dev_mode,omitempty"`
	StrictSchema    bool   `yaml:"strict_schema,omitempty"`
	LoginPath       string `yaml:"login_path,omitempty"`
	PrefersDark     bool   `yaml:"prefers_dark,omitempty"`
	HistoryCapacity int    `yaml:"history_capacity,omitempty"`
}

// RouteSpec is one entry of the scenario's route table. An empty table
// accepts any path.
type RouteSpec struct {
	Pattern string         `yaml:"pattern"`
	Data    map[string]any `yaml:"data,omitempty"`
	Deny    bool           `yaml:"deny,omitempty"` // Guard refuses every navigation
}

// Route converts r into a router table entry.
func (r RouteSpec) Route() router.Route {
	route := router.Route{Pattern: r.Pattern, Data: r.Data}
	if r.Deny {
		route.Guard = func(context.Context, router.Match) bool { return false }
	}
	return route
}

// Step is one facade operation.
type Step struct {
	Op     string         `yaml:"op"`
	Args   map[string]any `yaml:"args,omitempty"`
	Expect *Expect        `yaml:"expect,omitempty"`
}

// Expect describes the expected outcome of a step.
type Expect struct {
	Error  string `yaml:"error,omitempty"`  // Substring of the expected error; empty means success
	Result any    `yaml:"result,omitempty"` // Expected return value (navigation outcome, notification id, console output)
}

// AssertionType identifies the kind of assertion.
type AssertionType string

const (
	AssertExpr          AssertionType = "expr"
	AssertState         AssertionType = "state"
	AssertEventContains AssertionType = "event_contains"
	AssertEventOrder    AssertionType = "event_order"
	AssertEventCount    AssertionType = "event_count"
	AssertRoute         AssertionType = "route"
	AssertStored        AssertionType = "stored"
)

// Assertion represents a single check evaluated after the flow.
type Assertion struct {
	Type AssertionType `yaml:"type"`

	// expr: boolean expression over the final state's top-level slices.
	Expr string `yaml:"expr,omitempty"`

	// state: dotted path into the final state.
	// stored: storage key.
	Path string `yaml:"path,omitempty"`
	Key  string `yaml:"key,omitempty"`

	// state, stored: expected value. Absent requires the path or key to be missing.
	Equals any  `yaml:"equals,omitempty"`
	Absent bool `yaml:"absent,omitempty"`

	// event_contains, event_count: event name and optional payload subset.
	Event   string         `yaml:"event,omitempty"`
	Payload map[string]any `yaml:"payload,omitempty"`
	Count   int            `yaml:"count,omitempty"`

	// event_order: event names in expected order.
	Events []string `yaml:"events,omitempty"`

	// route: expected current URL.
	URL string `yaml:"url,omitempty"`
}

// LoadScenario loads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()

	var s Scenario
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true) // Reject unknown fields

	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}

	return &s, nil
}

// validateScenario checks required fields and known operation and
// assertion types.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow must have at least one step")
	}

	for i, r := range s.Routes {
		if r.Pattern == "" {
			return fmt.Errorf("routes[%d]: pattern is required", i)
		}
	}

	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}

	return nil
}

func validateStep(step Step) error {
	if step.Op == "" {
		return fmt.Errorf("op is required")
	}
	if _, ok := ops[step.Op]; !ok {
		return fmt.Errorf("unknown op %q", step.Op)
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertExpr:
		if a.Expr == "" {
			return fmt.Errorf("expr assertion requires expr")
		}
	case AssertState:
		if a.Path == "" {
			return fmt.Errorf("state assertion requires path")
		}
	case AssertStored:
		if a.Key == "" {
			return fmt.Errorf("stored assertion requires key")
		}
	case AssertEventContains, AssertEventCount:
		if a.Event == "" {
			return fmt.Errorf("%s assertion requires event", a.Type)
		}
	case AssertEventOrder:
		if len(a.Events) < 2 {
			return fmt.Errorf("event_order assertion requires at least two events")
		}
	case AssertRoute:
		if a.URL == "" {
			return fmt.Errorf("route assertion requires url")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
