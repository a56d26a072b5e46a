package harness

import (
	"github.com/roach88/statecore/internal/effects"
	"github.com/roach88/statecore/internal/state"
)

// Trace phases.
const (
	PhaseSetup = "setup"
	PhaseFlow  = "flow"
)

// TraceEvent is one executed step together with the analytics events it
// produced.
type TraceEvent struct {
	Phase   string          `json:"phase"`
	Index   int             `json:"index"`
	Op      string          `json:"op"`
	Args    map[string]any  `json:"args,omitempty"`
	Seq     int64           `json:"seq"`               // Store sequence number once the step settled
	Changed []string        `json:"changed,omitempty"` // Top-level slices that differ across the step
	Result  any             `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
	Events  []effects.Event `json:"events,omitempty"`
}

// Result contains the outcome of running a scenario.
type Result struct {
	Pass   bool
	Trace  []TraceEvent
	Errors []string

	// State is the final snapshot once every step settled.
	State state.AppState

	// URL is the router's current URL at the end of the flow.
	URL string

	// Events lists every analytics event in trace order.
	Events []effects.Event

	// Stored holds the durable storage contents after the app closed and
	// flushed its pending write.
	Stored map[string]string
}

// NewResult creates a new result with Pass=true.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Stored: map[string]string{},
	}
}

// AddError adds an error and sets Pass=false.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep appends a step to the trace and its events to Events.
func (r *Result) AddStep(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
	r.Events = append(r.Events, ev.Events...)
}
