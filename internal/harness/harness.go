package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/roach88/statecore/internal/app"
	"github.com/roach88/statecore/internal/config"
	"github.com/roach88/statecore/internal/effects"
	"github.com/roach88/statecore/internal/ir"
	"github.com/roach88/statecore/internal/persist"
	"github.com/roach88/statecore/internal/router"
	"github.com/roach88/statecore/internal/state"
	"github.com/roach88/statecore/internal/testutil"
)

// SettleTimeout bounds the wait for a step's deliveries to finish.
const SettleTimeout = 5 * time.Second

// Session is the debug history session id used by every scenario run.
const Session = "scenario"

// Harness is the test execution engine.
// It runs scenarios with a deterministic clock and notification ids.
type Harness struct {
	app       *app.App
	storage   *persist.MemoryStorage
	analytics *effects.MemoryAnalytics
	logger    *slog.Logger
	seen      int // Analytics events already attributed to a step
}

// Option configures Run.
type Option func(*runOptions)

type runOptions struct {
	logger *slog.Logger
}

// WithLogger routes the application logs of a run to l. Runs are silent by
// default.
func WithLogger(l *slog.Logger) Option {
	return func(o *runOptions) { o.logger = l }
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh application with in-memory storage,
// seeded from scenario.Storage. Notification ids and timestamps come from
// fixed generators so traces are identical across runs.
//
// Execution flow:
// 1. Build the application from the scenario config
// 2. Execute setup steps; any failure aborts the run
// 3. Execute flow steps, checking expect clauses
// 4. Close the application, flushing the pending persistence write
// 5. Evaluate assertions
//
// Malformed scenarios and failing setup steps are returned as errors.
// Unexpected flow outcomes and failed assertions are recorded in the result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	o := runOptions{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	h := &Harness{
		storage:   persist.NewMemoryStorage(scenario.Storage),
		analytics: &effects.MemoryAnalytics{},
		logger:    o.logger,
	}

	routes := make([]router.Route, len(scenario.Routes))
	for i, r := range scenario.Routes {
		routes[i] = r.Route()
	}

	a, err := app.New(ctx, scenarioConfig(scenario.Config),
		app.WithLogger(o.logger),
		app.WithRoutes(routes...),
		app.WithStorage(h.storage),
		app.WithAnalytics(h.analytics),
		app.WithIDGenerator(testutil.NewFixedIDGenerator()),
		app.WithNow(testutil.NewStepClock(time.Time{}, time.Second).Now),
		app.WithSession(Session),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start app: %w", err)
	}
	h.app = a
	defer a.Close()

	result := NewResult()

	// Hydration may publish before the first step; attribute its events to
	// nobody.
	if err := h.settle(ctx); err != nil {
		return nil, err
	}
	h.seen = len(h.analytics.Events())

	if err := h.executeSetup(ctx, scenario.Setup, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	result.State = a.Store.Current()
	result.URL = a.Router.CurrentURL()

	if err := a.Close(); err != nil {
		result.AddError(fmt.Sprintf("close: %v", err))
	}
	for _, key := range h.storage.Keys() {
		v, _, _ := h.storage.Get(ctx, key)
		result.Stored[key] = v
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// scenarioConfig applies scenario overrides to the default settings.
func scenarioConfig(sc ScenarioConfig) config.Config {
	cfg := config.Default()
	cfg.DevMode = sc.DevMode
	cfg.StrictSchema = sc.StrictSchema
	cfg.PrefersDark = sc.PrefersDark
	if sc.LoginPath != "" {
		cfg.LoginPath = sc.LoginPath
	}
	if sc.HistoryCapacity > 0 {
		cfg.HistoryCapacity = sc.HistoryCapacity
	}
	return cfg
}

// executeSetup runs all setup steps. Setup steps must succeed.
func (h *Harness) executeSetup(ctx context.Context, setup []Step, result *Result) error {
	for i, step := range setup {
		ev, err := h.execute(ctx, PhaseSetup, i, step)
		if err != nil {
			return fmt.Errorf("setup step %d (%s): %w", i, step.Op, err)
		}
		result.AddStep(ev)
		if ev.Error != "" {
			return fmt.Errorf("setup step %d (%s): %s", i, step.Op, ev.Error)
		}
	}
	return nil
}

// executeFlow runs all flow steps and validates expect clauses.
func (h *Harness) executeFlow(ctx context.Context, flow []Step, result *Result) error {
	for i, step := range flow {
		ev, err := h.execute(ctx, PhaseFlow, i, step)
		if err != nil {
			return fmt.Errorf("flow step %d (%s): %w", i, step.Op, err)
		}
		result.AddStep(ev)

		for _, msg := range checkExpect(step, ev) {
			result.AddError(fmt.Sprintf("flow[%d] %s: %s", i, step.Op, msg))
		}

		h.logger.Debug("flow step completed",
			"step", i,
			"op", step.Op,
			"seq", ev.Seq,
			"changed", ev.Changed,
			"error", ev.Error,
		)
	}
	return nil
}

// execute runs one step, waits for every delivery it caused and collects
// the resulting trace event. Only malformed steps and settle failures are
// returned as errors; operation errors land in the event.
func (h *Harness) execute(ctx context.Context, phase string, index int, step Step) (TraceEvent, error) {
	fn, ok := ops[step.Op]
	if !ok {
		return TraceEvent{}, fmt.Errorf("unknown op %q", step.Op)
	}

	before := h.app.Store.Current()
	out, opErr := fn(ctx, h.app, step.Args)
	var argErr *argsError
	if errors.As(opErr, &argErr) {
		return TraceEvent{}, opErr
	}
	if err := h.settle(ctx); err != nil {
		return TraceEvent{}, err
	}
	after := h.app.Store.Current()

	ev := TraceEvent{
		Phase:   phase,
		Index:   index,
		Op:      step.Op,
		Args:    step.Args,
		Seq:     after.Seq(),
		Changed: state.ChangedSlices(before, after),
		Result:  out,
		Events:  h.takeEvents(),
	}
	if opErr != nil {
		ev.Error = opErr.Error()
		ev.Result = nil
	}
	return ev, nil
}

func (h *Harness) settle(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, SettleTimeout)
	defer cancel()
	if err := h.app.Settle(ctx); err != nil {
		return fmt.Errorf("settle: %w", err)
	}
	return nil
}

// takeEvents returns the analytics events recorded since the last call.
// Events of one step are ordered by name: watchers run concurrently, so
// their relative order within a step is not defined.
func (h *Harness) takeEvents() []effects.Event {
	all := h.analytics.Events()
	events := all[h.seen:]
	h.seen = len(all)
	if len(events) == 0 {
		return nil
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Name < events[j].Name })
	return events
}

// checkExpect compares a step's outcome against its expect clause. Without
// a clause the step must succeed.
func checkExpect(step Step, ev TraceEvent) []string {
	var msgs []string
	if step.Expect == nil || step.Expect.Error == "" {
		if ev.Error != "" {
			msgs = append(msgs, fmt.Sprintf("unexpected error: %s", ev.Error))
		}
	} else {
		switch {
		case ev.Error == "":
			msgs = append(msgs, fmt.Sprintf("expected error containing %q, got success", step.Expect.Error))
		case !strings.Contains(ev.Error, step.Expect.Error):
			msgs = append(msgs, fmt.Sprintf("expected error containing %q, got %q", step.Expect.Error, ev.Error))
		}
	}

	if step.Expect != nil && step.Expect.Result != nil {
		if !sameValue(step.Expect.Result, ev.Result) {
			msgs = append(msgs, fmt.Sprintf("expected result %s, got %s", formatValue(step.Expect.Result), formatValue(ev.Result)))
		}
	}
	return msgs
}

// sameValue compares two loosely typed values through their IR form, so
// YAML ints match int64 and maps compare by content.
func sameValue(expected, actual any) bool {
	e, err := ir.FromAny(expected)
	if err != nil {
		return false
	}
	a, err := ir.FromAny(actual)
	if err != nil {
		return false
	}
	return ir.Equal(e, a)
}
