package debug

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/roach88/statecore/internal/ir"
)

// ErrUnknownCommand is returned by Handle.Exec for unrecognized input.
var ErrUnknownCommand = errors.New("unknown command")

type command struct {
	name  string
	usage string
	help  string
}

var commands = []command{
	{"state", "state", "Get current state"},
	{"history", "history", "Get state change history"},
	{"reset", "reset", "Reset to initial state"},
	{"update", "update <json>", "Update state (deep merge)"},
	{"travel", "travel <index>", "Jump to specific state in history"},
	{"eval", "eval <expr>", "Evaluate an expression against the current state"},
	{"help", "help", "Print available commands"},
}

// Handle is the interactive debug surface over a Recorder.
type Handle struct {
	rec *Recorder
}

// Handle returns the command surface for r.
func (r *Recorder) Handle() *Handle {
	return &Handle{rec: r}
}

// Exec runs one console line and returns its output.
func (h *Handle) Exec(line string) (string, error) {
	name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "state":
		data, err := json.MarshalIndent(h.rec.State(), "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode state: %w", err)
		}
		return string(data), nil

	case "history":
		return FormatHistory(h.rec.History()), nil

	case "reset":
		if err := h.rec.ResetState(); err != nil {
			return "", err
		}
		return "state reset", nil

	case "update":
		patch, err := parsePatch(arg)
		if err != nil {
			return "", err
		}
		if err := h.rec.UpdateState(patch); err != nil {
			return "", err
		}
		return "state updated", nil

	case "travel":
		index, err := strconv.Atoi(arg)
		if err != nil {
			return "", fmt.Errorf("travel: index must be an integer: %q", arg)
		}
		return strconv.FormatBool(h.rec.TimeTravel(index)), nil

	case "eval":
		v, err := h.Eval(arg)
		if err != nil {
			return "", err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v), nil
		}
		return string(data), nil

	case "help", "":
		return h.rec.Help(), nil
	}
	return "", fmt.Errorf("%w: %q (try help)", ErrUnknownCommand, name)
}

// Eval evaluates an expr-lang expression. The top-level slices of the
// current state are variables; history is the number of recorded entries.
func (h *Handle) Eval(expression string) (any, error) {
	if expression == "" {
		return nil, fmt.Errorf("eval: expression must not be empty")
	}
	env := StateEnv(h.rec.State().Tree())
	env["history"] = h.rec.Len()

	program, err := expr.Compile(expression, expr.Env(env), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("eval %q: %w", expression, err)
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("eval %q: %w", expression, err)
	}
	return out, nil
}

// StateEnv converts a state tree into an expression environment keyed by
// top-level slice.
func StateEnv(tree ir.IRObject) map[string]any {
	env := make(map[string]any, len(tree)+1)
	for k, v := range tree {
		env[k] = ir.ToAny(v)
	}
	return env
}

// FormatHistory renders one line per entry: index, sequence number and
// action label.
func FormatHistory(entries []Entry) string {
	if len(entries) == 0 {
		return "(no history)"
	}
	var b strings.Builder
	for i, e := range entries {
		fmt.Fprintf(&b, "%3d  seq=%-4d %s\n", i, e.Seq, e.Action)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func parsePatch(arg string) (ir.IRObject, error) {
	if arg == "" {
		return nil, fmt.Errorf("update: missing JSON object")
	}
	v, err := ir.UnmarshalIRValue([]byte(arg))
	if err != nil {
		return nil, fmt.Errorf("update: %w", err)
	}
	patch, ok := v.(ir.IRObject)
	if !ok {
		return nil, fmt.Errorf("update: expected JSON object, got %s", ir.TypeName(v))
	}
	return patch, nil
}
