// Package adapter defines the execution boundary of the orchestration
// engine: the component that performs an action's real-world side effect and
// reports a structured outcome.
//
// Adapters never mutate run state directly. A successful action returns a
// state.Patch describing field updates; the engine applies it atomically
// alongside the history append, so the engine stays the sole writer.
package adapter

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fyrsmithlabs/orchd/internal/state"
	"github.com/fyrsmithlabs/orchd/internal/workflow"
)

// Result is the structured outcome of one action execution. Failures are
// values, not errors: a precondition failure comes back as Success=false
// with a message, and the engine records it like any other attempt.
type Result struct {
	Success  bool
	Error    string
	Metadata map[string]any
	Patch    state.Patch
}

// Adapter performs the real-world effect of a single action. Execute may
// block on external I/O; implementations must honor ctx for cancellation
// and deadlines. The run is read-only input: all updates travel in the
// returned Patch.
type Adapter interface {
	Execute(ctx context.Context, kind workflow.ActionKind, params map[string]any, run *state.Run) Result
}

// Failure builds a failed result from a format string.
func Failure(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// UnknownAction is the structured failure for an action kind the adapter
// does not dispatch. Unrecognized kinds must never panic.
func UnknownAction(kind workflow.ActionKind) Result {
	return Failure("unknown action type: %s", kind)
}

// intParam reads an integer parameter tolerating the numeric types that
// survive JSON decoding.
func intParam(params map[string]any, key string) (int, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		parsed, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// stringParam reads a string parameter.
func stringParam(params map[string]any, key string) (string, bool) {
	v, ok := params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// boolParam reads a boolean parameter.
func boolParam(params map[string]any, key string) (bool, bool) {
	v, ok := params[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}
