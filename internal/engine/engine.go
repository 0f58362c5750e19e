// Package engine implements the headless orchestration engine: it accepts
// one action at a time, delegates the real-world effect to an adapter,
// records the outcome in the run's history and metrics, and deterministically
// computes the next phase from the static transition table.
//
// An Engine owns its run state exclusively for the lifetime of one trial.
// ExecuteAction is the sole mutator and carries no internal locking: callers
// serialize calls per engine instance, typically by driving each run from
// its own goroutine. Adapter calls may block on external I/O, so
// ExecuteAction is a blocking operation by design.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/orchd/internal/adapter"
	"github.com/fyrsmithlabs/orchd/internal/events"
	"github.com/fyrsmithlabs/orchd/internal/state"
	"github.com/fyrsmithlabs/orchd/internal/workflow"
)

// Version is stamped into every run this engine creates.
const Version = "1.0.0"

// ErrNotInitialized distinguishes engine misuse (calling into a zero-value
// or torn-down engine) from ordinary workflow failures.
var ErrNotInitialized = errors.New("engine not initialized")

// Action is a single caller request against the workflow.
type Action struct {
	Kind   workflow.ActionKind `json:"type"`
	Params map[string]any      `json:"params,omitempty"`
}

// Outcome reports one executed action back to the host. State is a deep
// snapshot: the host may persist or inspect it without racing the engine.
type Outcome struct {
	Success  bool           `json:"success"`
	State    *state.Run     `json:"new_state,omitempty"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Config assembles an engine for one trial run.
type Config struct {
	// PluginType names the workflow variant. Defaults to "sdlc".
	PluginType string

	// StudyID identifies the experiment. Required.
	StudyID string

	// TrialID identifies one parameterized run within the study. Optional.
	TrialID string

	// SessionID is generated when empty.
	SessionID string

	// WorkItemSeed provides the repository and any already-known issue data.
	WorkItemSeed state.WorkItem

	// Adapter performs action side effects. Required.
	Adapter adapter.Adapter

	// Emitter receives lifecycle events. Optional; defaults to a zap-backed
	// emitter on Logger.
	Emitter events.Emitter

	// Logger is used for local diagnostics, including emitter failures.
	// Optional; defaults to zap.NewNop().
	Logger *zap.Logger

	// Settings is opaque configuration passed through to the adapter via
	// the run's config map.
	Settings map[string]any

	// Strict makes ExecuteAction reject actions that are not legal in the
	// current phase. The default preserves the permissive contract where
	// legality is advisory and checked out-of-band by the caller.
	Strict bool
}

// Engine drives one orchestration run.
type Engine struct {
	run     *state.Run
	adapter adapter.Adapter
	emitter events.Emitter
	logger  *zap.Logger
	strict  bool
}

// New builds an engine and its initial run state, and emits the
// initialization event.
func New(cfg Config) (*Engine, error) {
	if cfg.StudyID == "" {
		return nil, fmt.Errorf("study id is required")
	}
	if cfg.Adapter == nil {
		return nil, fmt.Errorf("adapter is required")
	}
	if cfg.WorkItemSeed.Repository == "" {
		return nil, fmt.Errorf("work item repository is required")
	}
	if cfg.PluginType == "" {
		cfg.PluginType = "sdlc"
	}
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.New().String()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Emitter == nil {
		cfg.Emitter = events.NewLogEmitter(cfg.Logger)
	}

	meta := state.Metadata{
		StudyID:   cfg.StudyID,
		TrialID:   cfg.TrialID,
		SessionID: cfg.SessionID,
	}
	e := &Engine{
		run:     state.NewRun(cfg.PluginType, Version, meta, cfg.WorkItemSeed, cfg.Settings),
		adapter: cfg.Adapter,
		emitter: cfg.Emitter,
		logger:  cfg.Logger.Named("engine"),
		strict:  cfg.Strict,
	}

	e.emit(context.Background(), events.TypeInitialized, map[string]any{
		"plugin_type": e.run.PluginType,
		"repository":  e.run.WorkItem.Repository,
		"phase":       e.run.CurrentPhase,
	})
	return e, nil
}

// ExecuteAction performs one action: adapter call, history append, phase
// computation, metric and timing bookkeeping. Every attempt — success,
// failure, even an adapter panic — produces exactly one history entry.
func (e *Engine) ExecuteAction(ctx context.Context, action Action) Outcome {
	if e == nil || e.run == nil {
		return Outcome{Success: false, Error: ErrNotInitialized.Error()}
	}

	phase := e.run.CurrentPhase

	if e.strict && !workflow.IsLegal(action.Kind, phase) {
		result := adapter.Failure("action %s is not legal in phase %s", action.Kind, phase)
		e.record(ctx, action, phase, result, 0)
		e.run.Metrics.Errors = append(e.run.Metrics.Errors, result.Error)
		return e.outcome(result)
	}

	start := time.Now()
	result := e.safeExecute(ctx, action)
	elapsed := time.Since(start)

	e.record(ctx, action, phase, result, elapsed)

	if result.Success {
		e.run.Apply(result.Patch)
		if next := workflow.NextPhase(phase, action.Kind); next != phase {
			e.transition(ctx, phase, next)
		}
	} else if phase == workflow.PhaseCIRunning &&
		(action.Kind == workflow.ActionWaitForCI || action.Kind == workflow.ActionRetryCI) {
		// A failed CI wait demotes the run to the CI-failed phase so the
		// retry path is reachable. All other failures leave phase alone.
		e.transition(ctx, phase, workflow.PhaseCIFailed)
	}

	e.updateMetrics(action, result)

	if e.run.Complete() {
		e.run.Finalize()
		e.emit(ctx, events.TypeCompleted, map[string]any{
			"phase":   e.run.CurrentPhase,
			"history": len(e.run.History),
		})
	}

	observeAction(ctx, e.run.PluginType, action.Kind, result.Success, elapsed)
	return e.outcome(result)
}

// safeExecute calls the adapter and converts a panic into a structured
// failure. This is the only place a fault is swallowed, and only so the
// attempt is still recorded.
func (e *Engine) safeExecute(ctx context.Context, action Action) (result adapter.Result) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("adapter panic executing %s: %v", action.Kind, r)
			e.logger.Error("adapter panicked", zap.String("action", string(action.Kind)), zap.Any("panic", r))
			result = adapter.Result{Success: false, Error: msg}
		}
	}()
	return e.adapter.Execute(ctx, action.Kind, action.Params, e.run)
}

// record appends the history entry for one attempt and emits the
// action-executed event.
func (e *Engine) record(ctx context.Context, action Action, phase workflow.Phase, result adapter.Result, elapsed time.Duration) {
	status := state.ResultSuccess
	if !result.Success {
		status = state.ResultFailure
	}
	e.run.AppendHistory(state.HistoryEntry{
		Timestamp: time.Now().UTC(),
		Phase:     phase,
		Action:    action.Kind,
		Result:    status,
		Duration:  elapsed,
		Metadata:  result.Metadata,
	})

	data := map[string]any{
		"action": action.Kind,
		"phase":  phase,
		"result": status,
	}
	if result.Error != "" {
		data["error"] = result.Error
	}
	e.emit(ctx, events.TypeActionExecuted, data)
}

// transition accumulates time spent in the departing phase, moves the run
// to the next phase and emits the phase-transition event.
func (e *Engine) transition(ctx context.Context, from, to workflow.Phase) {
	now := time.Now().UTC()
	inPhase := now.Sub(e.run.Metadata.PhaseEnteredAt)

	switch from {
	case workflow.PhaseImplementation:
		e.run.Metrics.ImplementationTime += inPhase
	case workflow.PhaseCIRunning:
		e.run.Metrics.CIWaitTime += inPhase
	case workflow.PhaseReviewPending, workflow.PhaseReviewChangesRequested:
		e.run.Metrics.ReviewWaitTime += inPhase
	}

	e.run.CurrentPhase = to
	e.run.Metadata.PhaseEnteredAt = now

	observeTransition(ctx, e.run.PluginType, from, to)
	e.emit(ctx, events.TypePhaseTransition, map[string]any{
		"from": from,
		"to":   to,
	})
}

// updateMetrics applies the action-specific metric rules. Most apply only
// on success; CI attempt accounting applies regardless because a CI attempt
// is a real attempt whether or not it passed.
func (e *Engine) updateMetrics(action Action, result adapter.Result) {
	m := &e.run.Metrics

	switch action.Kind {
	case workflow.ActionWaitForCI, workflow.ActionRetryCI:
		m.CIAttempts++
		if !result.Success {
			m.CIFailures++
		}
	case workflow.ActionCleanupWorktree, workflow.ActionDeleteBranch:
		m.CleanupSuccess = state.BoolPtr(result.Success)
	}

	if !result.Success {
		if result.Error != "" {
			m.Errors = append(m.Errors, result.Error)
		}
		return
	}

	switch action.Kind {
	case workflow.ActionCreatePR:
		if m.TimeToFirstPR == nil {
			d := e.run.Elapsed()
			m.TimeToFirstPR = &d
		}
	case workflow.ActionMergePR:
		if m.TimeToMerge == nil {
			d := e.run.Elapsed()
			m.TimeToMerge = &d
		}
	case workflow.ActionRespondToReview, workflow.ActionAddressFeedback:
		m.ReviewIterations++
	case workflow.ActionMarkFailed:
		if reason, ok := result.Metadata["reason"].(string); ok && reason != "" {
			m.Errors = append(m.Errors, reason)
		}
	}
}

// emit delivers an event best-effort. Emitter failures are logged locally
// and never fail the orchestration action.
func (e *Engine) emit(ctx context.Context, eventType string, data map[string]any) {
	event := events.Event{
		Type:      eventType,
		Data:      data,
		StudyID:   e.run.Metadata.StudyID,
		TrialID:   e.run.Metadata.TrialID,
		SessionID: e.run.Metadata.SessionID,
		Timestamp: time.Now().UTC(),
	}
	if err := e.emitter.Emit(ctx, event); err != nil {
		e.logger.Warn("failed to emit event", zap.String("type", eventType), zap.Error(err))
	}
}

func (e *Engine) outcome(result adapter.Result) Outcome {
	return Outcome{
		Success:  result.Success,
		State:    e.run.Clone(),
		Error:    result.Error,
		Metadata: result.Metadata,
	}
}

// IsComplete reports whether the run reached a terminal phase.
func (e *Engine) IsComplete() bool {
	return e != nil && e.run != nil && e.run.Complete()
}

// AvailableActions returns the legal actions for the current phase: empty
// before initialization and in terminal phases. Requesting actions from a
// completed run is a valid steady state, not a fault.
func (e *Engine) AvailableActions() []workflow.ActionDefinition {
	if e == nil || e.run == nil {
		return []workflow.ActionDefinition{}
	}
	return workflow.ActionsFor(e.run.CurrentPhase)
}

// PrimaryAction returns the single happy-path action for the current phase,
// or false in a terminal phase or before initialization.
func (e *Engine) PrimaryAction() (workflow.ActionDefinition, bool) {
	if e == nil || e.run == nil {
		return workflow.ActionDefinition{}, false
	}
	return workflow.PrimaryAction(e.run.CurrentPhase)
}

// SuggestedParams builds pre-filled default parameters for an action from
// the data currently recorded on the run.
func (e *Engine) SuggestedParams(def workflow.ActionDefinition) map[string]any {
	if e == nil || e.run == nil {
		return map[string]any{}
	}
	mergeMethod, _ := e.run.Config["merge_method"].(string)
	return workflow.DefaultParams(def, workflow.ParamContext{
		Repository:  e.run.WorkItem.Repository,
		IssueNumber: e.run.WorkItem.IssueNumber,
		PRNumber:    e.run.WorkItem.PRNumber,
		Branch:      e.run.WorkItem.Branch,
		Worktree:    e.run.Agent.Worktree,
		MergeMethod: mergeMethod,
	})
}

// Snapshot returns a deep copy of the current run state, nil before
// initialization.
func (e *Engine) Snapshot() *state.Run {
	if e == nil || e.run == nil {
		return nil
	}
	return e.run.Clone()
}
