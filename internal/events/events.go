// Package events carries the engine's fire-and-forget notifications to the
// host application: run initialization, every executed action and every
// phase transition. Emission is best-effort by contract — an emitter error
// is logged by the engine and never fails or rolls back the action itself.
package events

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Event types emitted by the engine.
const (
	TypeInitialized     = "orchestration.initialized"
	TypeActionExecuted  = "orchestration.action_executed"
	TypePhaseTransition = "orchestration.phase_transition"
	TypeCompleted       = "orchestration.completed"
)

// Event is one structured notification.
type Event struct {
	Type      string         `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	StudyID   string         `json:"study_id"`
	TrialID   string         `json:"trial_id,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Emitter delivers events to an external collaborator.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// LogEmitter writes events to a zap logger. It is the always-available
// default collaborator.
type LogEmitter struct {
	logger *zap.Logger
}

// NewLogEmitter returns an emitter backed by logger.
func NewLogEmitter(logger *zap.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

// Emit logs the event at info level.
func (e *LogEmitter) Emit(_ context.Context, event Event) error {
	e.logger.Info("orchestration event",
		zap.String("type", event.Type),
		zap.String("study_id", event.StudyID),
		zap.String("trial_id", event.TrialID),
		zap.String("session_id", event.SessionID),
		zap.Any("data", event.Data),
	)
	return nil
}

// Multi fans one event out to several emitters. Every emitter is attempted;
// the first error is returned.
type Multi struct {
	emitters []Emitter
}

// NewMulti combines emitters.
func NewMulti(emitters ...Emitter) *Multi {
	return &Multi{emitters: emitters}
}

// Emit delivers the event to every emitter.
func (m *Multi) Emit(ctx context.Context, event Event) error {
	var firstErr error
	for _, emitter := range m.emitters {
		if err := emitter.Emit(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
