// Package http provides a read-only inspection server over live
// orchestration runs. It serves serialized run snapshots only: all
// mutation goes through the engine, never through HTTP.
package http

import (
	"sync"
	"time"

	"github.com/fyrsmithlabs/orchd/internal/engine"
	"github.com/fyrsmithlabs/orchd/internal/state"
	"github.com/fyrsmithlabs/orchd/internal/workflow"
)

// RunSummary is the list-view projection of one run.
type RunSummary struct {
	SessionID string         `json:"session_id"`
	StudyID   string         `json:"study_id"`
	TrialID   string         `json:"trial_id,omitempty"`
	Phase     workflow.Phase `json:"phase"`
	Complete  bool           `json:"complete"`
	StartedAt time.Time      `json:"started_at"`
}

// Tracker is a thread-safe directory of live plugins keyed by session id.
// The host registers each plugin it creates; the server reads snapshots
// through it.
type Tracker struct {
	mu      sync.RWMutex
	engines map[string]engine.Plugin
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{engines: make(map[string]engine.Plugin)}
}

// Add registers a plugin under its session id.
func (t *Tracker) Add(e engine.Plugin) {
	snap := e.Snapshot()
	if snap == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.engines[snap.Metadata.SessionID] = e
}

// Remove drops an engine from the directory.
func (t *Tracker) Remove(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.engines, sessionID)
}

// Runs summarizes every tracked run.
func (t *Tracker) Runs() []RunSummary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	summaries := make([]RunSummary, 0, len(t.engines))
	for _, e := range t.engines {
		snap := e.Snapshot()
		if snap == nil {
			continue
		}
		summaries = append(summaries, RunSummary{
			SessionID: snap.Metadata.SessionID,
			StudyID:   snap.Metadata.StudyID,
			TrialID:   snap.Metadata.TrialID,
			Phase:     snap.CurrentPhase,
			Complete:  snap.Complete(),
			StartedAt: snap.Metadata.StartedAt,
		})
	}
	return summaries
}

// Run returns the full snapshot of one run.
func (t *Tracker) Run(sessionID string) (*state.Run, bool) {
	t.mu.RLock()
	e, ok := t.engines[sessionID]
	t.mu.RUnlock()
	if !ok {
		return nil, false
	}
	snap := e.Snapshot()
	if snap == nil {
		return nil, false
	}
	return snap, true
}
