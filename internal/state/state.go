// Package state holds the mutable record of one orchestration run: current
// phase, work item, agent descriptor, append-only history, accumulated
// metrics and free-form configuration.
//
// A Run belongs to exactly one engine instance for the lifetime of one trial.
// It carries no locks: the engine's ExecuteAction is the sole mutator and
// callers serialize access per run. Everything is plain data with no cyclic
// references, so a Run can be serialized to JSON after every action and
// rehydrated to resume a run.
package state

import (
	"time"

	"github.com/fyrsmithlabs/orchd/internal/workflow"
)

// AgentStatus tracks the execution environment lifecycle.
type AgentStatus string

const (
	AgentProvisioning AgentStatus = "provisioning"
	AgentActive       AgentStatus = "active"
	AgentCompleted    AgentStatus = "completed"
	AgentFailed       AgentStatus = "failed"
)

// ActionResult classifies one history entry.
type ActionResult string

const (
	ResultSuccess ActionResult = "success"
	ResultFailure ActionResult = "failure"
	ResultPending ActionResult = "pending"
)

// WorkItem is the subject of orchestration. Fields are set by specific
// actions and never reset once set within a run.
type WorkItem struct {
	Repository  string `json:"repository"`
	IssueNumber int    `json:"issue_number,omitempty"`
	PRNumber    int    `json:"pr_number,omitempty"`
	Branch      string `json:"branch,omitempty"`
	Title       string `json:"title,omitempty"`
	URL         string `json:"url,omitempty"`
}

// AgentInfo describes the execution environment for a run.
type AgentInfo struct {
	ID       string      `json:"id,omitempty"`
	Worktree string      `json:"worktree,omitempty"`
	Status   AgentStatus `json:"status,omitempty"`
}

// HistoryEntry records one executed action. Entries are appended exactly
// once per attempt, including failed ones, and never mutated or removed.
type HistoryEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Phase     workflow.Phase `json:"phase"`
	Action    workflow.ActionKind `json:"action"`
	Result    ActionResult   `json:"result"`
	Duration  time.Duration  `json:"duration_ns,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Metrics accumulates counters and timers for one run. Counters only
// increase; the set-once fields keep the first successful occurrence.
type Metrics struct {
	CIAttempts       int `json:"ci_attempts"`
	CIFailures       int `json:"ci_failures"`
	ReviewIterations int `json:"review_iterations"`

	TimeToFirstPR *time.Duration `json:"time_to_first_pr_ns,omitempty"`
	TimeToMerge   *time.Duration `json:"time_to_merge_ns,omitempty"`

	ImplementationTime time.Duration `json:"implementation_time_ns"`
	CIWaitTime         time.Duration `json:"ci_wait_time_ns"`
	ReviewWaitTime     time.Duration `json:"review_wait_time_ns"`

	CleanupSuccess *bool `json:"cleanup_success,omitempty"`

	Errors []string `json:"errors,omitempty"`
}

// Metadata identifies the run for experiment tracking.
type Metadata struct {
	StudyID        string     `json:"study_id"`
	TrialID        string     `json:"trial_id,omitempty"`
	SessionID      string     `json:"session_id,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	PhaseEnteredAt time.Time  `json:"phase_entered_at"`
}

// Run is the aggregate orchestration state for one trial.
type Run struct {
	PluginType   string            `json:"plugin_type"`
	Version      string            `json:"version"`
	Metadata     Metadata          `json:"metadata"`
	CurrentPhase workflow.Phase    `json:"current_phase"`
	WorkItem     WorkItem          `json:"work_item"`
	Agent        AgentInfo         `json:"agent"`
	History      []HistoryEntry    `json:"history"`
	Metrics      Metrics           `json:"metrics"`
	Config       map[string]any    `json:"config,omitempty"`
}

// NewRun creates a run in the initial phase.
func NewRun(pluginType, version string, meta Metadata, item WorkItem, config map[string]any) *Run {
	now := time.Now().UTC()
	if meta.StartedAt.IsZero() {
		meta.StartedAt = now
	}
	meta.PhaseEnteredAt = meta.StartedAt
	return &Run{
		PluginType:   pluginType,
		Version:      version,
		Metadata:     meta,
		CurrentPhase: workflow.PhaseIssueAssigned,
		WorkItem:     item,
		Agent:        AgentInfo{},
		History:      []HistoryEntry{},
		Config:       config,
	}
}

// AppendHistory records one executed action. It is the only way history
// grows.
func (r *Run) AppendHistory(entry HistoryEntry) {
	r.History = append(r.History, entry)
}

// Complete reports whether the run reached a terminal phase.
func (r *Run) Complete() bool {
	return r.CurrentPhase.Terminal()
}

// Elapsed returns wall time since the run started.
func (r *Run) Elapsed() time.Duration {
	return time.Since(r.Metadata.StartedAt)
}

// Finalize stamps the completion time once the run is terminal. Idempotent.
func (r *Run) Finalize() {
	if r.Metadata.CompletedAt == nil {
		now := time.Now().UTC()
		r.Metadata.CompletedAt = &now
	}
}
