// Package workflow defines the SDLC phase and action vocabulary together with
// the static transition table that drives the orchestration engine.
//
// The table is pure data: ActionsFor, NextPhase and IsLegal are lookups with no
// side effects, so the whole workflow definition is unit-testable on its own
// and swappable for a different SDLC variant without touching the engine.
package workflow

// Phase is a named state in the delivery workflow's finite state machine.
type Phase string

const (
	// PhaseIssueAssigned is the initial phase: an issue exists and is assigned
	// to this run, but no execution environment has been provisioned yet.
	PhaseIssueAssigned Phase = "issue_assigned"

	// PhaseAgentProvisioned means the agent and its worktree are ready.
	PhaseAgentProvisioned Phase = "agent_provisioned"

	// PhaseImplementation means the agent is actively working on a branch.
	PhaseImplementation Phase = "implementation"

	// PhasePRCreated means a pull request exists for the work item.
	PhasePRCreated Phase = "pr_created"

	// PhaseCIRunning means CI has been triggered and is being watched.
	PhaseCIRunning Phase = "ci_running"

	// PhaseCIFailed means the last CI attempt failed and needs a fix or retry.
	PhaseCIFailed Phase = "ci_failed"

	// PhaseReviewPending means the PR is waiting on reviewer feedback.
	PhaseReviewPending Phase = "review_pending"

	// PhaseReviewChangesRequested means a reviewer asked for changes.
	PhaseReviewChangesRequested Phase = "review_changes_requested"

	// PhaseApproved means the PR has the approvals it needs to merge.
	PhaseApproved Phase = "approved"

	// PhaseMerging means a merge has been initiated but not yet confirmed.
	PhaseMerging Phase = "merging"

	// PhaseMerged means the PR landed on the target branch.
	PhaseMerged Phase = "merged"

	// PhaseCleanup means post-merge housekeeping is in progress.
	PhaseCleanup Phase = "cleanup"

	// PhaseCompleted is terminal: the run finished successfully.
	PhaseCompleted Phase = "completed"

	// PhaseFailed is terminal: the run was abandoned with a recorded reason.
	PhaseFailed Phase = "failed"
)

// AllPhases returns every phase in conventional workflow order.
func AllPhases() []Phase {
	return []Phase{
		PhaseIssueAssigned,
		PhaseAgentProvisioned,
		PhaseImplementation,
		PhasePRCreated,
		PhaseCIRunning,
		PhaseCIFailed,
		PhaseReviewPending,
		PhaseReviewChangesRequested,
		PhaseApproved,
		PhaseMerging,
		PhaseMerged,
		PhaseCleanup,
		PhaseCompleted,
		PhaseFailed,
	}
}

// Terminal reports whether no further action is ever legal from p.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// Valid reports whether p is a member of the closed phase set.
func (p Phase) Valid() bool {
	for _, known := range AllPhases() {
		if p == known {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer.
func (p Phase) String() string {
	return string(p)
}
