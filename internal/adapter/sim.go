package adapter

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/orchd/internal/state"
	"github.com/fyrsmithlabs/orchd/internal/workflow"
)

// Sim is the reference adapter. It performs no external I/O: every action
// resolves from run state and caller-supplied parameters, with the CI
// outcome standing in for a real CI poll via the ci_passed parameter. That
// makes runs deterministic and replayable, which is what experiment trials
// need.
type Sim struct{}

// NewSim returns the reference adapter.
func NewSim() *Sim {
	return &Sim{}
}

// Execute dispatches over the action kind. Each concrete action enforces
// its own preconditions and returns a structured failure when they do not
// hold; the transition table is deliberately not consulted here.
func (s *Sim) Execute(ctx context.Context, kind workflow.ActionKind, params map[string]any, run *state.Run) Result {
	if err := ctx.Err(); err != nil {
		return Failure("canceled: %v", err)
	}

	switch kind {
	case workflow.ActionClaimIssue:
		return s.claimIssue(params, run)
	case workflow.ActionProvisionAgent:
		return s.provisionAgent(params, run)
	case workflow.ActionStartImplementation:
		return s.startImplementation(params, run)
	case workflow.ActionCreatePR:
		return s.createPR(params, run)
	case workflow.ActionUpdatePR:
		return s.requirePR(run, "No PR exists to update")
	case workflow.ActionRunCI:
		return s.requirePR(run, "No PR exists to run CI for")
	case workflow.ActionWaitForCI, workflow.ActionRetryCI:
		return s.waitForCI(params, run)
	case workflow.ActionRequestReview:
		return s.requirePR(run, "No PR exists to request review on")
	case workflow.ActionRespondToReview, workflow.ActionRequestChanges, workflow.ActionAddressFeedback, workflow.ActionApprovePR:
		return s.requirePR(run, "No PR exists to review")
	case workflow.ActionMergePR:
		return s.mergePR(params, run)
	case workflow.ActionRebasePR:
		return s.requirePR(run, "No PR exists to rebase")
	case workflow.ActionConfirmMerge:
		return s.requirePR(run, "No PR exists to confirm")
	case workflow.ActionCleanupWorktree:
		return s.cleanupWorktree(run)
	case workflow.ActionDeleteBranch:
		return Result{Success: true, Metadata: map[string]any{"branch": run.WorkItem.Branch}}
	case workflow.ActionMarkCompleted:
		return Result{Success: true, Patch: state.Patch{AgentStatus: state.StatusPtr(state.AgentCompleted)}}
	case workflow.ActionMarkFailed:
		return s.markFailed(params)
	default:
		return UnknownAction(kind)
	}
}

// requirePR covers the PR-gated actions whose simulated effect is pure
// bookkeeping: they succeed iff a PR is already recorded.
func (s *Sim) requirePR(run *state.Run, failureMsg string) Result {
	if run.WorkItem.PRNumber == 0 {
		return Failure("%s", failureMsg)
	}
	return Result{Success: true, Metadata: map[string]any{"pr_number": run.WorkItem.PRNumber}}
}

func (s *Sim) claimIssue(params map[string]any, run *state.Run) Result {
	issue, ok := intParam(params, "issue_number")
	if !ok {
		if run.WorkItem.IssueNumber == 0 {
			return Failure("no issue number supplied")
		}
		issue = run.WorkItem.IssueNumber
	}
	return Result{
		Success:  true,
		Metadata: map[string]any{"issue_number": issue},
		Patch:    state.Patch{IssueNumber: state.IntPtr(issue)},
	}
}

func (s *Sim) provisionAgent(params map[string]any, run *state.Run) Result {
	worktree, ok := stringParam(params, "worktree_path")
	if !ok || worktree == "" {
		if run.WorkItem.IssueNumber == 0 {
			return Failure("no worktree path supplied")
		}
		worktree = fmt.Sprintf("/tmp/worktrees/issue-%d", run.WorkItem.IssueNumber)
	}
	agentID := run.Agent.ID
	if agentID == "" {
		agentID = uuid.New().String()
	}
	return Result{
		Success:  true,
		Metadata: map[string]any{"worktree": worktree},
		Patch: state.Patch{
			AgentID:       state.StringPtr(agentID),
			AgentWorktree: state.StringPtr(worktree),
			AgentStatus:   state.StatusPtr(state.AgentActive),
		},
	}
}

func (s *Sim) startImplementation(params map[string]any, run *state.Run) Result {
	if run.Agent.Status != state.AgentActive {
		return Failure("agent is not active (status=%s)", run.Agent.Status)
	}
	branch, ok := stringParam(params, "branch")
	if !ok || branch == "" {
		if run.WorkItem.Branch != "" {
			branch = run.WorkItem.Branch
		} else if run.WorkItem.IssueNumber != 0 {
			branch = fmt.Sprintf("issue-%d", run.WorkItem.IssueNumber)
		} else {
			return Failure("no branch supplied and no issue number to derive one from")
		}
	}
	return Result{
		Success:  true,
		Metadata: map[string]any{"branch": branch},
		Patch:    state.Patch{Branch: state.StringPtr(branch)},
	}
}

func (s *Sim) createPR(params map[string]any, run *state.Run) Result {
	if run.WorkItem.Branch == "" {
		return Failure("no branch to open a PR from")
	}
	title, ok := stringParam(params, "title")
	if !ok || title == "" {
		if run.WorkItem.IssueNumber != 0 {
			title = fmt.Sprintf("Fix #%d", run.WorkItem.IssueNumber)
		} else {
			title = run.WorkItem.Branch
		}
	}
	prNumber := run.WorkItem.PRNumber
	if prNumber == 0 {
		// Deterministic so replayed trials produce identical state.
		prNumber = 1000 + run.WorkItem.IssueNumber
	}
	url := fmt.Sprintf("https://example.invalid/%s/pull/%d", run.WorkItem.Repository, prNumber)
	return Result{
		Success:  true,
		Metadata: map[string]any{"pr_number": prNumber, "title": title},
		Patch: state.Patch{
			PRNumber: state.IntPtr(prNumber),
			Title:    state.StringPtr(title),
			URL:      state.StringPtr(url),
		},
	}
}

func (s *Sim) waitForCI(params map[string]any, run *state.Run) Result {
	if run.WorkItem.PRNumber == 0 {
		return Failure("No PR exists to wait on CI for")
	}
	passed, ok := boolParam(params, "ci_passed")
	if !ok {
		// Absent outcome means the simulated pipeline passed.
		passed = true
	}
	if !passed {
		return Failure("ci failed")
	}
	return Result{Success: true, Metadata: map[string]any{"ci_passed": true}}
}

func (s *Sim) mergePR(params map[string]any, run *state.Run) Result {
	if run.WorkItem.PRNumber == 0 {
		return Failure("No PR exists to merge")
	}
	method, ok := stringParam(params, "merge_method")
	if !ok || method == "" {
		method = "squash"
	}
	return Result{Success: true, Metadata: map[string]any{"merge_method": method}}
}

func (s *Sim) cleanupWorktree(run *state.Run) Result {
	return Result{
		Success:  true,
		Metadata: map[string]any{"worktree": run.Agent.Worktree},
		Patch:    state.Patch{AgentWorktree: state.StringPtr("")},
	}
}

func (s *Sim) markFailed(params map[string]any) Result {
	reason, _ := stringParam(params, "reason")
	if reason == "" {
		reason = "marked failed"
	}
	return Result{
		Success:  true,
		Metadata: map[string]any{"reason": reason},
		Patch:    state.Patch{AgentStatus: state.StatusPtr(state.AgentFailed)},
	}
}
