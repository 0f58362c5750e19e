package workflow

// ActionKind identifies a caller-initiated operation against the workflow.
type ActionKind string

const (
	ActionClaimIssue          ActionKind = "claim_issue"
	ActionProvisionAgent      ActionKind = "provision_agent"
	ActionStartImplementation ActionKind = "start_implementation"
	ActionCreatePR            ActionKind = "create_pr"
	ActionUpdatePR            ActionKind = "update_pr"
	ActionRunCI               ActionKind = "run_ci"
	ActionWaitForCI           ActionKind = "wait_for_ci"
	ActionRetryCI             ActionKind = "retry_ci"
	ActionRequestReview       ActionKind = "request_review"
	ActionRespondToReview     ActionKind = "respond_to_review"
	ActionRequestChanges      ActionKind = "request_changes"
	ActionAddressFeedback     ActionKind = "address_feedback"
	ActionApprovePR           ActionKind = "approve_pr"
	ActionMergePR             ActionKind = "merge_pr"
	ActionRebasePR            ActionKind = "rebase_pr"
	ActionConfirmMerge        ActionKind = "confirm_merge"
	ActionCleanupWorktree     ActionKind = "cleanup_worktree"
	ActionDeleteBranch        ActionKind = "delete_branch"
	ActionMarkCompleted       ActionKind = "mark_completed"
	ActionMarkFailed          ActionKind = "mark_failed"
)

// String implements fmt.Stringer.
func (a ActionKind) String() string {
	return string(a)
}

// ActionDefinition describes one legal action: what it does and which
// parameters the adapter expects. Parameter presence is validated by the
// caller, not by the table.
type ActionDefinition struct {
	Kind        ActionKind `json:"kind"`
	Description string     `json:"description"`
	Params      []string   `json:"params,omitempty"`
}

// actionDefs is the single source of truth for action descriptions and
// required parameter names.
var actionDefs = map[ActionKind]ActionDefinition{
	ActionClaimIssue:          {ActionClaimIssue, "Claim an issue for this run", []string{"issue_number"}},
	ActionProvisionAgent:      {ActionProvisionAgent, "Provision the agent and its worktree", []string{"worktree_path"}},
	ActionStartImplementation: {ActionStartImplementation, "Create a working branch and begin implementation", []string{"branch"}},
	ActionCreatePR:            {ActionCreatePR, "Open a pull request for the current branch", []string{"title"}},
	ActionUpdatePR:            {ActionUpdatePR, "Push additional commits to the open pull request", nil},
	ActionRunCI:               {ActionRunCI, "Trigger CI for the pull request", nil},
	ActionWaitForCI:           {ActionWaitForCI, "Wait for the running CI attempt to finish", nil},
	ActionRetryCI:             {ActionRetryCI, "Re-run CI after a failure", nil},
	ActionRequestReview:       {ActionRequestReview, "Request a review on the pull request", []string{"reviewer"}},
	ActionRespondToReview:     {ActionRespondToReview, "Reply to review comments without code changes", nil},
	ActionRequestChanges:      {ActionRequestChanges, "Record that a reviewer requested changes", nil},
	ActionAddressFeedback:     {ActionAddressFeedback, "Push changes addressing review feedback", nil},
	ActionApprovePR:           {ActionApprovePR, "Record that the pull request is approved", nil},
	ActionMergePR:             {ActionMergePR, "Initiate the merge of the approved pull request", []string{"merge_method"}},
	ActionRebasePR:            {ActionRebasePR, "Rebase the pull request onto its base branch", nil},
	ActionConfirmMerge:        {ActionConfirmMerge, "Confirm the merge landed on the target branch", nil},
	ActionCleanupWorktree:     {ActionCleanupWorktree, "Remove the agent worktree", nil},
	ActionDeleteBranch:        {ActionDeleteBranch, "Delete the merged working branch", nil},
	ActionMarkCompleted:       {ActionMarkCompleted, "Finish the run successfully", nil},
	ActionMarkFailed:          {ActionMarkFailed, "Abandon the run with a reason", []string{"reason"}},
}

// phaseActions maps each phase to the actions legal in it. Terminal phases
// are intentionally absent: ActionsFor returns nil for them.
var phaseActions = map[Phase][]ActionKind{
	PhaseIssueAssigned:          {ActionClaimIssue, ActionProvisionAgent, ActionMarkFailed},
	PhaseAgentProvisioned:       {ActionStartImplementation, ActionMarkFailed},
	PhaseImplementation:         {ActionCreatePR, ActionMarkFailed},
	PhasePRCreated:              {ActionUpdatePR, ActionRunCI, ActionRequestReview, ActionMarkFailed},
	PhaseCIRunning:              {ActionWaitForCI, ActionMarkFailed},
	PhaseCIFailed:               {ActionUpdatePR, ActionRetryCI, ActionMarkFailed},
	PhaseReviewPending:          {ActionRequestReview, ActionRespondToReview, ActionRequestChanges, ActionApprovePR, ActionMarkFailed},
	PhaseReviewChangesRequested: {ActionAddressFeedback, ActionRespondToReview, ActionMarkFailed},
	PhaseApproved:               {ActionMergePR, ActionRebasePR, ActionMarkFailed},
	PhaseMerging:                {ActionConfirmMerge, ActionMarkFailed},
	PhaseMerged:                 {ActionCleanupWorktree, ActionDeleteBranch, ActionMarkCompleted, ActionMarkFailed},
	PhaseCleanup:                {ActionDeleteBranch, ActionMarkCompleted, ActionMarkFailed},
}

// transitions maps (phase, action) to the next phase. Pairs not listed here
// are no-ops: NextPhase returns the current phase unchanged.
var transitions = map[Phase]map[ActionKind]Phase{
	PhaseIssueAssigned: {
		ActionClaimIssue:     PhaseIssueAssigned,
		ActionProvisionAgent: PhaseAgentProvisioned,
		ActionMarkFailed:     PhaseFailed,
	},
	PhaseAgentProvisioned: {
		ActionStartImplementation: PhaseImplementation,
		ActionMarkFailed:          PhaseFailed,
	},
	PhaseImplementation: {
		ActionCreatePR:   PhasePRCreated,
		ActionMarkFailed: PhaseFailed,
	},
	PhasePRCreated: {
		ActionUpdatePR:      PhasePRCreated,
		ActionRunCI:         PhaseCIRunning,
		ActionRequestReview: PhaseReviewPending,
		ActionMarkFailed:    PhaseFailed,
	},
	PhaseCIRunning: {
		ActionWaitForCI:  PhaseReviewPending,
		ActionMarkFailed: PhaseFailed,
	},
	PhaseCIFailed: {
		ActionUpdatePR:   PhaseCIFailed,
		ActionRetryCI:    PhaseCIRunning,
		ActionMarkFailed: PhaseFailed,
	},
	PhaseReviewPending: {
		ActionRequestReview:   PhaseReviewPending,
		ActionRespondToReview: PhaseReviewPending,
		ActionRequestChanges:  PhaseReviewChangesRequested,
		ActionApprovePR:       PhaseApproved,
		ActionMarkFailed:      PhaseFailed,
	},
	PhaseReviewChangesRequested: {
		ActionAddressFeedback: PhaseReviewPending,
		ActionRespondToReview: PhaseReviewChangesRequested,
		ActionMarkFailed:      PhaseFailed,
	},
	PhaseApproved: {
		ActionMergePR:    PhaseMerging,
		ActionRebasePR:   PhaseApproved,
		ActionMarkFailed: PhaseFailed,
	},
	PhaseMerging: {
		ActionConfirmMerge: PhaseMerged,
		ActionMarkFailed:   PhaseFailed,
	},
	PhaseMerged: {
		ActionCleanupWorktree: PhaseCleanup,
		ActionDeleteBranch:    PhaseMerged,
		ActionMarkCompleted:   PhaseCompleted,
		ActionMarkFailed:      PhaseFailed,
	},
	PhaseCleanup: {
		ActionDeleteBranch:  PhaseCleanup,
		ActionMarkCompleted: PhaseCompleted,
		ActionMarkFailed:    PhaseFailed,
	},
}

// primaryActions is the fixed happy-path policy: the single recommended
// action per phase for autonomous drivers that want a default rather than
// a menu. Distinct from the full legality table on purpose.
var primaryActions = map[Phase]ActionKind{
	PhaseIssueAssigned:          ActionProvisionAgent,
	PhaseAgentProvisioned:       ActionStartImplementation,
	PhaseImplementation:         ActionCreatePR,
	PhasePRCreated:              ActionRunCI,
	PhaseCIRunning:              ActionWaitForCI,
	PhaseCIFailed:               ActionRetryCI,
	PhaseReviewPending:          ActionApprovePR,
	PhaseReviewChangesRequested: ActionAddressFeedback,
	PhaseApproved:               ActionMergePR,
	PhaseMerging:                ActionConfirmMerge,
	PhaseMerged:                 ActionCleanupWorktree,
	PhaseCleanup:                ActionMarkCompleted,
}

// ActionsFor returns the statically declared legal actions for a phase.
// Terminal or unknown phases yield an empty slice.
func ActionsFor(phase Phase) []ActionDefinition {
	kinds, ok := phaseActions[phase]
	if !ok {
		return []ActionDefinition{}
	}
	defs := make([]ActionDefinition, 0, len(kinds))
	for _, kind := range kinds {
		defs = append(defs, actionDefs[kind])
	}
	return defs
}

// NextPhase computes the phase after executing action in phase. It is a
// total function: unmapped pairs return the same phase, never an error, so
// unrecognized or currently-inapplicable actions fail to advance instead of
// crashing the table.
func NextPhase(phase Phase, action ActionKind) Phase {
	if next, ok := transitions[phase][action]; ok {
		return next
	}
	return phase
}

// IsLegal reports whether action appears in ActionsFor(phase).
func IsLegal(action ActionKind, phase Phase) bool {
	for _, kind := range phaseActions[phase] {
		if kind == action {
			return true
		}
	}
	return false
}

// PrimaryAction returns the happy-path action for phase, or false in a
// terminal or unknown phase.
func PrimaryAction(phase Phase) (ActionDefinition, bool) {
	kind, ok := primaryActions[phase]
	if !ok {
		return ActionDefinition{}, false
	}
	return actionDefs[kind], true
}

// Definition returns the static definition for an action kind.
func Definition(kind ActionKind) (ActionDefinition, bool) {
	def, ok := actionDefs[kind]
	return def, ok
}
