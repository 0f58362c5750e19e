package state

// Patch is a set of field updates produced by an adapter. Returning a patch
// instead of mutating the run in place keeps the engine the sole writer of
// run state: the engine applies the patch atomically alongside the history
// append. Nil pointer fields mean "leave unchanged"; work-item fields are
// never reset once set.
type Patch struct {
	IssueNumber *int    `json:"issue_number,omitempty"`
	PRNumber    *int    `json:"pr_number,omitempty"`
	Branch      *string `json:"branch,omitempty"`
	Title       *string `json:"title,omitempty"`
	URL         *string `json:"url,omitempty"`

	AgentID       *string      `json:"agent_id,omitempty"`
	AgentWorktree *string      `json:"agent_worktree,omitempty"`
	AgentStatus   *AgentStatus `json:"agent_status,omitempty"`
}

// Empty reports whether the patch carries no updates.
func (p Patch) Empty() bool {
	return p == Patch{}
}

// Apply copies the patch's updates into the run.
func (r *Run) Apply(p Patch) {
	if p.IssueNumber != nil {
		r.WorkItem.IssueNumber = *p.IssueNumber
	}
	if p.PRNumber != nil {
		r.WorkItem.PRNumber = *p.PRNumber
	}
	if p.Branch != nil {
		r.WorkItem.Branch = *p.Branch
	}
	if p.Title != nil {
		r.WorkItem.Title = *p.Title
	}
	if p.URL != nil {
		r.WorkItem.URL = *p.URL
	}
	if p.AgentID != nil {
		r.Agent.ID = *p.AgentID
	}
	if p.AgentWorktree != nil {
		r.Agent.Worktree = *p.AgentWorktree
	}
	if p.AgentStatus != nil {
		r.Agent.Status = *p.AgentStatus
	}
}

// Helpers for building patches without intermediate variables.

func IntPtr(v int) *int                    { return &v }
func StringPtr(v string) *string           { return &v }
func StatusPtr(v AgentStatus) *AgentStatus { return &v }
func BoolPtr(v bool) *bool                 { return &v }
