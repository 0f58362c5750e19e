package workflow

import "fmt"

// ParamContext is the slice of run state the default parameter builder
// reads. The engine fills it from the current run; keeping it here avoids a
// dependency from the pure table onto the state package.
type ParamContext struct {
	Repository  string
	IssueNumber int
	PRNumber    int
	Branch      string
	Worktree    string
	MergeMethod string
}

// DefaultParams pre-fills suggested parameters for an action so a caller
// asking "what could I do" gets actionable suggestions rather than empty
// shells. It only derives values from data already recorded: it never
// fabricates required business data (an unknown issue number stays absent).
func DefaultParams(def ActionDefinition, pc ParamContext) map[string]any {
	params := make(map[string]any, len(def.Params))

	for _, name := range def.Params {
		switch name {
		case "issue_number":
			if pc.IssueNumber != 0 {
				params[name] = pc.IssueNumber
			}
		case "worktree_path":
			if pc.Worktree != "" {
				params[name] = pc.Worktree
			} else if pc.IssueNumber != 0 {
				params[name] = fmt.Sprintf("/tmp/worktrees/issue-%d", pc.IssueNumber)
			}
		case "branch":
			if pc.Branch != "" {
				params[name] = pc.Branch
			} else if pc.IssueNumber != 0 {
				params[name] = fmt.Sprintf("issue-%d", pc.IssueNumber)
			}
		case "title":
			if pc.IssueNumber != 0 {
				params[name] = fmt.Sprintf("Fix #%d", pc.IssueNumber)
			}
		case "merge_method":
			if pc.MergeMethod != "" {
				params[name] = pc.MergeMethod
			} else {
				params[name] = "squash"
			}
		}
	}

	return params
}
