package adapter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/orchd/internal/state"
	"github.com/fyrsmithlabs/orchd/internal/workflow"
)

// GitHubConfig configures the production adapter.
type GitHubConfig struct {
	// Token authenticates API calls. Required.
	Token string

	// BaseURL overrides the API endpoint for GitHub Enterprise. Optional.
	BaseURL string

	// MergeMethod is the default merge strategy: "merge", "squash" or
	// "rebase". Defaults to "squash".
	MergeMethod string

	// CIPollInterval is the delay between CI status polls. Defaults to 15s.
	CIPollInterval time.Duration

	// CITimeout bounds a single WAIT_FOR_CI attempt. When exceeded the
	// action returns a structured "ci timeout" failure rather than blocking
	// forever. Defaults to 30m.
	CITimeout time.Duration

	// RequestsPerSecond throttles API calls. Defaults to 5.
	RequestsPerSecond float64

	// CloneURL overrides the derived clone URL
	// (https://github.com/<owner>/<name>.git), e.g. for enterprise hosts.
	CloneURL string
}

func (c *GitHubConfig) applyDefaults() {
	if c.MergeMethod == "" {
		c.MergeMethod = "squash"
	}
	if c.CIPollInterval == 0 {
		c.CIPollInterval = 15 * time.Second
	}
	if c.CITimeout == 0 {
		c.CITimeout = 30 * time.Minute
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = 5
	}
}

// GitHub is the production adapter: PR-facing actions call the GitHub API,
// environment actions (provisioning, branching, cleanup) manage a real
// clone through the workspace, and the terminal marks share the reference
// adapter's semantics.
type GitHub struct {
	client    *github.Client
	local     *Sim
	workspace *Workspace
	limit     *rate.Limiter
	cfg       GitHubConfig
}

// NewGitHub builds the adapter from config.
func NewGitHub(ctx context.Context, cfg GitHubConfig) (*GitHub, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("github token not set")
	}
	cfg.applyDefaults()

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	client := github.NewClient(oauth2.NewClient(ctx, ts))
	if cfg.BaseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(cfg.BaseURL, cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL: %w", err)
		}
	}

	return &GitHub{
		client:    client,
		local:     NewSim(),
		workspace: NewWorkspace(cfg.Token),
		limit:     rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		cfg:       cfg,
	}, nil
}

// Execute dispatches over the action kind. Unknown kinds return a
// structured failure, never a panic.
func (g *GitHub) Execute(ctx context.Context, kind workflow.ActionKind, params map[string]any, run *state.Run) Result {
	switch kind {
	case workflow.ActionClaimIssue:
		return g.claimIssue(ctx, params, run)
	case workflow.ActionCreatePR:
		return g.createPR(ctx, params, run)
	case workflow.ActionUpdatePR, workflow.ActionRespondToReview, workflow.ActionAddressFeedback:
		return g.commentOnPR(ctx, kind, run)
	case workflow.ActionRunCI:
		return g.local.requirePR(run, "No PR exists to run CI for")
	case workflow.ActionWaitForCI, workflow.ActionRetryCI:
		return g.waitForCI(ctx, run)
	case workflow.ActionRequestReview:
		return g.requestReview(ctx, params, run)
	case workflow.ActionRequestChanges:
		return g.local.requirePR(run, "No PR exists to review")
	case workflow.ActionApprovePR:
		return g.checkApproved(ctx, run)
	case workflow.ActionMergePR:
		return g.mergePR(ctx, params, run)
	case workflow.ActionRebasePR:
		return g.rebasePR(ctx, run)
	case workflow.ActionConfirmMerge:
		return g.confirmMerge(ctx, run)
	case workflow.ActionDeleteBranch:
		return g.deleteBranch(ctx, run)
	case workflow.ActionProvisionAgent:
		return g.provisionAgent(ctx, params, run)
	case workflow.ActionStartImplementation:
		return g.startImplementation(params, run)
	case workflow.ActionCleanupWorktree:
		return g.cleanupWorktree(run)
	case workflow.ActionMarkCompleted, workflow.ActionMarkFailed:
		return g.local.Execute(ctx, kind, params, run)
	default:
		return UnknownAction(kind)
	}
}

// splitRepo parses "owner/name".
func splitRepo(repository string) (string, string, error) {
	parts := strings.SplitN(repository, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repository must be owner/name, got %q", repository)
	}
	return parts[0], parts[1], nil
}

func (g *GitHub) wait(ctx context.Context) error {
	return g.limit.Wait(ctx)
}

func (g *GitHub) claimIssue(ctx context.Context, params map[string]any, run *state.Run) Result {
	issue, ok := intParam(params, "issue_number")
	if !ok {
		if run.WorkItem.IssueNumber == 0 {
			return Failure("no issue number supplied")
		}
		issue = run.WorkItem.IssueNumber
	}
	owner, repo, err := splitRepo(run.WorkItem.Repository)
	if err != nil {
		return Failure("%v", err)
	}
	if err := g.wait(ctx); err != nil {
		return Failure("canceled: %v", err)
	}
	is, _, err := g.client.Issues.Get(ctx, owner, repo, issue)
	if err != nil {
		return Failure("failed to fetch issue #%d: %v", issue, err)
	}
	return Result{
		Success:  true,
		Metadata: map[string]any{"issue_number": issue, "issue_title": is.GetTitle()},
		Patch: state.Patch{
			IssueNumber: state.IntPtr(issue),
			Title:       state.StringPtr(is.GetTitle()),
			URL:         state.StringPtr(is.GetHTMLURL()),
		},
	}
}

// cloneURL derives the clone endpoint for the run's repository.
func (g *GitHub) cloneURL(run *state.Run) string {
	if g.cfg.CloneURL != "" {
		return g.cfg.CloneURL
	}
	return fmt.Sprintf("https://github.com/%s.git", run.WorkItem.Repository)
}

// provisionAgent clones the repository into the worktree directory.
func (g *GitHub) provisionAgent(ctx context.Context, params map[string]any, run *state.Run) Result {
	worktree, ok := stringParam(params, "worktree_path")
	if !ok || worktree == "" {
		if run.WorkItem.IssueNumber == 0 {
			return Failure("no worktree path supplied")
		}
		worktree = fmt.Sprintf("/tmp/worktrees/issue-%d", run.WorkItem.IssueNumber)
	}
	if err := g.workspace.Clone(ctx, g.cloneURL(run), worktree); err != nil {
		return Failure("%v", err)
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

// startImplementation creates and checks out the working branch in the
// provisioned clone.
func (g *GitHub) startImplementation(params map[string]any, run *state.Run) Result {
	if run.Agent.Status != state.AgentActive || run.Agent.Worktree == "" {
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
	if err := g.workspace.CreateBranch(run.Agent.Worktree, branch); err != nil {
		return Failure("%v", err)
	}
	return Result{
		Success:  true,
		Metadata: map[string]any{"branch": branch},
		Patch:    state.Patch{Branch: state.StringPtr(branch)},
	}
}

// cleanupWorktree deletes the clone from disk. A missing worktree is
// already clean.
func (g *GitHub) cleanupWorktree(run *state.Run) Result {
	if err := g.workspace.Remove(run.Agent.Worktree); err != nil {
		return Failure("failed to remove worktree %s: %v", run.Agent.Worktree, err)
	}
	return Result{
		Success:  true,
		Metadata: map[string]any{"worktree": run.Agent.Worktree},
		Patch:    state.Patch{AgentWorktree: state.StringPtr("")},
	}
}

func (g *GitHub) createPR(ctx context.Context, params map[string]any, run *state.Run) Result {
	if run.WorkItem.Branch == "" {
		return Failure("no branch to open a PR from")
	}
	owner, repo, err := splitRepo(run.WorkItem.Repository)
	if err != nil {
		return Failure("%v", err)
	}
	title, ok := stringParam(params, "title")
	if !ok || title == "" {
		if run.WorkItem.IssueNumber != 0 {
			title = fmt.Sprintf("Fix #%d", run.WorkItem.IssueNumber)
		} else {
			title = run.WorkItem.Branch
		}
	}
	base, _ := stringParam(params, "base")
	if base == "" {
		base = "main"
	}
	if err := g.wait(ctx); err != nil {
		return Failure("canceled: %v", err)
	}
	pr, _, err := g.client.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: github.String(title),
		Head:  github.String(run.WorkItem.Branch),
		Base:  github.String(base),
	})
	if err != nil {
		return Failure("failed to create PR: %v", err)
	}
	return Result{
		Success:  true,
		Metadata: map[string]any{"pr_number": pr.GetNumber()},
		Patch: state.Patch{
			PRNumber: state.IntPtr(pr.GetNumber()),
			Title:    state.StringPtr(title),
			URL:      state.StringPtr(pr.GetHTMLURL()),
		},
	}
}

func (g *GitHub) commentOnPR(ctx context.Context, kind workflow.ActionKind, run *state.Run) Result {
	if run.WorkItem.PRNumber == 0 {
		return Failure("No PR exists to update")
	}
	owner, repo, err := splitRepo(run.WorkItem.Repository)
	if err != nil {
		return Failure("%v", err)
	}
	if err := g.wait(ctx); err != nil {
		return Failure("canceled: %v", err)
	}
	body := fmt.Sprintf("orchd: %s", kind)
	_, _, err = g.client.Issues.CreateComment(ctx, owner, repo, run.WorkItem.PRNumber, &github.IssueComment{
		Body: github.String(body),
	})
	if err != nil {
		return Failure("failed to comment on PR #%d: %v", run.WorkItem.PRNumber, err)
	}
	return Result{Success: true, Metadata: map[string]any{"pr_number": run.WorkItem.PRNumber}}
}

// waitForCI polls the combined commit status with a bounded interval and
// deadline. Timing out is a structured failure, not an exception, so the
// attempt still lands in history.
func (g *GitHub) waitForCI(ctx context.Context, run *state.Run) Result {
	if run.WorkItem.PRNumber == 0 {
		return Failure("No PR exists to wait on CI for")
	}
	owner, repo, err := splitRepo(run.WorkItem.Repository)
	if err != nil {
		return Failure("%v", err)
	}

	deadline := time.Now().Add(g.cfg.CITimeout)
	for {
		if err := g.wait(ctx); err != nil {
			return Failure("canceled: %v", err)
		}
		pr, _, err := g.client.PullRequests.Get(ctx, owner, repo, run.WorkItem.PRNumber)
		if err != nil {
			return Failure("failed to fetch PR #%d: %v", run.WorkItem.PRNumber, err)
		}
		status, _, err := g.client.Repositories.GetCombinedStatus(ctx, owner, repo, pr.GetHead().GetSHA(), nil)
		if err != nil {
			return Failure("failed to fetch CI status: %v", err)
		}
		switch status.GetState() {
		case "success":
			return Result{Success: true, Metadata: map[string]any{"ci_passed": true, "sha": pr.GetHead().GetSHA()}}
		case "failure", "error":
			return Failure("ci failed")
		}

		if time.Now().After(deadline) {
			return Failure("ci timeout")
		}
		select {
		case <-ctx.Done():
			return Failure("canceled: %v", ctx.Err())
		case <-time.After(g.cfg.CIPollInterval):
		}
	}
}

func (g *GitHub) requestReview(ctx context.Context, params map[string]any, run *state.Run) Result {
	if run.WorkItem.PRNumber == 0 {
		return Failure("No PR exists to request review on")
	}
	owner, repo, err := splitRepo(run.WorkItem.Repository)
	if err != nil {
		return Failure("%v", err)
	}
	reviewer, ok := stringParam(params, "reviewer")
	if !ok || reviewer == "" {
		return Failure("no reviewer supplied")
	}
	if err := g.wait(ctx); err != nil {
		return Failure("canceled: %v", err)
	}
	_, _, err = g.client.PullRequests.RequestReviewers(ctx, owner, repo, run.WorkItem.PRNumber, github.ReviewersRequest{
		Reviewers: []string{reviewer},
	})
	if err != nil {
		return Failure("failed to request review: %v", err)
	}
	return Result{Success: true, Metadata: map[string]any{"reviewer": reviewer}}
}

// checkApproved succeeds only when the PR actually has an APPROVED review.
func (g *GitHub) checkApproved(ctx context.Context, run *state.Run) Result {
	if run.WorkItem.PRNumber == 0 {
		return Failure("No PR exists to review")
	}
	owner, repo, err := splitRepo(run.WorkItem.Repository)
	if err != nil {
		return Failure("%v", err)
	}
	if err := g.wait(ctx); err != nil {
		return Failure("canceled: %v", err)
	}
	reviews, _, err := g.client.PullRequests.ListReviews(ctx, owner, repo, run.WorkItem.PRNumber, nil)
	if err != nil {
		return Failure("failed to list reviews: %v", err)
	}
	for _, review := range reviews {
		if review.GetState() == "APPROVED" {
			return Result{Success: true, Metadata: map[string]any{"approved_by": review.GetUser().GetLogin()}}
		}
	}
	return Failure("PR #%d is not approved", run.WorkItem.PRNumber)
}

func (g *GitHub) mergePR(ctx context.Context, params map[string]any, run *state.Run) Result {
	if run.WorkItem.PRNumber == 0 {
		return Failure("No PR exists to merge")
	}
	owner, repo, err := splitRepo(run.WorkItem.Repository)
	if err != nil {
		return Failure("%v", err)
	}
	method, ok := stringParam(params, "merge_method")
	if !ok || method == "" {
		method = g.cfg.MergeMethod
	}
	if err := g.wait(ctx); err != nil {
		return Failure("canceled: %v", err)
	}
	result, _, err := g.client.PullRequests.Merge(ctx, owner, repo, run.WorkItem.PRNumber, "", &github.PullRequestOptions{
		MergeMethod: method,
	})
	if err != nil {
		return Failure("failed to merge PR #%d: %v", run.WorkItem.PRNumber, err)
	}
	if !result.GetMerged() {
		return Failure("merge of PR #%d was not performed: %s", run.WorkItem.PRNumber, result.GetMessage())
	}
	return Result{Success: true, Metadata: map[string]any{"merge_method": method, "sha": result.GetSHA()}}
}

func (g *GitHub) rebasePR(ctx context.Context, run *state.Run) Result {
	if run.WorkItem.PRNumber == 0 {
		return Failure("No PR exists to rebase")
	}
	owner, repo, err := splitRepo(run.WorkItem.Repository)
	if err != nil {
		return Failure("%v", err)
	}
	if err := g.wait(ctx); err != nil {
		return Failure("canceled: %v", err)
	}
	_, _, err = g.client.PullRequests.UpdateBranch(ctx, owner, repo, run.WorkItem.PRNumber, nil)
	if err != nil {
		return Failure("failed to rebase PR #%d: %v", run.WorkItem.PRNumber, err)
	}
	return Result{Success: true, Metadata: map[string]any{"pr_number": run.WorkItem.PRNumber}}
}

func (g *GitHub) confirmMerge(ctx context.Context, run *state.Run) Result {
	if run.WorkItem.PRNumber == 0 {
		return Failure("No PR exists to confirm")
	}
	owner, repo, err := splitRepo(run.WorkItem.Repository)
	if err != nil {
		return Failure("%v", err)
	}
	if err := g.wait(ctx); err != nil {
		return Failure("canceled: %v", err)
	}
	merged, _, err := g.client.PullRequests.IsMerged(ctx, owner, repo, run.WorkItem.PRNumber)
	if err != nil {
		return Failure("failed to check merge state: %v", err)
	}
	if !merged {
		return Failure("PR #%d is not merged yet", run.WorkItem.PRNumber)
	}
	return Result{Success: true, Metadata: map[string]any{"pr_number": run.WorkItem.PRNumber}}
}

func (g *GitHub) deleteBranch(ctx context.Context, run *state.Run) Result {
	if run.WorkItem.Branch == "" {
		return Failure("no branch recorded to delete")
	}
	owner, repo, err := splitRepo(run.WorkItem.Repository)
	if err != nil {
		return Failure("%v", err)
	}
	if err := g.wait(ctx); err != nil {
		return Failure("canceled: %v", err)
	}
	_, err = g.client.Git.DeleteRef(ctx, owner, repo, "heads/"+run.WorkItem.Branch)
	if err != nil {
		return Failure("failed to delete branch %s: %v", run.WorkItem.Branch, err)
	}
	return Result{Success: true, Metadata: map[string]any{"branch": run.WorkItem.Branch}}
}
