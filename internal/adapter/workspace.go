package adapter

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

// Workspace manages real clones and branches on the local filesystem for the
// production adapter's environment actions. One workspace serves many runs;
// each run gets its own worktree directory.
type Workspace struct {
	token string
}

// NewWorkspace returns a workspace. The token, when set, authenticates
// https clone URLs; local paths and file URLs need none.
func NewWorkspace(token string) *Workspace {
	return &Workspace{token: token}
}

// auth returns credentials for the given clone URL. go-git rejects auth
// methods the transport cannot carry, so only https URLs get one.
func (w *Workspace) auth(url string) *githttp.BasicAuth {
	if w.token == "" || !strings.HasPrefix(url, "http") {
		return nil
	}
	return &githttp.BasicAuth{Username: "x-access-token", Password: w.token}
}

// Clone materializes the repository at path. Cloning into an existing
// repository is a no-op so provisioning stays idempotent.
func (w *Workspace) Clone(ctx context.Context, url, path string) error {
	opts := &git.CloneOptions{URL: url}
	if auth := w.auth(url); auth != nil {
		opts.Auth = auth
	}
	_, err := git.PlainCloneContext(ctx, path, false, opts)
	if err == git.ErrRepositoryAlreadyExists {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to clone %s: %w", url, err)
	}
	return nil
}

// CreateBranch checks out branch in the worktree at path, creating it from
// HEAD when it does not exist yet.
func (w *Workspace) CreateBranch(path, branch string) error {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return fmt.Errorf("failed to open worktree %s: %w", path, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to access worktree %s: %w", path, err)
	}

	ref := plumbing.NewBranchReferenceName(branch)
	_, refErr := repo.Reference(ref, false)
	if err := wt.Checkout(&git.CheckoutOptions{Branch: ref, Create: refErr != nil}); err != nil {
		return fmt.Errorf("failed to check out branch %s: %w", branch, err)
	}
	return nil
}

// CurrentBranch reports the branch HEAD points at, or empty for a detached
// HEAD.
func (w *Workspace) CurrentBranch(path string) (string, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return "", fmt.Errorf("failed to open worktree %s: %w", path, err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", nil
	}
	return head.Name().Short(), nil
}

// DeleteBranch removes the local branch reference.
func (w *Workspace) DeleteBranch(path, branch string) error {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return fmt.Errorf("failed to open worktree %s: %w", path, err)
	}
	if err := repo.Storer.RemoveReference(plumbing.NewBranchReferenceName(branch)); err != nil {
		return fmt.Errorf("failed to delete branch %s: %w", branch, err)
	}
	return nil
}

// Remove deletes the worktree directory. Removing a path that is already
// gone succeeds.
func (w *Workspace) Remove(path string) error {
	if path == "" {
		return nil
	}
	return os.RemoveAll(path)
}
