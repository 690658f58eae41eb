// Package gitops drives a git working tree with go-git: open or init,
// point a remote, line up with the remote branch, stage, commit and push.
package gitops

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

// DefaultBranch is the branch new repositories start on and pushes target.
const DefaultBranch = "main"

// Identity is the commit author and committer.
type Identity struct {
	Name  string
	Email string
}

// Repository is a git working tree on disk.
type Repository struct {
	repo *git.Repository
	wt   *git.Worktree
}

// Open opens the repository at dir, initializing one on DefaultBranch when
// dir is not a repository yet.
func Open(dir string) (*Repository, error) {
	repo, err := git.PlainOpen(dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		repo, err = git.PlainInitWithOptions(dir, &git.PlainInitOptions{
			InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName(DefaultBranch)},
		})
	}
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", dir, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}
	return &Repository{repo: repo, wt: wt}, nil
}

// BasicAuth returns HTTP basic credentials, or nil when token is empty.
func BasicAuth(user, token string) transport.AuthMethod {
	if token == "" {
		return nil
	}
	return &githttp.BasicAuth{Username: user, Password: token}
}

// SetRemote creates the named remote or replaces its URL.
func (r *Repository) SetRemote(name, url string) error {
	if err := r.repo.DeleteRemote(name); err != nil && !errors.Is(err, git.ErrRemoteNotFound) {
		return fmt.Errorf("remove remote %s: %w", name, err)
	}
	if _, err := r.repo.CreateRemote(&config.RemoteConfig{Name: name, URLs: []string{url}}); err != nil {
		return fmt.Errorf("create remote %s: %w", name, err)
	}
	return nil
}

// SyncBranch fetches branch from remote and moves the local branch and the
// index onto it, leaving the files on disk untouched. The next StageAll
// then reports changes relative to the remote. It returns false when the
// remote has no such branch.
func (r *Repository) SyncBranch(ctx context.Context, remote, branch string, auth transport.AuthMethod) (bool, error) {
	remoteRef := plumbing.NewRemoteReferenceName(remote, branch)
	spec := config.RefSpec(fmt.Sprintf("+%s:%s", plumbing.NewBranchReferenceName(branch), remoteRef))

	err := r.repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{spec},
		Auth:       auth,
		Force:      true,
	})
	var noMatch git.NoMatchingRefSpecError
	switch {
	case err == nil, errors.Is(err, git.NoErrAlreadyUpToDate):
	case errors.Is(err, transport.ErrEmptyRemoteRepository), errors.As(err, &noMatch):
		return false, nil
	default:
		return false, fmt.Errorf("fetch %s/%s: %w", remote, branch, err)
	}

	ref, err := r.repo.Reference(remoteRef, true)
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w", remoteRef, err)
	}

	local := plumbing.NewBranchReferenceName(branch)
	if err = r.repo.Storer.SetReference(plumbing.NewHashReference(local, ref.Hash())); err != nil {
		return false, fmt.Errorf("update %s: %w", local, err)
	}
	if err = r.repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, local)); err != nil {
		return false, fmt.Errorf("point HEAD at %s: %w", local, err)
	}
	if err = r.wt.Reset(&git.ResetOptions{Commit: ref.Hash(), Mode: git.MixedReset}); err != nil {
		return false, fmt.Errorf("reset index to %s: %w", ref.Hash(), err)
	}
	return true, nil
}

// StageAll stages every change in the tree, deletions included, and
// reports whether the tree is clean afterwards.
func (r *Repository) StageAll() (bool, error) {
	if err := r.wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return false, fmt.Errorf("stage changes: %w", err)
	}
	status, err := r.wt.Status()
	if err != nil {
		return false, fmt.Errorf("read status: %w", err)
	}
	return status.IsClean(), nil
}

// Commit records the index and returns the new commit hash.
func (r *Repository) Commit(message string, who Identity, when time.Time) (string, error) {
	sig := &object.Signature{Name: who.Name, Email: who.Email, When: when}
	hash, err := r.wt.Commit(message, &git.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return hash.String(), nil
}

// Push force-pushes the local branch to the same branch on remote.
func (r *Repository) Push(ctx context.Context, remote, branch string, auth transport.AuthMethod) error {
	ref := plumbing.NewBranchReferenceName(branch)
	err := r.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{config.RefSpec(fmt.Sprintf("+%s:%s", ref, ref))},
		Auth:       auth,
		Force:      true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("push %s to %s: %w", branch, remote, err)
	}
	return nil
}

// Head returns the hash HEAD points at, or "" before the first commit.
func (r *Repository) Head() string {
	ref, err := r.repo.Head()
	if err != nil {
		return ""
	}
	return ref.Hash().String()
}
