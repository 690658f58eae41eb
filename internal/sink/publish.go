package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/jonesrussell/site-builder/infrastructure/logger"
	"github.com/jonesrussell/site-builder/internal/gitops"
)

const (
	remoteName    = "origin"
	commitPrefix  = "Update site: "
	noreplyDomain = "@users.noreply.github.com"
)

// Target is where and as whom a bundle is published.
type Target struct {
	Owner    string
	Repo     string
	Login    string
	Email    string
	Token    string
	SiteName string
	// RemoteURL overrides the GitHub URL built from Owner, Repo and Token.
	RemoteURL string
}

// RemoteURL is the token-bearing GitHub remote for owner/repo.
func RemoteURL(token, owner, repo string) string {
	return fmt.Sprintf("https://%s@github.com/%s/%s.git", token, owner, repo)
}

// Identity is the commit identity for a GitHub login.
func Identity(login, email string) gitops.Identity {
	if email == "" {
		email = login + noreplyDomain
	}
	return gitops.Identity{Name: login, Email: email}
}

func (t Target) remote() string {
	if t.RemoteURL != "" {
		return t.RemoteURL
	}
	return RemoteURL(t.Token, t.Owner, t.Repo)
}

// Result describes a finished publish.
type Result struct {
	Committed bool
	Commit    string
}

// Publisher commits a bundle directory and force-pushes it to main.
type Publisher struct {
	log     logger.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewPublisher(log logger.Logger, timeout time.Duration) *Publisher {
	return &Publisher{log: log, timeout: timeout, now: time.Now}
}

// Publish turns dir into a working tree of the target repository. When the
// tree matches the remote main branch nothing is committed or pushed.
func (p *Publisher) Publish(ctx context.Context, dir string, t Target) (Result, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	repo, err := gitops.Open(dir)
	if err != nil {
		return Result{}, err
	}
	if err = repo.SetRemote(remoteName, t.remote()); err != nil {
		return Result{}, err
	}

	auth := gitops.BasicAuth(t.Login, t.Token)
	if _, err = repo.SyncBranch(ctx, remoteName, gitops.DefaultBranch, auth); err != nil {
		return Result{}, err
	}

	clean, err := repo.StageAll()
	if err != nil {
		return Result{}, err
	}
	if clean {
		p.log.Info("No changes to publish",
			logger.String("repository", t.Owner+"/"+t.Repo),
		)
		return Result{Commit: repo.Head()}, nil
	}

	hash, err := repo.Commit(commitPrefix+t.SiteName, Identity(t.Login, t.Email), p.now())
	if err != nil {
		return Result{}, err
	}
	if err = repo.Push(ctx, remoteName, gitops.DefaultBranch, auth); err != nil {
		return Result{}, err
	}

	p.log.Info("Published site",
		logger.String("repository", t.Owner+"/"+t.Repo),
		logger.String("commit", hash),
	)
	return Result{Committed: true, Commit: hash}, nil
}
