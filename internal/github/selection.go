package github

import (
	"context"
	"errors"
	"regexp"
)

var (
	// ErrRepoRequired means nothing identifies the target repository.
	ErrRepoRequired = errors.New("a repository name is required")
	// ErrConnectedRepoURL means the stored repository URL is not a GitHub URL.
	ErrConnectedRepoURL = errors.New("Could not parse connected repo URL.") //nolint:staticcheck // user-facing message
)

var connectedRepo = regexp.MustCompile(`https://github.com/([^/]+)/([^/.]+)`)

// Selection names the publish target.
type Selection struct {
	// RepoName is reused when it exists under the user, else created private.
	RepoName string
	// Existing is a repository picked from the user's list.
	Existing string
	// Connected is the clone URL saved by an earlier publish.
	Connected string
}

// ParseRepoURL extracts owner and name from a GitHub URL.
func ParseRepoURL(raw string) (owner, name string, err error) {
	m := connectedRepo.FindStringSubmatch(raw)
	if m == nil {
		return "", "", ErrConnectedRepoURL
	}
	return m[1], m[2], nil
}

// SelectRepo resolves sel to a repository. A picked existing repository
// wins over a typed name, and the connected repository is used only when
// neither is given. A typed name that does not exist yet is created.
func SelectRepo(ctx context.Context, api API, login string, sel Selection) (*Repo, error) {
	switch {
	case sel.Existing != "":
		return api.GetRepo(ctx, login, sel.Existing)
	case sel.RepoName != "":
		repo, err := api.GetRepo(ctx, login, sel.RepoName)
		if err == nil {
			return repo, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return api.CreateRepo(ctx, sel.RepoName, true)
	case sel.Connected != "":
		owner, name, err := ParseRepoURL(sel.Connected)
		if err != nil {
			return nil, err
		}
		return api.GetRepo(ctx, owner, name)
	default:
		return nil, ErrRepoRequired
	}
}
