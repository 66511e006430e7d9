// Package git provides an abstraction for git operations.
package git

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// CloneOptions controls how a repository is cloned.
type CloneOptions struct {
	// Depth limits history to the given number of commits. Zero clones full history.
	Depth int
	// SingleBranch restricts the clone to the remote's default branch.
	SingleBranch bool
	// Timeout bounds the clone. Zero means no bound beyond ctx.
	Timeout time.Duration
}

// Git defines git operations needed by forager.
type Git interface {
	// Clone clones a repository from url to dest.
	Clone(ctx context.Context, url, dest string, opts CloneOptions) error
	// CreateBranch creates and checks out a new branch from HEAD in dir.
	CreateBranch(ctx context.Context, dir, name string) error
	// BranchExists reports whether a local branch named name exists in dir.
	BranchExists(ctx context.Context, dir, name string) (bool, error)
	// SetConfig writes a repository-local config value.
	SetConfig(ctx context.Context, dir, key, value string) error
	// AddAll stages every change in the working tree.
	AddAll(ctx context.Context, dir string) error
	// HasStaged reports whether the index differs from HEAD.
	HasStaged(ctx context.Context, dir string) (bool, error)
	// Commit records the index. allowEmpty permits a commit without changes.
	Commit(ctx context.Context, dir, message string, allowEmpty bool) error
	// Push pushes branch to remote and sets it as upstream.
	Push(ctx context.Context, dir, remote, branch string, timeout time.Duration) error
	// IsClean returns true if there are no uncommitted changes in dir.
	IsClean(ctx context.Context, dir string) (bool, error)
	// HeadRevision returns the full commit hash of HEAD.
	HeadRevision(ctx context.Context, dir string) (string, error)
	// CommitsSince counts commits reachable from HEAD but not from rev.
	CommitsSince(ctx context.Context, dir, rev string) (int, error)
	// GetDiff retrieves a unified diff.
	GetDiff(ctx context.Context, dir string, opts DiffOptions) (string, error)
}

// ExtractOwnerRepo extracts the owner and repository name from a git remote
// URL. Nested groups resolve to the innermost group as owner.
//
//	git@github.com:acme/widgets.git  -> acme, widgets
//	https://github.com/org/repo      -> org, repo
func ExtractOwnerRepo(remote string) (owner, repo string) {
	path := remotePath(remote)
	parts := strings.Split(path, "/")
	if len(parts) < 2 {
		return "", ""
	}

	owner = parts[len(parts)-2]
	repo = parts[len(parts)-1]
	if owner == "" || repo == "" {
		return "", ""
	}
	return owner, repo
}

// ExtractRepoName extracts the repository name from a git remote URL.
func ExtractRepoName(remote string) string {
	_, repo := ExtractOwnerRepo(remote)
	return repo
}

func remotePath(remote string) string {
	remote = strings.TrimSpace(remote)
	if remote == "" {
		return ""
	}

	var path string
	switch {
	case strings.Contains(remote, "://"):
		u, err := url.Parse(remote)
		if err != nil {
			return ""
		}
		path = u.Path
	case strings.Contains(remote, ":"):
		// scp-like syntax: user@host:owner/repo
		path = remote[strings.Index(remote, ":")+1:]
	default:
		return ""
	}

	path = strings.Trim(path, "/")
	return strings.TrimSuffix(path, ".git")
}

// AuthenticatedURL returns rawURL with token embedded as basic auth when the
// URL's host equals authHost. Any other host, an empty token, or a non-https
// URL returns rawURL unchanged.
func AuthenticatedURL(rawURL, authHost, token string) string {
	if token == "" {
		return rawURL
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "https" || !strings.EqualFold(u.Hostname(), authHost) {
		return rawURL
	}

	u.User = url.UserPassword("x-access-token", token)
	return u.String()
}

// Redact strips credentials from a URL so it can be logged.
func Redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.User == nil {
		return rawURL
	}
	u.User = nil
	return u.String()
}
