// Package host defines the source-control host capability: issues, pull
// requests, comments and labels. Implementations classify every failure as a
// host API error.
package host

import (
	"context"
	"time"
)

// Repository identifies a hosted repository.
type Repository struct {
	Owner         string
	Name          string
	URL           string
	DefaultBranch string
}

// FullName returns owner/name.
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

// Issue is a handle to one issue of a repository.
type Issue struct {
	Repo   Repository
	Number int
}

// IssueRecord is a read-only snapshot of an issue.
type IssueRecord struct {
	Number        int
	Title         string
	Body          string
	State         string
	Labels        []string
	Author        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CommentsCount int
	URL           string
}

// NewPullRequest describes a pull request to open.
type NewPullRequest struct {
	Title string
	Body  string
	Head  string
	Base  string
	Draft bool
}

// PullRequest is a created pull request.
type PullRequest struct {
	Number int
	URL    string
	Draft  bool
}

// Host is the source-control host capability.
type Host interface {
	GetRepository(ctx context.Context, url string) (Repository, error)
	GetIssue(ctx context.Context, repo Repository, number int) (Issue, error)
	GetIssueData(ctx context.Context, issue Issue) (IssueRecord, error)
	CreatePullRequest(ctx context.Context, repo Repository, pr NewPullRequest) (PullRequest, error)
	AddIssueComment(ctx context.Context, issue Issue, body string) error
	AddLabels(ctx context.Context, issue Issue, labels []string) error
}
