// Package history defines the run audit trail: one record per task, written
// when it starts and completed when it reaches a terminal state.
package history

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// Status is the outcome of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is the audit record of one task execution. It is never used to resume
// work.
type Run struct {
	ID             string     `json:"id"`
	DeliveryID     string     `json:"delivery_id"`
	RepoURL        string     `json:"repo_url"`
	Issue          int        `json:"issue"`
	Mode           string     `json:"mode"`
	User           string     `json:"user"`
	Status         Status     `json:"status"`
	State          string     `json:"state"` // last step reached
	Error          string     `json:"error,omitempty"`
	ErrorKind      string     `json:"error_kind,omitempty"`
	Branch         string     `json:"branch,omitempty"`
	PullRequestURL string     `json:"pull_request_url,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

// Failed reports whether the run ended in failure.
func (r *Run) Failed() bool {
	return r.Status == StatusFailed
}

// Duration returns how long the run took, or has been running.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Outcome is the terminal information recorded by Finish.
type Outcome struct {
	Status         Status
	State          string
	Error          string
	ErrorKind      string
	Branch         string
	PullRequestURL string
	FinishedAt     time.Time
}

// Store persists runs.
type Store interface {
	Start(ctx context.Context, run Run) error
	Finish(ctx context.Context, id string, outcome Outcome) error
	// List returns the most recent runs first. limit <= 0 means no limit.
	List(ctx context.Context, limit int) ([]Run, error)
	Get(ctx context.Context, id string) (Run, error)
}
