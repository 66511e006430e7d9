// Package task defines the unit of work a worker consumes: a repository, an
// issue in it, and the mode that selects how the issue is handled.
package task

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/hay-kot/criterio"

	"github.com/colonyops/forager/internal/core/git"
	"github.com/colonyops/forager/internal/core/taskerr"
)

// Mode selects the workflow a task runs.
type Mode string

const (
	ModeQuickFix     Mode = "quickfix"
	ModePlan         Mode = "plan"
	ModePlanApproval Mode = "plan-approval"
	ModeRefine       Mode = "refine"
)

// AllModes returns every declared mode. Mode registries are checked against
// this list at startup.
func AllModes() []Mode {
	return []Mode{ModeQuickFix, ModePlan, ModePlanApproval, ModeRefine}
}

// ParseMode converts a wire value into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "quickfix", "quick-fix":
		return ModeQuickFix, nil
	case "plan":
		return ModePlan, nil
	case "plan-approval":
		return ModePlanApproval, nil
	case "refine":
		return ModeRefine, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

func (m Mode) String() string { return string(m) }

// Task is immutable once received.
type Task struct {
	RepoURL    string
	Issue      int
	Mode       Mode
	User       string
	DeliveryID string
}

// wire is the JSON shape published to the task queue.
type wire struct {
	RepoURL string `json:"repo_url"`
	IssueID int    `json:"issue_id"`
	Mode    string `json:"mode"`
	User    string `json:"user"`
}

// Parse decodes and validates a task. deliveryID identifies this delivery; a
// fresh uuid is used when it is empty. Every failure is a validation error.
func Parse(data []byte, deliveryID string) (Task, error) {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return Task{}, taskerr.New(taskerr.KindValidation, "decode task", err)
	}

	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}

	t := Task{
		RepoURL:    strings.TrimSpace(w.RepoURL),
		Issue:      w.IssueID,
		Mode:       Mode(w.Mode),
		User:       strings.TrimSpace(w.User),
		DeliveryID: deliveryID,
	}

	if m, err := ParseMode(w.Mode); err == nil {
		t.Mode = m
	}

	if err := t.Validate(); err != nil {
		return Task{}, err
	}
	return t, nil
}

// Marshal encodes the task in its wire shape.
func (t Task) Marshal() ([]byte, error) {
	return json.Marshal(wire{RepoURL: t.RepoURL, IssueID: t.Issue, Mode: string(t.Mode), User: t.User})
}

// Validate reports every malformed field at once.
func (t Task) Validate() error {
	err := criterio.ValidateStruct(
		criterio.Run("repo_url", t.RepoURL, validateRepoURL),
		criterio.Run("issue_id", t.Issue, validateIssue),
		criterio.Run("mode", t.Mode, validateMode),
		criterio.Run("user", t.User, validateUser),
	)
	return taskerr.New(taskerr.KindValidation, "validate task", err)
}

func validateRepoURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("is required")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("not a valid url: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	if u.User != nil {
		return fmt.Errorf("must not carry credentials")
	}
	if owner, repo := git.ExtractOwnerRepo(raw); owner == "" || repo == "" {
		return fmt.Errorf("path must name owner and repository")
	}
	return nil
}

func validateIssue(n int) error {
	if n <= 0 {
		return fmt.Errorf("must be a positive integer, got %d", n)
	}
	return nil
}

func validateMode(m Mode) error {
	for _, known := range AllModes() {
		if m == known {
			return nil
		}
	}
	return fmt.Errorf("unknown mode %q", string(m))
}

func validateUser(u string) error {
	if u == "" {
		return fmt.Errorf("is required")
	}
	return nil
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9._-]+`)

// WorkspaceID names the task's workspace directory. It is derived from the
// repository, the issue and the delivery so that concurrent tasks never share
// a directory, even for equal issue numbers in different repositories.
func (t Task) WorkspaceID() string {
	owner, repo := git.ExtractOwnerRepo(t.RepoURL)
	token := strings.ReplaceAll(t.DeliveryID, "-", "")
	if len(token) > 8 {
		token = token[:8]
	}

	id := fmt.Sprintf("%s-%s-issue-%d-%s", owner, repo, t.Issue, token)
	id = unsafeChars.ReplaceAllString(strings.ToLower(id), "-")
	return strings.Trim(id, "-.")
}

// BranchName returns the working branch, e.g. agent/plan-issue-7.
func (t Task) BranchName(prefix string) string {
	if prefix == "" {
		prefix = "agent"
	}
	return fmt.Sprintf("%s/%s-issue-%d", strings.TrimSuffix(prefix, "/"), t.Mode, t.Issue)
}

// Owner returns the repository owner parsed from RepoURL.
func (t Task) Owner() string {
	owner, _ := git.ExtractOwnerRepo(t.RepoURL)
	return owner
}

// Repo returns the repository name parsed from RepoURL.
func (t Task) Repo() string {
	return git.ExtractRepoName(t.RepoURL)
}
