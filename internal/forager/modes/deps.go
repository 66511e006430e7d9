// Package modes implements the per-mode workflows that turn a task into
// branches, commits and pull requests.
package modes

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/colonyops/forager/internal/core/config"
	"github.com/colonyops/forager/internal/core/host"
	"github.com/colonyops/forager/internal/core/task"
	"github.com/colonyops/forager/internal/core/taskerr"
	"github.com/colonyops/forager/internal/forager/contextdoc"
	"github.com/colonyops/forager/internal/forager/generation"
	"github.com/colonyops/forager/internal/forager/workspace"
	"github.com/colonyops/forager/pkg/tmpl"
)

// Orchestrator runs one mode's workflow for a task, reporting progress to tr.
// It must leave no workspace behind on any path.
type Orchestrator interface {
	Run(ctx context.Context, t task.Task, tr *Tracker) error
}

// Workspaces is the workspace capability orchestrators use.
type Workspaces interface {
	Acquire(ctx context.Context, repoURL, id, token string) (*workspace.Workspace, error)
	CreateBranch(ctx context.Context, path, name string) error
	ConfigureIdentity(ctx context.Context, path string) error
	Commit(ctx context.Context, path, message string, allowEmpty bool) error
	Push(ctx context.Context, path, branch string) error
	HeadRevision(ctx context.Context, path string) (string, error)
	Changes(ctx context.Context, path, base string) (workspace.ChangeSet, error)
}

// ContextBuilder renders the context document for a checkout.
type ContextBuilder interface {
	Build(ctx context.Context, root, name string, issue host.IssueRecord) (contextdoc.Document, error)
}

// Generators opens a generation gateway for one task.
type Generators interface {
	New(ctx context.Context) (*generation.Gateway, error)
}

// Deps are the capabilities shared by all orchestrators.
type Deps struct {
	Host       host.Host
	Workspaces Workspaces
	Assembler  ContextBuilder
	Generators Generators
	Config     *config.Config
	Logger     zerolog.Logger
}

// issueRefs is what every mode learns about the task's issue up front.
type issueRefs struct {
	repo   host.Repository
	issue  host.Issue
	record host.IssueRecord
}

func (d Deps) fetchIssue(ctx context.Context, t task.Task) (issueRefs, error) {
	var refs issueRefs
	var err error

	if refs.repo, err = d.Host.GetRepository(ctx, t.RepoURL); err != nil {
		return refs, err
	}
	if refs.issue, err = d.Host.GetIssue(ctx, refs.repo, t.Issue); err != nil {
		return refs, err
	}
	if refs.record, err = d.Host.GetIssueData(ctx, refs.issue); err != nil {
		return refs, err
	}
	return refs, nil
}

// annotate posts the comment and labels that close out a run.
func (d Deps) annotate(ctx context.Context, issue host.Issue, comment string, labels []string) error {
	if err := d.Host.AddIssueComment(ctx, issue, comment); err != nil {
		return err
	}
	return d.Host.AddLabels(ctx, issue, labels)
}

func render(name, text string, data config.MessageData) (string, error) {
	out, err := tmpl.Render(text, data)
	if err != nil {
		return "", taskerr.New(taskerr.KindValidation, "render "+name, err)
	}
	return out, nil
}

// pullRequestText is the rendered title and body of a pull request.
type pullRequestText struct {
	title string
	body  string
}

// renderPullRequest renders the pull request text and test-renders the closing
// comment against a placeholder pull request. The comment is rendered for real
// once the pull request exists.
func renderPullRequest(mode, title, body, comment string, data config.MessageData) (pullRequestText, error) {
	var text pullRequestText
	var err error

	if text.title, err = render(mode+"_pr_title", title, data); err != nil {
		return text, err
	}
	if text.body, err = render(mode+"_pr_body", body, data); err != nil {
		return text, err
	}

	data.PullRequest = host.PullRequest{Number: 1, URL: data.Repo.URL}
	if _, err = render(mode+"_comment", comment, data); err != nil {
		return text, err
	}
	return text, nil
}

func (d Deps) messageData(t task.Task, refs issueRefs, branch string) config.MessageData {
	return config.MessageData{
		Issue:  refs.record,
		Repo:   refs.repo,
		Branch: branch,
		Mode:   string(t.Mode),
		User:   t.User,
	}
}

func (d Deps) token() string {
	return d.Config.GitHub.Token
}

// unimplemented is the orchestrator for declared modes without a workflow.
type unimplemented struct {
	mode task.Mode
}

func (u unimplemented) Run(context.Context, task.Task, *Tracker) error {
	return taskerr.New(taskerr.KindNotImplemented, string(u.mode), fmt.Errorf("%w: %s", taskerr.ErrNotImplemented, u.mode))
}

// NewUnimplemented returns an orchestrator that fails every task of mode with
// a not-implemented error.
func NewUnimplemented(mode task.Mode) Orchestrator {
	return unimplemented{mode: mode}
}
