package modes

import (
	"context"
	"errors"

	"github.com/colonyops/forager/internal/core/host"
	"github.com/colonyops/forager/internal/core/task"
	"github.com/colonyops/forager/internal/core/taskerr"
)

// QuickFix lets the code agent change the repository directly and opens a
// ready-for-review pull request with the result.
type QuickFix struct {
	deps Deps
}

// NewQuickFix creates the quick-fix orchestrator.
func NewQuickFix(deps Deps) *QuickFix {
	return &QuickFix{deps: deps}
}

func (q *QuickFix) Run(ctx context.Context, t task.Task, tr *Tracker) error {
	d := q.deps
	cfg := d.Config
	log := d.Logger

	gw, err := d.Generators.New(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = gw.Close() }()

	ws, err := d.Workspaces.Acquire(ctx, t.RepoURL, t.WorkspaceID(), d.token())
	if err != nil {
		return err
	}
	defer ws.Release()
	tr.Enter(StateCloned)

	refs, err := d.fetchIssue(ctx, t)
	if err != nil {
		return err
	}
	tr.Enter(StateIssueFetched)
	log.Info().Ctx(ctx).Str("title", refs.record.Title).Msg("issue fetched")

	branch := t.BranchName(cfg.Git.BranchPrefix)
	data := d.messageData(t, refs, branch)

	msg, err := render("quickfix_commit", cfg.Templates.QuickFixCommit, data)
	if err != nil {
		return err
	}

	if err := d.Workspaces.CreateBranch(ctx, ws.Path, branch); err != nil {
		return err
	}
	tr.SetBranch(branch)
	tr.Enter(StateBranched)

	// The agent may commit on its own, so identity must be set before it runs.
	if err := d.Workspaces.ConfigureIdentity(ctx, ws.Path); err != nil {
		return err
	}
	base, err := d.Workspaces.HeadRevision(ctx, ws.Path)
	if err != nil {
		return err
	}

	if err := gw.GenerateCode(ctx, refs.record, ws.Path); err != nil {
		return err
	}
	tr.Enter(StateGenerated)

	changes, err := d.Workspaces.Changes(ctx, ws.Path, base)
	if err != nil {
		return err
	}
	if changes.Dirty {
		err = d.Workspaces.Commit(ctx, ws.Path, msg, false)
		switch {
		case errors.Is(err, taskerr.ErrNothingToCommit):
			// Only ignored files changed.
		case err != nil:
			return err
		default:
			tr.Enter(StateCommitted)
		}

		if changes, err = d.Workspaces.Changes(ctx, ws.Path, base); err != nil {
			return err
		}
	}

	if changes.Commits == 0 {
		return taskerr.New(taskerr.KindGeneration, "quickfix", taskerr.ErrNoChanges)
	}
	log.Info().Ctx(ctx).Int("commits", changes.Commits).Int("files", len(changes.Files)).Msg("changes ready")

	data.Changes = changes.Files
	text, err := renderPullRequest("quickfix", cfg.Templates.QuickFixPRTitle, cfg.Templates.QuickFixPRBody, cfg.Templates.QuickFixComment, data)
	if err != nil {
		return err
	}

	if err := d.Workspaces.Push(ctx, ws.Path, branch); err != nil {
		return err
	}
	tr.Enter(StatePushed)

	pr, err := d.Host.CreatePullRequest(ctx, refs.repo, host.NewPullRequest{
		Title: text.title,
		Body:  text.body,
		Head:  branch,
		Base:  refs.repo.DefaultBranch,
		Draft: false,
	})
	if err != nil {
		return err
	}
	tr.SetPullRequestURL(pr.URL)
	tr.Enter(StatePRCreated)
	log.Info().Ctx(ctx).Int("pr", pr.Number).Str("url", pr.URL).Msg("pull request opened")

	data.PullRequest = pr
	comment, err := render("quickfix_comment", cfg.Templates.QuickFixComment, data)
	if err != nil {
		return err
	}
	if err := d.annotate(ctx, refs.issue, comment, cfg.Labels.QuickFix); err != nil {
		return err
	}
	tr.Enter(StateAnnotated)

	return nil
}
