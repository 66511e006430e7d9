package modes

import (
	"context"

	"github.com/colonyops/forager/internal/core/host"
	"github.com/colonyops/forager/internal/core/task"
)

// Plan asks the plan backend for an implementation plan and proposes it as a
// draft pull request on an empty branch.
type Plan struct {
	deps Deps
}

// NewPlan creates the plan orchestrator.
func NewPlan(deps Deps) *Plan {
	return &Plan{deps: deps}
}

func (p *Plan) Run(ctx context.Context, t task.Task, tr *Tracker) error {
	d := p.deps
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

	doc, err := d.Assembler.Build(ctx, ws.Path, refs.repo.Name, refs.record)
	if err != nil {
		return err
	}
	tr.Enter(StateContextBuilt)

	plan, err := gw.GeneratePlan(ctx, doc.Text, refs.record)
	if err != nil {
		return err
	}
	tr.Enter(StateGenerated)

	branch := t.BranchName(cfg.Git.BranchPrefix)
	data := d.messageData(t, refs, branch)
	data.Plan = plan

	// Everything published is rendered before the branch leaves the workspace.
	msg, err := render("plan_commit", cfg.Templates.PlanCommit, data)
	if err != nil {
		return err
	}
	text, err := renderPullRequest("plan", cfg.Templates.PlanPRTitle, cfg.Templates.PlanPRBody, cfg.Templates.PlanComment, data)
	if err != nil {
		return err
	}

	if err := d.Workspaces.CreateBranch(ctx, ws.Path, branch); err != nil {
		return err
	}
	tr.SetBranch(branch)
	tr.Enter(StateBranched)

	if err := d.Workspaces.Commit(ctx, ws.Path, msg, true); err != nil {
		return err
	}
	tr.Enter(StateCommitted)

	if err := d.Workspaces.Push(ctx, ws.Path, branch); err != nil {
		return err
	}
	tr.Enter(StatePushed)

	pr, err := d.Host.CreatePullRequest(ctx, refs.repo, host.NewPullRequest{
		Title: text.title,
		Body:  text.body,
		Head:  branch,
		Base:  refs.repo.DefaultBranch,
		Draft: true,
	})
	if err != nil {
		return err
	}
	tr.SetPullRequestURL(pr.URL)
	tr.Enter(StatePRCreated)
	log.Info().Ctx(ctx).Int("pr", pr.Number).Str("url", pr.URL).Msg("draft pull request opened")

	data.PullRequest = pr
	comment, err := render("plan_comment", cfg.Templates.PlanComment, data)
	if err != nil {
		return err
	}
	if err := d.annotate(ctx, refs.issue, comment, cfg.Labels.Plan); err != nil {
		return err
	}
	tr.Enter(StateAnnotated)

	return nil
}
