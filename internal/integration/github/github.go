// Package github implements host.Host against the GitHub REST API.
package github

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	gh "github.com/google/go-github/v66/github"
	"github.com/rs/zerolog"

	"github.com/colonyops/forager/internal/core/git"
	"github.com/colonyops/forager/internal/core/host"
	"github.com/colonyops/forager/internal/core/taskerr"
	"github.com/colonyops/forager/pkg/kv"
)

// fallbackBranch is used when the API reports no default branch.
const fallbackBranch = "main"

// Options configures the client.
type Options struct {
	Token string
	// APIURL is the GitHub Enterprise API base. Empty means api.github.com.
	APIURL     string
	HTTPClient *http.Client
}

// Client is a host.Host backed by go-github. Every error it returns is
// classified as taskerr.KindHostAPI.
type Client struct {
	log    zerolog.Logger
	gh     *gh.Client
	repos  *kv.Store[string, host.Repository]
	issues *kv.Store[string, *gh.Issue]
}

var _ host.Host = (*Client)(nil)

// New creates a Client.
func New(log zerolog.Logger, opts Options) (*Client, error) {
	client := gh.NewClient(opts.HTTPClient)
	if opts.Token != "" {
		client = client.WithAuthToken(opts.Token)
	}
	if opts.APIURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(opts.APIURL, opts.APIURL)
		if err != nil {
			return nil, fmt.Errorf("github api url: %w", err)
		}
	}

	return &Client{
		log:    log.With().Str("component", "github").Logger(),
		gh:     client,
		repos:  kv.New[string, host.Repository](),
		issues: kv.New[string, *gh.Issue](),
	}, nil
}

func (c *Client) GetRepository(ctx context.Context, url string) (host.Repository, error) {
	const op = "get repository"

	owner, name := git.ExtractOwnerRepo(url)
	if owner == "" || name == "" {
		return host.Repository{}, taskerr.Newf(taskerr.KindHostAPI, op, "cannot derive owner/repo from %q", git.Redact(url))
	}

	key := owner + "/" + name
	if repo, ok := c.repos.Get(key); ok {
		return repo, nil
	}

	c.log.Debug().Ctx(ctx).Str("repo", key).Msg("fetching repository")

	r, _, err := c.gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		return host.Repository{}, c.fail(ctx, op, key, err)
	}

	repo := host.Repository{
		Owner:         r.GetOwner().GetLogin(),
		Name:          r.GetName(),
		URL:           r.GetHTMLURL(),
		DefaultBranch: r.GetDefaultBranch(),
	}
	if repo.Owner == "" {
		repo.Owner = owner
	}
	if repo.Name == "" {
		repo.Name = name
	}
	if repo.DefaultBranch == "" {
		repo.DefaultBranch = fallbackBranch
	}

	c.repos.Set(key, repo)
	return repo, nil
}

func (c *Client) GetIssue(ctx context.Context, repo host.Repository, number int) (host.Issue, error) {
	const op = "get issue"

	c.log.Debug().Ctx(ctx).Str("repo", repo.FullName()).Int("issue", number).Msg("fetching issue")

	issue, _, err := c.gh.Issues.Get(ctx, repo.Owner, repo.Name, number)
	if err != nil {
		return host.Issue{}, c.fail(ctx, op, issueKey(repo, number), err)
	}
	if issue.IsPullRequest() {
		return host.Issue{}, taskerr.Newf(taskerr.KindHostAPI, op, "%s is a pull request, not an issue", issueKey(repo, number))
	}

	c.issues.Set(issueKey(repo, number), issue)
	return host.Issue{Repo: repo, Number: number}, nil
}

func (c *Client) GetIssueData(ctx context.Context, issue host.Issue) (host.IssueRecord, error) {
	key := issueKey(issue.Repo, issue.Number)

	// The snapshot from GetIssue is used once so later tasks see fresh data.
	raw, ok := c.issues.Get(key)
	c.issues.Delete(key)
	if !ok {
		var err error
		raw, _, err = c.gh.Issues.Get(ctx, issue.Repo.Owner, issue.Repo.Name, issue.Number)
		if err != nil {
			return host.IssueRecord{}, c.fail(ctx, "get issue data", key, err)
		}
	}

	labels := make([]string, 0, len(raw.Labels))
	for _, l := range raw.Labels {
		labels = append(labels, l.GetName())
	}

	return host.IssueRecord{
		Number:        raw.GetNumber(),
		Title:         raw.GetTitle(),
		Body:          raw.GetBody(),
		State:         raw.GetState(),
		Labels:        labels,
		Author:        raw.GetUser().GetLogin(),
		CreatedAt:     raw.GetCreatedAt().Time,
		UpdatedAt:     raw.GetUpdatedAt().Time,
		CommentsCount: raw.GetComments(),
		URL:           raw.GetHTMLURL(),
	}, nil
}

func (c *Client) CreatePullRequest(ctx context.Context, repo host.Repository, pr host.NewPullRequest) (host.PullRequest, error) {
	c.log.Info().Ctx(ctx).
		Str("repo", repo.FullName()).
		Str("head", pr.Head).
		Str("base", pr.Base).
		Bool("draft", pr.Draft).
		Msg("creating pull request")

	created, _, err := c.gh.PullRequests.Create(ctx, repo.Owner, repo.Name, &gh.NewPullRequest{
		Title: gh.String(pr.Title),
		Body:  gh.String(pr.Body),
		Head:  gh.String(pr.Head),
		Base:  gh.String(pr.Base),
		Draft: gh.Bool(pr.Draft),
	})
	if err != nil {
		return host.PullRequest{}, c.fail(ctx, "create pull request", repo.FullName(), err)
	}

	c.log.Info().Ctx(ctx).Int("pr", created.GetNumber()).Msg("pull request created")

	return host.PullRequest{
		Number: created.GetNumber(),
		URL:    created.GetHTMLURL(),
		Draft:  created.GetDraft(),
	}, nil
}

func (c *Client) AddIssueComment(ctx context.Context, issue host.Issue, body string) error {
	_, _, err := c.gh.Issues.CreateComment(ctx, issue.Repo.Owner, issue.Repo.Name, issue.Number, &gh.IssueComment{
		Body: gh.String(body),
	})
	if err != nil {
		return c.fail(ctx, "add issue comment", issueKey(issue.Repo, issue.Number), err)
	}
	return nil
}

func (c *Client) AddLabels(ctx context.Context, issue host.Issue, labels []string) error {
	if len(labels) == 0 {
		return nil
	}

	_, _, err := c.gh.Issues.AddLabelsToIssue(ctx, issue.Repo.Owner, issue.Repo.Name, issue.Number, labels)
	if err != nil {
		return c.fail(ctx, "add labels", issueKey(issue.Repo, issue.Number), err)
	}
	return nil
}

func (c *Client) fail(ctx context.Context, op, target string, err error) error {
	c.log.Error().Ctx(ctx).Err(err).Str("target", target).Msg(op + " failed")
	return taskerr.New(taskerr.KindHostAPI, op, fmt.Errorf("%s: %w", target, err))
}

func issueKey(repo host.Repository, number int) string {
	return repo.FullName() + "#" + strconv.Itoa(number)
}
