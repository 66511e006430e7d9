package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/forager/internal/core/history"
	"github.com/colonyops/forager/internal/core/queue"
	"github.com/colonyops/forager/internal/core/styles"
	"github.com/colonyops/forager/internal/core/task"
	"github.com/colonyops/forager/internal/forager"
	"github.com/colonyops/forager/pkg/iojson"
)

type RunCmd struct {
	flags *Flags
	app   *forager.App

	repo  string
	issue int
	mode  string
	user  string
	input iojson.FileReader[json.RawMessage]
}

// NewRunCmd creates the single-task command.
func NewRunCmd(flags *Flags, app *forager.App) *RunCmd {
	return &RunCmd{
		flags: flags,
		app:   app,
		input: iojson.FileReader[json.RawMessage]{MaxBytes: queue.MaxBodySize},
	}
}

func (cmd *RunCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "run",
		Usage:     "Process one task in the foreground",
		UsageText: "forager run --repo <url> --issue <n> --mode <mode> --user <login>\n   forager run -f task.json",
		Description: `Runs a single task through the same dispatcher the worker uses, without a
queue. The task comes from flags, or as queue JSON from --file or stdin when
--repo is not given:

  {"repo_url": "https://github.com/acme/widgets", "issue_id": 7, "mode": "plan", "user": "octocat"}

The run is recorded in the history like any other.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "repo",
				Usage:       "repository URL",
				Destination: &cmd.repo,
			},
			&cli.IntFlag{
				Name:        "issue",
				Usage:       "issue number",
				Destination: &cmd.issue,
			},
			&cli.StringFlag{
				Name:        "mode",
				Usage:       "task mode (quickfix, plan, plan-approval, refine)",
				Value:       string(task.ModePlan),
				Destination: &cmd.mode,
			},
			&cli.StringFlag{
				Name:        "user",
				Usage:       "login of the requesting user",
				Destination: &cmd.user,
			},
			cmd.input.Flag(),
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *RunCmd) run(ctx context.Context, c *cli.Command) error {
	body, err := cmd.body()
	if err != nil {
		return err
	}

	deliveryID := uuid.NewString()
	src := queue.NewStatic()
	src.Add(deliveryID, body)

	pool := forager.NewPool(cmd.app.Logger, cmd.app.Dispatcher(), 1, cmd.app.Config.Worker.GracefulTimeout)
	if err := pool.Run(ctx, src); err != nil {
		return err
	}

	run, found := cmd.findRun(ctx, deliveryID)
	outcome := src.Outcomes()[0]

	w := c.Root().Writer
	if found {
		printRun(w, run)
	}

	if outcome != queue.OutcomeAcked {
		if !found {
			_, _ = fmt.Fprintln(os.Stderr, styles.TextErrorStyle.Render("task rejected, see log for details"))
		}
		return cli.Exit("", 1)
	}
	return nil
}

func (cmd *RunCmd) body() ([]byte, error) {
	if cmd.repo == "" {
		raw, err := cmd.input.Read()
		if err != nil {
			return nil, fmt.Errorf("read task: %w", err)
		}
		return raw, nil
	}

	t := task.Task{
		RepoURL: cmd.repo,
		Issue:   cmd.issue,
		Mode:    task.Mode(cmd.mode),
		User:    cmd.user,
	}
	return t.Marshal()
}

func (cmd *RunCmd) findRun(ctx context.Context, deliveryID string) (history.Run, bool) {
	runs, err := cmd.app.Runs.List(ctx, 20)
	if err != nil {
		return history.Run{}, false
	}
	for _, r := range runs {
		if r.DeliveryID == deliveryID {
			return r, true
		}
	}
	return history.Run{}, false
}
