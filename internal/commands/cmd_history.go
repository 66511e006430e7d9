package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/forager/internal/core/history"
	"github.com/colonyops/forager/internal/core/styles"
	"github.com/colonyops/forager/internal/forager"
	"github.com/colonyops/forager/pkg/iojson"
)

type HistoryCmd struct {
	flags *Flags
	app   *forager.App

	limit  int
	format string
}

func NewHistoryCmd(flags *Flags, app *forager.App) *HistoryCmd {
	return &HistoryCmd{flags: flags, app: app}
}

func (cmd *HistoryCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "history",
		Usage:     "List recent task runs",
		UsageText: "forager history [options]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "limit",
				Aliases:     []string{"n"},
				Usage:       "number of runs to show (0 for all)",
				Value:       20,
				Destination: &cmd.limit,
			},
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json)",
				Value:       "text",
				Destination: &cmd.format,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *HistoryCmd) run(ctx context.Context, c *cli.Command) error {
	runs, err := cmd.app.Runs.List(ctx, cmd.limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	if cmd.format == "json" {
		if runs == nil {
			runs = []history.Run{}
		}
		return iojson.WriteWith(c.Root().Writer, os.Stderr, runs)
	}

	w := c.Root().Writer
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, styles.TextMutedStyle.Render("no runs recorded"))
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STARTED\tREPO\tISSUE\tMODE\tSTATE\tDURATION\tSTATUS")
	for _, r := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t#%d\t%s\t%s\t%s\t%s\n",
			r.StartedAt.Local().Format(time.DateTime),
			r.RepoURL,
			r.Issue,
			r.Mode,
			r.State,
			r.Duration().Round(time.Second),
			styles.StatusStyle(string(r.Status)).Render(string(r.Status)),
		)
	}
	return tw.Flush()
}

// printRun writes a short summary of a single run.
func printRun(w io.Writer, r history.Run) {
	status := styles.StatusStyle(string(r.Status)).Render(string(r.Status))
	_, _ = fmt.Fprintf(w, "%s %s #%d (%s) %s\n",
		status, r.RepoURL, r.Issue, r.Mode, styles.TextMutedStyle.Render(r.Duration().Round(time.Millisecond).String()))

	field := func(label, value string) {
		if value == "" {
			return
		}
		_, _ = fmt.Fprintf(w, "  %s %s\n", styles.TextMutedStyle.Render(label+":"), value)
	}
	field("state", r.State)
	field("branch", r.Branch)
	field("pull request", r.PullRequestURL)
	if r.Failed() {
		field("error", styles.TextErrorStyle.Render(fmt.Sprintf("[%s] %s", r.ErrorKind, r.Error)))
	}
}
