package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/forager/internal/core/host"
	"github.com/colonyops/forager/internal/forager"
)

type ContextCmd struct {
	flags *Flags
	app   *forager.App

	dir     string
	title   string
	body    string
	verbose bool
}

// NewContextCmd creates the context preview command.
func NewContextCmd(flags *Flags, app *forager.App) *ContextCmd {
	return &ContextCmd{flags: flags, app: app}
}

func (cmd *ContextCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "context",
		Usage:     "Print the context document for a local checkout",
		UsageText: "forager context [--dir <path>] --title <title> [--body <body>]",
		Description: `Builds the same context document the plan backend receives, against a local
directory instead of a fresh clone. Useful for tuning context.* settings.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "dir",
				Aliases:     []string{"d"},
				Usage:       "repository root",
				Value:       ".",
				Destination: &cmd.dir,
			},
			&cli.StringFlag{
				Name:        "title",
				Usage:       "issue title used for keyword extraction",
				Required:    true,
				Destination: &cmd.title,
			},
			&cli.StringFlag{
				Name:        "body",
				Usage:       "issue body",
				Destination: &cmd.body,
			},
			&cli.BoolFlag{
				Name:        "verbose",
				Aliases:     []string{"v"},
				Usage:       "list keywords and file scores on stderr",
				Destination: &cmd.verbose,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *ContextCmd) run(ctx context.Context, c *cli.Command) error {
	root, err := filepath.Abs(cmd.dir)
	if err != nil {
		return fmt.Errorf("resolve dir: %w", err)
	}

	doc, err := cmd.app.Assembler.Build(ctx, root, filepath.Base(root), host.IssueRecord{
		Title: cmd.title,
		Body:  cmd.body,
	})
	if err != nil {
		return err
	}

	if cmd.verbose {
		_, _ = fmt.Fprintf(os.Stderr, "keywords: %s\n", strings.Join(doc.Keywords, ", "))
		for _, f := range doc.Files {
			_, _ = fmt.Fprintf(os.Stderr, "  %3d  %s\n", f.Score, f.Path)
		}
	}

	_, err = fmt.Fprint(c.Root().Writer, doc.Text)
	return err
}
