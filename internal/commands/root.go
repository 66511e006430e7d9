package commands

import (
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/forager/internal/core/styles"
	"github.com/colonyops/forager/internal/forager"
)

// NewRoot builds the command tree. app is populated by the caller's Before
// hook; commands only dereference it inside their actions.
func NewRoot(flags *Flags, app *forager.App) *cli.Command {
	root := &cli.Command{
		Name:      "forager",
		Usage:     "Turn tracked issues into plans and pull requests",
		UsageText: "forager [global options] command [command options]",
		Description: `Forager consumes issue tasks from a queue, clones the repository into an
isolated workspace, and either drafts an implementation plan with an LLM or
lets a code agent apply a quick fix. Results land as pull requests and issue
comments.

Run 'forager worker' to consume the task queue.
Run 'forager run' to process a single task in the foreground.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("FORAGER_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to a JSON log file (defaults to console output on stderr)",
				Sources:     cli.EnvVars("FORAGER_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("FORAGER_CONFIG"),
				Value:       DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("FORAGER_DATA_DIR"),
				Value:       DefaultDataDir(),
				Destination: &flags.DataDir,
			},
			&cli.StringFlag{
				Name:        "theme",
				Usage:       "color theme for terminal output (" + strings.Join(styles.ThemeNames(), ", ") + ")",
				Sources:     cli.EnvVars("FORAGER_THEME"),
				Value:       styles.DefaultTheme,
				Destination: &flags.Theme,
			},
			&cli.StringFlag{
				Name:        "github-token",
				Usage:       "token for cloning, pushing and the GitHub API",
				Sources:     cli.EnvVars("FORAGER_GITHUB_TOKEN", "GITHUB_TOKEN"),
				Destination: &flags.GitHubToken,
			},
			&cli.StringFlag{
				Name:        "llm-api-key",
				Usage:       "API key for the plan backend",
				Sources:     cli.EnvVars("FORAGER_LLM_API_KEY", "GEMINI_API_KEY"),
				Destination: &flags.LLMAPIKey,
			},
		},
	}

	root = NewWorkerCmd(flags, app).Register(root)
	root = NewRunCmd(flags, app).Register(root)
	root = NewContextCmd(flags, app).Register(root)
	root = NewHistoryCmd(flags, app).Register(root)
	root = NewDoctorCmd(flags, app).Register(root)
	root = NewConfigValidateCmd(flags).Register(root)

	return root
}
