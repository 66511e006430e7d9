package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/forager/internal/commands"
	"github.com/colonyops/forager/internal/core/config"
	"github.com/colonyops/forager/internal/core/logging"
	"github.com/colonyops/forager/internal/core/styles"
	"github.com/colonyops/forager/internal/forager"
	"github.com/colonyops/forager/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, build() falls back
	// to runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx := context.Background()

	var (
		logCloser  func()
		foragerApp = &forager.App{}
	)

	flags := &commands.Flags{}

	app := commands.NewRoot(flags, foragerApp)
	app.Version = build()

	app.Before = func(ctx context.Context, c *cli.Command) (context.Context, error) {
		logger, closer, err := logutils.New(flags.LogLevel, flags.LogFile)
		if err != nil {
			return ctx, fmt.Errorf("setup logger: %w", err)
		}
		logger = logger.Hook(logging.ContextHook{})
		log.Logger = logger
		logCloser = closer

		palette, ok := styles.GetPalette(flags.Theme)
		if !ok {
			return ctx, fmt.Errorf("unknown theme %q", flags.Theme)
		}
		styles.SetTheme(palette)

		cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
		if err != nil {
			return ctx, fmt.Errorf("load config: %w", err)
		}
		cfg.ApplySecrets(flags.GitHubToken, flags.LLMAPIKey)
		flags.Config = cfg

		// config validate reports problems itself instead of failing to start.
		if c.Args().First() == "config" {
			return ctx, nil
		}

		built, err := forager.NewApp(logger, cfg)
		if err != nil {
			return ctx, err
		}

		// Commands already hold a pointer to the App.
		*foragerApp = *built

		return ctx, nil
	}

	app.After = func(ctx context.Context, c *cli.Command) error {
		var closeErr error
		if foragerApp.DB != nil {
			if closeErr = foragerApp.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("failed to close app")
			}
		}

		if logCloser != nil {
			logCloser()
		}
		return closeErr
	}

	exitCode := 0
	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		exitCode = 1
	}

	os.Exit(exitCode)
}
