package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/forager/internal/forager"
	"github.com/colonyops/forager/internal/integration/rabbitmq"
	"github.com/colonyops/forager/internal/profiler"
)

type WorkerCmd struct {
	flags *Flags
	app   *forager.App

	slots     int
	debugAddr string
}

// NewWorkerCmd creates the queue consumer command.
func NewWorkerCmd(flags *Flags, app *forager.App) *WorkerCmd {
	return &WorkerCmd{flags: flags, app: app}
}

func (cmd *WorkerCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "worker",
		Usage:     "Consume tasks from the queue",
		UsageText: "forager worker [options]",
		Description: `Connects to RabbitMQ and processes tasks until interrupted.

On SIGINT or SIGTERM the worker stops taking new deliveries and gives in-flight
tasks worker.graceful_timeout to finish. Failed tasks are requeued unless they
are malformed or target an unimplemented mode.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "slots",
				Usage:       "concurrent tasks (overrides worker.slots)",
				Sources:     cli.EnvVars("FORAGER_WORKER_SLOTS"),
				Destination: &cmd.slots,
			},
			&cli.StringFlag{
				Name:        "debug-addr",
				Usage:       "serve pprof and /healthz on this address (e.g. localhost:6060); disabled when empty",
				Sources:     cli.EnvVars("FORAGER_DEBUG_ADDR"),
				Destination: &cmd.debugAddr,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *WorkerCmd) run(ctx context.Context, _ *cli.Command) error {
	cfg := cmd.app.Config
	log := cmd.app.Logger

	slots := cfg.Worker.Slots
	if cmd.slots > 0 {
		slots = cmd.slots
	}

	prefetch := cfg.Queue.Prefetch
	if prefetch < slots {
		prefetch = slots
	}

	src, err := rabbitmq.Dial(log, rabbitmq.Config{
		URL:      cfg.Queue.URL,
		Queue:    cfg.Queue.Name,
		Prefetch: prefetch,
	})
	if err != nil {
		return fmt.Errorf("connect to task queue: %w", err)
	}
	defer func() { _ = src.Close() }()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := forager.NewPool(log, cmd.app.Dispatcher(), slots, cfg.Worker.GracefulTimeout)

	if cmd.debugAddr != "" {
		debug := profiler.New(log, cmd.debugAddr, func() any { return pool.Stats() })
		if err := debug.Start(ctx); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := debug.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("debug server shutdown")
			}
		}()
	}

	log.Info().Int("slots", slots).Str("queue", cfg.Queue.Name).Msg("worker started")

	if err := pool.Run(ctx, src); err != nil {
		return err
	}

	log.Info().Msg("worker stopped")
	return nil
}
