// Package forager wires the worker: process-wide dependencies, the task
// dispatcher and the slot pool that feeds it.
package forager

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/colonyops/forager/internal/core/config"
	"github.com/colonyops/forager/internal/core/git"
	"github.com/colonyops/forager/internal/core/history"
	"github.com/colonyops/forager/internal/data/db"
	"github.com/colonyops/forager/internal/data/stores"
	"github.com/colonyops/forager/internal/forager/contextdoc"
	"github.com/colonyops/forager/internal/forager/generation"
	"github.com/colonyops/forager/internal/forager/modes"
	"github.com/colonyops/forager/internal/forager/workspace"
	"github.com/colonyops/forager/internal/integration/github"
	"github.com/colonyops/forager/pkg/executil"
)

// App is the central entry point for all forager operations. Commands consume
// App instead of cherry-picking raw dependencies.
type App struct {
	Config     *config.Config
	Logger     zerolog.Logger
	DB         *db.DB
	Runs       history.Store
	Workspaces *workspace.Manager
	Assembler  *contextdoc.Assembler
	Registry   *modes.Registry
}

// NewApp builds every dependency from cfg. The returned App must be closed.
func NewApp(log zerolog.Logger, cfg *config.Config) (*App, error) {
	dbOpts := db.DefaultOpenOptions()
	dbOpts.Logger = log
	database, err := stores.OpenWithRecovery(cfg.DatabasePath(), dbOpts)
	if err != nil {
		return nil, fmt.Errorf("open run history: %w", err)
	}

	exec := &executil.RealExecutor{}
	gitExec := git.NewExecutor(cfg.Git.Path, exec, executil.PassEnv(cfg.Git.Env...))

	workspaces := workspace.NewManager(log, gitExec, workspace.Options{
		Root:         cfg.WorkspaceRoot(),
		CloneDepth:   cfg.Git.CloneDepth,
		CloneTimeout: cfg.Git.CloneTimeout,
		PushTimeout:  cfg.Git.PushTimeout,
		Remote:       cfg.Git.Remote,
		AuthHost:     cfg.GitHub.AuthHost,
		AuthorName:   cfg.Git.AuthorName,
		AuthorEmail:  cfg.Git.AuthorEmail,
		Ignore:       cfg.Context.Ignore,
	})

	assembler := contextdoc.NewAssembler(log, workspaces, contextdoc.Options{
		MaxFiles:    cfg.Context.MaxFiles,
		MaxLines:    cfg.Context.MaxLines,
		SampleBytes: cfg.Context.SampleBytes,
		TreeDepth:   cfg.Context.TreeDepth,
		Ignore:      cfg.Context.Ignore,
	})

	gh, err := github.New(log, github.Options{Token: cfg.GitHub.Token, APIURL: cfg.GitHub.APIURL})
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("create github client: %w", err)
	}

	registry, err := modes.Default(modes.Deps{
		Host:       gh,
		Workspaces: workspaces,
		Assembler:  assembler,
		Generators: generation.NewFactory(log, cfg.LLM, cfg.CodeAgent, exec),
		Config:     cfg,
		Logger:     log,
	})
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	return &App{
		Config:     cfg,
		Logger:     log,
		DB:         database,
		Runs:       stores.NewRunStore(database),
		Workspaces: workspaces,
		Assembler:  assembler,
		Registry:   registry,
	}, nil
}

// Dispatcher returns a dispatcher over the app's registry and run history.
func (a *App) Dispatcher() *Dispatcher {
	return NewDispatcher(a.Logger, a.Registry, a.Runs)
}

// Close releases the database and removes any workspace still owned by this
// process.
func (a *App) Close() error {
	var errs []error
	for _, id := range a.Workspaces.Live() {
		a.Workspaces.Cleanup(id)
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
