// Package generation talks to the two generation capabilities a task uses: a
// plan backend that answers a single prompt with text, and a code agent that
// edits a workspace in place.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/forager/internal/core/config"
	"github.com/colonyops/forager/internal/core/host"
	"github.com/colonyops/forager/internal/core/taskerr"
	"github.com/colonyops/forager/pkg/executil"
)

// PlanBackend completes a prompt in a single, non-streamed request.
type PlanBackend interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Close() error
}

// CodeBackend modifies the checkout at dir according to prompt.
type CodeBackend interface {
	Run(ctx context.Context, dir, prompt string, issue int) error
}

// Gateway is the per-task handle on the generation backends.
type Gateway struct {
	log         zerolog.Logger
	plan        PlanBackend
	code        CodeBackend
	planTimeout time.Duration
	closeOnce   sync.Once
	closeErr    error
}

// NewGateway wires a Gateway from explicit backends.
func NewGateway(log zerolog.Logger, plan PlanBackend, code CodeBackend, planTimeout time.Duration) *Gateway {
	return &Gateway{
		log:         log.With().Str("component", "generation").Logger(),
		plan:        plan,
		code:        code,
		planTimeout: planTimeout,
	}
}

// GeneratePlan asks the plan backend for an implementation plan of issue,
// given the rendered context document. An empty answer is a failure.
func (g *Gateway) GeneratePlan(ctx context.Context, doc string, issue host.IssueRecord) (string, error) {
	const op = "generate plan"

	prompt, err := PlanPrompt(doc, issue)
	if err != nil {
		return "", taskerr.New(taskerr.KindGeneration, op, err)
	}

	if g.planTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.planTimeout)
		defer cancel()
	}

	start := time.Now()
	g.log.Info().Ctx(ctx).Int("prompt_bytes", len(prompt)).Msg("requesting plan")

	plan, err := g.plan.Complete(ctx, prompt)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", g.planTimeout, err)
		}
		return "", taskerr.New(taskerr.KindGeneration, op, err)
	}

	if strings.TrimSpace(plan) == "" {
		return "", taskerr.Newf(taskerr.KindGeneration, op, "backend returned an empty plan")
	}

	g.log.Info().Ctx(ctx).
		Int("plan_bytes", len(plan)).
		Dur("took", time.Since(start)).
		Msg("plan received")

	return plan, nil
}

// GenerateCode runs the code agent against the workspace at dir.
func (g *Gateway) GenerateCode(ctx context.Context, issue host.IssueRecord, dir string) error {
	const op = "generate code"

	prompt, err := CodePrompt(issue)
	if err != nil {
		return taskerr.New(taskerr.KindGeneration, op, err)
	}

	start := time.Now()
	g.log.Info().Ctx(ctx).Str("dir", dir).Msg("starting code agent")

	if err := g.code.Run(ctx, dir, prompt, issue.Number); err != nil {
		if errors.Is(err, executil.ErrTimeout) {
			err = fmt.Errorf("code agent timed out: %w", err)
		}
		g.log.Error().Ctx(ctx).Err(err).Int("exit_code", executil.ExitCode(err)).Msg("code agent failed")
		return taskerr.New(taskerr.KindGeneration, op, err)
	}

	g.log.Info().Ctx(ctx).Dur("took", time.Since(start)).Msg("code agent finished")
	return nil
}

// Close releases the plan backend. It is safe to call more than once.
func (g *Gateway) Close() error {
	g.closeOnce.Do(func() {
		if g.plan != nil {
			g.closeErr = g.plan.Close()
		}
	})
	return g.closeErr
}

// Factory builds one Gateway per task from configuration.
type Factory struct {
	log   zerolog.Logger
	llm   config.LLMConfig
	agent config.CodeAgentConfig
	exec  executil.Executor
}

// NewFactory creates a Factory.
func NewFactory(log zerolog.Logger, llm config.LLMConfig, agent config.CodeAgentConfig, exec executil.Executor) *Factory {
	return &Factory{log: log, llm: llm, agent: agent, exec: exec}
}

// New builds a Gateway for the configured provider. The caller must Close it.
func (f *Factory) New(ctx context.Context) (*Gateway, error) {
	plan, err := NewPlanBackend(ctx, f.llm)
	if err != nil {
		return nil, taskerr.New(taskerr.KindGeneration, "create plan backend", err)
	}

	code := NewCodeAgent(f.agent, f.exec)
	return NewGateway(f.log, plan, code, f.llm.Timeout), nil
}

// NewPlanBackend selects the backend named by cfg.Provider.
func NewPlanBackend(ctx context.Context, cfg config.LLMConfig) (PlanBackend, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		return NewOllama(cfg)
	case config.ProviderGemini:
		return NewGemini(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
