package generation

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/colonyops/forager/internal/core/config"
	"github.com/colonyops/forager/pkg/executil"
	"github.com/colonyops/forager/pkg/tmpl"
)

// CodeAgent runs an external code-modification tool, aider by default, in a
// workspace. The environment is built only from the configured passthrough
// names and explicit pairs.
type CodeAgent struct {
	cfg  config.CodeAgentConfig
	exec executil.Executor
}

// NewCodeAgent creates a CodeAgent.
func NewCodeAgent(cfg config.CodeAgentConfig, exec executil.Executor) *CodeAgent {
	return &CodeAgent{cfg: cfg, exec: exec}
}

// Command builds the invocation for one run without executing it.
func (a *CodeAgent) Command(dir, prompt string, issue int) (executil.Command, error) {
	data := config.CodeAgentTemplateData{
		Model:     a.cfg.Model,
		Workspace: dir,
		Issue:     issue,
	}

	args := make([]string, 0, len(a.cfg.Args)+2)
	for i, raw := range a.cfg.Args {
		arg, err := tmpl.Render(raw, data)
		if err != nil {
			return executil.Command{}, fmt.Errorf("render code_agent.args[%d]: %w", i, err)
		}
		args = append(args, arg)
	}
	args = append(args, "--message", prompt)

	return executil.Command{
		Name:    a.cfg.Command,
		Args:    args,
		Dir:     dir,
		Env:     a.env(),
		Timeout: a.cfg.Timeout,
	}, nil
}

func (a *CodeAgent) Run(ctx context.Context, dir, prompt string, issue int) error {
	cmd, err := a.Command(dir, prompt, issue)
	if err != nil {
		return err
	}

	if _, err := a.exec.Exec(ctx, cmd); err != nil {
		return fmt.Errorf("run %s: %w", a.cfg.Command, err)
	}
	return nil
}

// env merges passthrough variables with explicit pairs. Explicit values win.
func (a *CodeAgent) env() []string {
	env := make([]string, 0, len(a.cfg.EnvPassthrough)+len(a.cfg.Env))
	for _, kv := range executil.PassEnv(a.cfg.EnvPassthrough...) {
		name, _, _ := strings.Cut(kv, "=")
		if _, ok := a.cfg.Env[name]; ok {
			continue
		}
		env = append(env, kv)
	}

	for _, name := range slices.Sorted(maps.Keys(a.cfg.Env)) {
		env = append(env, name+"="+a.cfg.Env[name])
	}
	return env
}
