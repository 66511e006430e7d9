package generation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/forager/internal/core/config"
	"github.com/colonyops/forager/pkg/executil"
)

func TestCodeAgent_Command(t *testing.T) {
	t.Setenv("FORAGER_AGENT_PASS", "kept")
	t.Setenv("FORAGER_AGENT_SECRET", "never-passed")
	t.Setenv("PYTHONUNBUFFERED", "0")

	cfg := config.DefaultConfig().CodeAgent
	cfg.Model = "qwen2.5-coder"
	cfg.Timeout = 10 * time.Minute
	cfg.EnvPassthrough = []string{"FORAGER_AGENT_PASS", "PYTHONUNBUFFERED"}
	cfg.Env = map[string]string{"PYTHONUNBUFFERED": "1", "AIDER_ANALYTICS": "false"}

	cmd, err := NewCodeAgent(cfg, nil).Command("/work/ws", "fix it", 7)
	require.NoError(t, err)

	assert.Equal(t, "aider", cmd.Name)
	assert.Equal(t, []string{
		"--model", "openai/qwen2.5-coder", "--yes", "--no-detect-urls",
		"--message", "fix it",
	}, cmd.Args)
	assert.Equal(t, "/work/ws", cmd.Dir)
	assert.Equal(t, 10*time.Minute, cmd.Timeout)
	assert.Equal(t, []string{
		"FORAGER_AGENT_PASS=kept",
		"AIDER_ANALYTICS=false",
		"PYTHONUNBUFFERED=1",
	}, cmd.Env)
}

func TestCodeAgent_CommandTemplateError(t *testing.T) {
	cfg := config.DefaultConfig().CodeAgent
	cfg.Args = []string{"--model", "{{ .Nope }}"}

	_, err := NewCodeAgent(cfg, nil).Command("/work/ws", "fix it", 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code_agent.args[1]")
}

func TestCodeAgent_Run(t *testing.T) {
	rec := &executil.RecordingExecutor{}
	agent := NewCodeAgent(config.DefaultConfig().CodeAgent, rec)

	require.NoError(t, agent.Run(context.Background(), "/work/ws", "fix it", 7))

	cmds := rec.Recorded()
	require.Len(t, cmds, 1)
	assert.Equal(t, "aider", cmds[0].Name)
	assert.Equal(t, "/work/ws", cmds[0].Dir)
}

func TestCodeAgent_RunFailure(t *testing.T) {
	rec := &executil.RecordingExecutor{
		Errors: map[string]error{"aider": &executil.ExitError{Name: "aider", Code: 1, Stderr: "boom"}},
	}
	agent := NewCodeAgent(config.DefaultConfig().CodeAgent, rec)

	err := agent.Run(context.Background(), "/work/ws", "fix it", 7)
	require.Error(t, err)
	assert.Equal(t, 1, executil.ExitCode(err))
}
