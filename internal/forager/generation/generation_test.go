package generation

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/forager/internal/core/config"
	"github.com/colonyops/forager/internal/core/host"
	"github.com/colonyops/forager/internal/core/taskerr"
	"github.com/colonyops/forager/pkg/executil"
)

type fakePlan struct {
	answer string
	err    error
	block  bool
	prompt string
	closed int
}

func (f *fakePlan) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.answer, f.err
}

func (f *fakePlan) Close() error {
	f.closed++
	return nil
}

type fakeCode struct {
	err    error
	dir    string
	prompt string
	issue  int
}

func (f *fakeCode) Run(_ context.Context, dir, prompt string, issue int) error {
	f.dir, f.prompt, f.issue = dir, prompt, issue
	return f.err
}

var testIssue = host.IssueRecord{Number: 7, Title: "Login button broken", Body: "Nothing happens on click."}

func newTestGateway(plan PlanBackend, code CodeBackend, timeout time.Duration) *Gateway {
	return NewGateway(zerolog.New(io.Discard), plan, code, timeout)
}

func TestGateway_GeneratePlan(t *testing.T) {
	plan := &fakePlan{answer: "## Summary\nDo the thing.\n"}
	g := newTestGateway(plan, &fakeCode{}, time.Second)

	got, err := g.GeneratePlan(context.Background(), "# Issue Information\nCONTEXT-DOC", testIssue)
	require.NoError(t, err)
	assert.Equal(t, plan.answer, got)

	assert.Contains(t, plan.prompt, "CONTEXT-DOC")
	assert.Contains(t, plan.prompt, "issue #7: Login button broken")
	for _, section := range []string{"Summary", "Files to Modify", "Implementation Steps", "Potential Risks", "Testing Strategy"} {
		assert.Contains(t, plan.prompt, "**"+section+"**")
	}
}

func TestGateway_GeneratePlanFailures(t *testing.T) {
	tests := []struct {
		name    string
		plan    *fakePlan
		timeout time.Duration
		msg     string
	}{
		{name: "empty answer", plan: &fakePlan{answer: "  \n"}, timeout: time.Second, msg: "empty plan"},
		{name: "transport error", plan: &fakePlan{err: errors.New("connection refused")}, timeout: time.Second, msg: "connection refused"},
		{name: "timeout", plan: &fakePlan{block: true}, timeout: 20 * time.Millisecond, msg: "timed out"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGateway(tt.plan, &fakeCode{}, tt.timeout)

			_, err := g.GeneratePlan(context.Background(), "doc", testIssue)
			require.Error(t, err)
			assert.True(t, taskerr.Is(err, taskerr.KindGeneration))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestGateway_GenerateCode(t *testing.T) {
	code := &fakeCode{}
	g := newTestGateway(&fakePlan{}, code, time.Second)

	require.NoError(t, g.GenerateCode(context.Background(), testIssue, "/work/ws"))
	assert.Equal(t, "/work/ws", code.dir)
	assert.Equal(t, 7, code.issue)
	assert.Contains(t, code.prompt, "issue #7: Login button broken")
	assert.Contains(t, code.prompt, "Nothing happens on click.")
	assert.Contains(t, code.prompt, "**Guidelines:**")
}

func TestGateway_GenerateCodeExitError(t *testing.T) {
	code := &fakeCode{err: &executil.ExitError{Name: "aider", Code: 2, Stderr: "model not found"}}
	g := newTestGateway(&fakePlan{}, code, time.Second)

	err := g.GenerateCode(context.Background(), testIssue, "/work/ws")
	require.Error(t, err)
	assert.True(t, taskerr.Is(err, taskerr.KindGeneration))
	assert.Equal(t, 2, executil.ExitCode(err))
	assert.Contains(t, err.Error(), "model not found")
}

func TestGateway_GenerateCodeTimeout(t *testing.T) {
	code := &fakeCode{err: executil.ErrTimeout}
	g := newTestGateway(&fakePlan{}, code, time.Second)

	err := g.GenerateCode(context.Background(), testIssue, "/work/ws")
	require.ErrorIs(t, err, executil.ErrTimeout)
	assert.True(t, taskerr.Is(err, taskerr.KindGeneration))
}

func TestGateway_CloseOnce(t *testing.T) {
	plan := &fakePlan{}
	g := newTestGateway(plan, &fakeCode{}, time.Second)

	require.NoError(t, g.Close())
	require.NoError(t, g.Close())
	assert.Equal(t, 1, plan.closed)
}

func TestFactory_New(t *testing.T) {
	cfg := config.DefaultConfig()

	t.Run("ollama", func(t *testing.T) {
		f := NewFactory(zerolog.New(io.Discard), cfg.LLM, cfg.CodeAgent, &executil.RecordingExecutor{})
		g, err := f.New(context.Background())
		require.NoError(t, err)
		require.NoError(t, g.Close())
	})

	t.Run("gemini without key", func(t *testing.T) {
		llm := cfg.LLM
		llm.Provider = config.ProviderGemini
		f := NewFactory(zerolog.New(io.Discard), llm, cfg.CodeAgent, &executil.RecordingExecutor{})

		_, err := f.New(context.Background())
		require.Error(t, err)
		assert.True(t, taskerr.Is(err, taskerr.KindGeneration))
	})

	t.Run("unknown provider", func(t *testing.T) {
		llm := cfg.LLM
		llm.Provider = "openai"
		f := NewFactory(zerolog.New(io.Discard), llm, cfg.CodeAgent, &executil.RecordingExecutor{})

		_, err := f.New(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown llm provider "openai"`)
	})
}
