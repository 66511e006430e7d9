package modes

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/forager/internal/core/task"
	"github.com/colonyops/forager/internal/core/taskerr"
)

type recordingOrchestrator struct {
	ran []task.Task
}

func (r *recordingOrchestrator) Run(_ context.Context, t task.Task, _ *Tracker) error {
	r.ran = append(r.ran, t)
	return nil
}

func TestNewRegistry_RequiresEveryMode(t *testing.T) {
	_, err := NewRegistry(map[task.Mode]Orchestrator{
		task.ModePlan: &recordingOrchestrator{},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quickfix")
	assert.Contains(t, err.Error(), "plan-approval")
	assert.Contains(t, err.Error(), "refine")
	assert.NotContains(t, err.Error(), "plan,")
}

func TestDefaultRegistry(t *testing.T) {
	h := newHarness(t)

	r, err := Default(h.deps)
	require.NoError(t, err)

	err = r.Route(context.Background(), testTask(task.ModeRefine), NewTracker(zerolog.Nop()))
	assert.True(t, taskerr.Is(err, taskerr.KindNotImplemented))
}

func TestRegistry_Route(t *testing.T) {
	orchestrators := map[task.Mode]Orchestrator{}
	recorders := map[task.Mode]*recordingOrchestrator{}
	for _, m := range task.AllModes() {
		rec := &recordingOrchestrator{}
		orchestrators[m] = rec
		recorders[m] = rec
	}

	r, err := NewRegistry(orchestrators)
	require.NoError(t, err)

	require.NoError(t, r.Route(context.Background(), testTask(task.ModePlan), NewTracker(zerolog.Nop())))
	assert.Len(t, recorders[task.ModePlan].ran, 1)
	assert.Empty(t, recorders[task.ModeQuickFix].ran)

	err = r.Route(context.Background(), testTask("bogus"), NewTracker(zerolog.Nop()))
	require.Error(t, err)
	assert.True(t, taskerr.Is(err, taskerr.KindValidation))
}
