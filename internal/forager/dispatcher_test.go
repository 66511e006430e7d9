package forager

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/forager/internal/core/history"
	"github.com/colonyops/forager/internal/core/logging"
	"github.com/colonyops/forager/internal/core/queue"
	"github.com/colonyops/forager/internal/core/task"
	"github.com/colonyops/forager/internal/core/taskerr"
	"github.com/colonyops/forager/internal/forager/modes"
)

func TestDispatch_Success(t *testing.T) {
	router := &fakeRouter{fn: func(_ context.Context, _ task.Task, tr *modes.Tracker) error {
		tr.Enter(modes.StateCloned)
		tr.SetBranch("agent/plan-issue-7")
		tr.Enter(modes.StateBranched)
		tr.SetPullRequestURL("https://github.com/acme/widgets/pull/12")
		tr.Enter(modes.StatePRCreated)
		return nil
	}}
	runs := newMemRuns()
	d := NewDispatcher(zerolog.Nop(), router, runs)

	src := queue.NewStatic()
	del := src.Add("delivery-1", []byte(planBody))

	require.NoError(t, d.Dispatch(context.Background(), del))
	assert.Equal(t, queue.OutcomeAcked, del.Outcome())

	require.Equal(t, 1, router.calls())
	got := router.tasks[0]
	assert.Equal(t, "delivery-1", got.DeliveryID)
	assert.Equal(t, task.ModePlan, got.Mode)
	assert.Equal(t, 7, got.Issue)

	fields, ok := logging.GetTask(router.ctxs[0])
	require.True(t, ok)
	assert.Equal(t, "delivery-1", fields.DeliveryID)
	assert.Equal(t, "bob", fields.User)

	run := runs.only()
	assert.Equal(t, history.StatusSucceeded, run.Status)
	assert.Equal(t, string(modes.StateDone), run.State)
	assert.Equal(t, "delivery-1", run.DeliveryID)
	assert.Equal(t, "agent/plan-issue-7", run.Branch)
	assert.Equal(t, "https://github.com/acme/widgets/pull/12", run.PullRequestURL)
	assert.NotNil(t, run.FinishedAt)
}

func TestDispatch_InvalidDeliveries(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty body", body: ""},
		{name: "not json", body: "not json"},
		{name: "unknown mode", body: `{"repo_url":"https://github.com/acme/widgets","issue_id":7,"mode":"bogus","user":"bob"}`},
		{name: "bad issue", body: `{"repo_url":"https://github.com/acme/widgets","issue_id":0,"mode":"plan","user":"bob"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := &fakeRouter{}
			runs := newMemRuns()
			d := NewDispatcher(zerolog.Nop(), router, runs)

			del := queue.NewStatic().Add("d", []byte(tt.body))
			err := d.Dispatch(context.Background(), del)

			require.Error(t, err)
			assert.True(t, taskerr.Is(err, taskerr.KindValidation), "got %v", err)
			assert.False(t, taskerr.Retryable(err))
			assert.Zero(t, router.calls(), "no orchestrator may run")
			assert.Empty(t, runs.runs)
			assert.Equal(t, queue.OutcomePending, del.Outcome(), "caller settles failures")
		})
	}
}

func TestDispatch_RouteFailure(t *testing.T) {
	boom := taskerr.New(taskerr.KindHostAPI, "get issue", errors.New("502 bad gateway"))
	router := &fakeRouter{fn: func(_ context.Context, _ task.Task, tr *modes.Tracker) error {
		tr.Enter(modes.StateCloned)
		return boom
	}}
	runs := newMemRuns()
	d := NewDispatcher(zerolog.Nop(), router, runs)

	del := queue.NewStatic().Add("d", []byte(planBody))
	err := d.Dispatch(context.Background(), del)

	require.ErrorIs(t, err, boom)
	assert.Equal(t, queue.OutcomePending, del.Outcome())

	run := runs.only()
	assert.Equal(t, history.StatusFailed, run.Status)
	assert.Equal(t, string(modes.StateCloned), run.State)
	assert.Equal(t, "host_api", run.ErrorKind)
	assert.Contains(t, run.Error, "502 bad gateway")
}

func TestDispatch_RecoversPanic(t *testing.T) {
	router := &fakeRouter{fn: func(context.Context, task.Task, *modes.Tracker) error {
		panic("nil map")
	}}
	runs := newMemRuns()
	d := NewDispatcher(zerolog.Nop(), router, runs)

	err := d.Dispatch(context.Background(), queue.NewStatic().Add("d", []byte(planBody)))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked: nil map")
	assert.True(t, taskerr.Is(err, taskerr.KindPanic))
	assert.False(t, taskerr.Retryable(err))
	assert.Equal(t, history.StatusFailed, runs.only().Status)
}

func TestDispatch_RecordsOutcomeAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	router := &fakeRouter{fn: func(ctx context.Context, _ task.Task, _ *modes.Tracker) error {
		cancel()
		return ctx.Err()
	}}
	runs := newMemRuns()
	d := NewDispatcher(zerolog.Nop(), router, runs)

	err := d.Dispatch(ctx, queue.NewStatic().Add("d", []byte(planBody)))

	require.ErrorIs(t, err, context.Canceled)
	run := runs.only()
	assert.Equal(t, history.StatusFailed, run.Status)
	assert.NotNil(t, run.FinishedAt)
}

func TestDispatch_WithoutHistory(t *testing.T) {
	d := NewDispatcher(zerolog.Nop(), &fakeRouter{}, nil)

	del := queue.NewStatic().Add("d", []byte(planBody))
	require.NoError(t, d.Dispatch(context.Background(), del))
	assert.Equal(t, queue.OutcomeAcked, del.Outcome())
}

func TestDispatch_RealRegistryUnimplemented(t *testing.T) {
	reg, err := modes.NewRegistry(map[task.Mode]modes.Orchestrator{
		task.ModeQuickFix:     modes.NewUnimplemented(task.ModeQuickFix),
		task.ModePlan:         modes.NewUnimplemented(task.ModePlan),
		task.ModePlanApproval: modes.NewUnimplemented(task.ModePlanApproval),
		task.ModeRefine:       modes.NewUnimplemented(task.ModeRefine),
	})
	require.NoError(t, err)

	runs := newMemRuns()
	d := NewDispatcher(zerolog.Nop(), reg, runs)

	err = d.Dispatch(context.Background(), queue.NewStatic().Add("d", []byte(planBody)))
	require.ErrorIs(t, err, taskerr.ErrNotImplemented)
	assert.False(t, taskerr.Retryable(err))
	assert.Equal(t, "not_implemented", runs.only().ErrorKind)
	assert.Equal(t, string(modes.StateReceived), runs.only().State)
}
