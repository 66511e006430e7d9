package forager

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/forager/internal/core/queue"
	"github.com/colonyops/forager/internal/core/task"
	"github.com/colonyops/forager/internal/core/taskerr"
	"github.com/colonyops/forager/internal/forager/modes"
)

func runPool(t *testing.T, ctx context.Context, p *Pool, src queue.Source) error {
	t.Helper()
	errc := make(chan error, 1)
	go func() { errc <- p.Run(ctx, src) }()

	select {
	case err := <-errc:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("pool did not stop")
		return nil
	}
}

func TestPool_SettlesEveryDelivery(t *testing.T) {
	router := &fakeRouter{fn: func(_ context.Context, tk task.Task, _ *modes.Tracker) error {
		switch tk.Issue {
		case 2:
			return taskerr.New(taskerr.KindHostAPI, "get issue", errors.New("rate limited"))
		case 3:
			return taskerr.New(taskerr.KindNotImplemented, "refine", taskerr.ErrNotImplemented)
		}
		return nil
	}}
	d := NewDispatcher(zerolog.Nop(), router, newMemRuns())
	p := NewPool(zerolog.Nop(), d, 2, time.Second)

	src := queue.NewStatic(
		[]byte(`{"repo_url":"https://github.com/acme/widgets","issue_id":1,"mode":"plan","user":"bob"}`),
		[]byte(`{"repo_url":"https://github.com/acme/widgets","issue_id":2,"mode":"plan","user":"bob"}`),
		[]byte(`{"repo_url":"https://github.com/acme/widgets","issue_id":3,"mode":"plan","user":"bob"}`),
		[]byte(`{oops`),
	)

	require.NoError(t, runPool(t, context.Background(), p, src))

	assert.Equal(t, []queue.Outcome{
		queue.OutcomeAcked,
		queue.OutcomeRequeued,
		queue.OutcomeNacked,
		queue.OutcomeNacked,
	}, src.Outcomes())

	assert.Equal(t, PoolStats{Slots: 2, Busy: 0, Processed: 4, Failed: 3}, p.Stats())
}

func TestPool_BoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	router := &fakeRouter{fn: func(context.Context, task.Task, *modes.Tracker) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		running.Add(-1)
		return nil
	}}
	p := NewPool(zerolog.Nop(), NewDispatcher(zerolog.Nop(), router, nil), 2, time.Second)

	bodies := make([][]byte, 6)
	for i := range bodies {
		bodies[i] = []byte(planBody)
	}
	src := queue.NewStatic(bodies...)

	require.NoError(t, runPool(t, context.Background(), p, src))

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, 6, router.calls())
	for _, o := range src.Outcomes() {
		assert.Equal(t, queue.OutcomeAcked, o)
	}
}

func TestPool_GracefulShutdown(t *testing.T) {
	tests := []struct {
		name     string
		graceful time.Duration
		work     time.Duration
		want     queue.Outcome
	}{
		{name: "in-flight task finishes", graceful: time.Second, work: 30 * time.Millisecond, want: queue.OutcomeAcked},
		{name: "timeout cancels task", graceful: 30 * time.Millisecond, work: 10 * time.Second, want: queue.OutcomeRequeued},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			started := make(chan struct{})
			router := &fakeRouter{fn: func(ctx context.Context, _ task.Task, _ *modes.Tracker) error {
				close(started)
				select {
				case <-time.After(tt.work):
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}}
			p := NewPool(zerolog.Nop(), NewDispatcher(zerolog.Nop(), router, nil), 1, tt.graceful)
			src := queue.NewStatic([]byte(planBody))

			ctx, cancel := context.WithCancel(context.Background())
			go func() {
				<-started
				cancel()
			}()

			require.NoError(t, runPool(t, ctx, p, src))
			assert.Equal(t, []queue.Outcome{tt.want}, src.Outcomes())
		})
	}
}

func TestNewPool_MinimumOneSlot(t *testing.T) {
	p := NewPool(zerolog.Nop(), NewDispatcher(zerolog.Nop(), &fakeRouter{}, nil), 0, time.Second)
	assert.Equal(t, 1, p.slots)
}
