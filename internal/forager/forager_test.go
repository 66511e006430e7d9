package forager

import (
	"context"
	"sort"
	"sync"

	"github.com/colonyops/forager/internal/core/history"
	"github.com/colonyops/forager/internal/core/task"
	"github.com/colonyops/forager/internal/forager/modes"
)

const planBody = `{"repo_url":"https://github.com/acme/widgets","issue_id":7,"mode":"plan","user":"bob"}`

type fakeRouter struct {
	mu    sync.Mutex
	tasks []task.Task
	ctxs  []context.Context
	fn    func(ctx context.Context, t task.Task, tr *modes.Tracker) error
}

func (f *fakeRouter) Route(ctx context.Context, t task.Task, tr *modes.Tracker) error {
	f.mu.Lock()
	f.tasks = append(f.tasks, t)
	f.ctxs = append(f.ctxs, ctx)
	f.mu.Unlock()

	if f.fn == nil {
		return nil
	}
	return f.fn(ctx, t, tr)
}

func (f *fakeRouter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

type memRuns struct {
	mu   sync.Mutex
	runs map[string]history.Run
}

func newMemRuns() *memRuns {
	return &memRuns{runs: map[string]history.Run{}}
}

func (m *memRuns) Start(_ context.Context, run history.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
	return nil
}

func (m *memRuns) Finish(_ context.Context, id string, o history.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return history.ErrNotFound
	}
	run.Status = o.Status
	run.State = o.State
	run.Error = o.Error
	run.ErrorKind = o.ErrorKind
	run.Branch = o.Branch
	run.PullRequestURL = o.PullRequestURL
	finished := o.FinishedAt
	run.FinishedAt = &finished
	m.runs[id] = run
	return nil
}

func (m *memRuns) List(_ context.Context, limit int) ([]history.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]history.Run, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRuns) Get(_ context.Context, id string) (history.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return history.Run{}, history.ErrNotFound
	}
	return run, nil
}

func (m *memRuns) only() history.Run {
	runs, _ := m.List(context.Background(), 0)
	if len(runs) != 1 {
		return history.Run{}
	}
	return runs[0]
}
