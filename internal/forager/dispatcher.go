package forager

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/colonyops/forager/internal/core/history"
	"github.com/colonyops/forager/internal/core/logging"
	"github.com/colonyops/forager/internal/core/queue"
	"github.com/colonyops/forager/internal/core/task"
	"github.com/colonyops/forager/internal/core/taskerr"
	"github.com/colonyops/forager/internal/forager/modes"
)

// Router runs a task through the orchestrator of its mode.
type Router interface {
	Route(ctx context.Context, t task.Task, tr *modes.Tracker) error
}

// Dispatcher turns one delivery into one completed or failed run.
type Dispatcher struct {
	log    zerolog.Logger
	router Router
	runs   history.Store
	now    func() time.Time
}

// NewDispatcher creates a Dispatcher. runs may be nil to skip the audit trail.
func NewDispatcher(log zerolog.Logger, router Router, runs history.Store) *Dispatcher {
	return &Dispatcher{
		log:    logging.Component(log, "dispatcher"),
		router: router,
		runs:   runs,
		now:    time.Now,
	}
}

// Dispatch parses the delivery, runs its task and acks it on success. On
// failure the error is logged and returned unsettled; the caller decides
// whether to requeue.
func (d *Dispatcher) Dispatch(ctx context.Context, del queue.Delivery) error {
	t, err := d.parse(del)
	if err != nil {
		d.log.Error().Err(err).Str("delivery_id", del.ID()).Msg("rejected malformed task")
		return err
	}

	ctx = logging.WithTask(ctx, logging.TaskFields{
		DeliveryID: t.DeliveryID,
		RepoURL:    t.RepoURL,
		Issue:      t.Issue,
		Mode:       string(t.Mode),
		User:       t.User,
	})
	log := d.log
	ctx = log.WithContext(ctx)

	runID := uuid.NewString()
	d.start(ctx, runID, t)

	log.Info().Ctx(ctx).Str("run", runID).Msg("task started")
	tr := modes.NewTracker(log.With().Str("delivery_id", t.DeliveryID).Logger())
	err = d.route(ctx, t, tr)
	if err == nil {
		tr.Done()
	} else {
		tr.Fail(err)
	}

	d.finish(ctx, runID, tr)

	if err != nil {
		log.Error().Ctx(ctx).Err(err).
			Str("kind", string(taskerr.KindOf(err))).
			Str("state", string(tr.Last())).
			Msg("task failed")
		return err
	}

	log.Info().Ctx(ctx).Str("pr", tr.PullRequestURL()).Msg("task completed")
	if err := del.Ack(); err != nil {
		log.Warn().Ctx(ctx).Err(err).Msg("ack failed")
	}
	return nil
}

func (d *Dispatcher) parse(del queue.Delivery) (task.Task, error) {
	body := del.Body()
	if err := queue.CheckBody(body); err != nil {
		return task.Task{}, taskerr.New(taskerr.KindValidation, "check body", err)
	}
	return task.Parse(body, del.ID())
}

func (d *Dispatcher) route(ctx context.Context, t task.Task, tr *modes.Tracker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			zerolog.Ctx(ctx).Error().Ctx(ctx).Bytes("stack", debug.Stack()).Msg("orchestrator panicked")
			err = taskerr.Newf(taskerr.KindPanic, string(t.Mode), "orchestrator panicked: %v", r)
		}
	}()
	return d.router.Route(ctx, t, tr)
}

func (d *Dispatcher) start(ctx context.Context, id string, t task.Task) {
	if d.runs == nil {
		return
	}
	err := d.runs.Start(ctx, history.Run{
		ID:         id,
		DeliveryID: t.DeliveryID,
		RepoURL:    t.RepoURL,
		Issue:      t.Issue,
		Mode:       string(t.Mode),
		User:       t.User,
		Status:     history.StatusRunning,
		State:      string(modes.StateReceived),
		StartedAt:  d.now(),
	})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Ctx(ctx).Err(err).Msg("failed to record run start")
	}
}

func (d *Dispatcher) finish(ctx context.Context, id string, tr *modes.Tracker) {
	if d.runs == nil {
		return
	}

	outcome := history.Outcome{
		Status:         history.StatusSucceeded,
		State:          string(tr.Current()),
		Branch:         tr.Branch(),
		PullRequestURL: tr.PullRequestURL(),
		FinishedAt:     d.now(),
	}
	if err := tr.Err(); err != nil {
		outcome.Status = history.StatusFailed
		outcome.State = string(tr.Last())
		outcome.Error = err.Error()
		outcome.ErrorKind = string(taskerr.KindOf(err))
	}

	// The run is recorded even when the task was cancelled.
	if err := d.runs.Finish(context.WithoutCancel(ctx), id, outcome); err != nil {
		zerolog.Ctx(ctx).Warn().Ctx(ctx).Err(err).Msg("failed to record run outcome")
	}
}
