package forager

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/colonyops/forager/internal/core/logging"
	"github.com/colonyops/forager/internal/core/queue"
	"github.com/colonyops/forager/internal/core/taskerr"
)

// Handler processes one delivery. A nil error means the delivery was acked.
type Handler interface {
	Dispatch(ctx context.Context, d queue.Delivery) error
}

// Pool runs up to slots deliveries at once, each to completion.
type Pool struct {
	log      zerolog.Logger
	handler  Handler
	slots    int
	graceful time.Duration

	busy      atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
}

// PoolStats is a point-in-time view of a Pool.
type PoolStats struct {
	Slots     int   `json:"slots"`
	Busy      int64 `json:"busy"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

// Stats reports slot usage and totals since the pool was created.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Slots:     p.slots,
		Busy:      p.busy.Load(),
		Processed: p.processed.Load(),
		Failed:    p.failed.Load(),
	}
}

// NewPool creates a Pool. slots below one are treated as one.
func NewPool(log zerolog.Logger, h Handler, slots int, graceful time.Duration) *Pool {
	if slots < 1 {
		slots = 1
	}
	return &Pool{
		log:      logging.Component(log, "pool"),
		handler:  h,
		slots:    slots,
		graceful: graceful,
	}
}

// Run consumes src until it is drained or ctx is cancelled. After
// cancellation, in-flight tasks get the graceful timeout to finish before
// their context is cancelled too. Deliveries received after cancellation are
// requeued untouched.
func (p *Pool) Run(ctx context.Context, src queue.Source) error {
	deliveries, err := src.Deliveries(ctx)
	if err != nil {
		return err
	}

	workCtx, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWork()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-done:
			return
		case <-ctx.Done():
		}
		p.log.Info().Dur("graceful_timeout", p.graceful).Msg("shutting down, waiting for in-flight tasks")

		select {
		case <-done:
		case <-time.After(p.graceful):
			p.log.Warn().Msg("graceful timeout expired, cancelling in-flight tasks")
			cancelWork()
		}
	}()

	var g errgroup.Group
	g.SetLimit(p.slots)

	for d := range deliveries {
		if ctx.Err() != nil {
			p.nack(d, true)
			continue
		}

		g.Go(func() error {
			if ctx.Err() != nil {
				p.nack(d, true)
				return nil
			}
			p.busy.Add(1)
			defer p.busy.Add(-1)

			err := p.handler.Dispatch(workCtx, d)
			p.processed.Add(1)
			if err != nil {
				p.failed.Add(1)
				p.nack(d, taskerr.Retryable(err))
			}
			return nil
		})
	}

	return g.Wait()
}

func (p *Pool) nack(d queue.Delivery, requeue bool) {
	if err := d.Nack(requeue); err != nil {
		p.log.Warn().Err(err).Str("delivery_id", d.ID()).Msg("nack failed")
		return
	}
	p.log.Debug().Str("delivery_id", d.ID()).Bool("requeue", requeue).Msg("delivery rejected")
}
