package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Outcome is how a delivery from a Static source was settled.
type Outcome string

const (
	OutcomePending  Outcome = ""
	OutcomeAcked    Outcome = "acked"
	OutcomeNacked   Outcome = "nacked"
	OutcomeRequeued Outcome = "requeued"
)

// ErrAlreadySettled is returned when a delivery is acked or nacked twice.
var ErrAlreadySettled = errors.New("delivery already settled")

// Static is an in-memory Source over a fixed set of bodies. Deliveries are
// emitted in order and the channel closes once all of them are sent. Requeued
// deliveries are recorded but not redelivered.
type Static struct {
	mu         sync.Mutex
	deliveries []*StaticDelivery
	closed     chan struct{}
	closeOnce  sync.Once
}

// NewStatic creates a Static source. Each body gets a random delivery id.
func NewStatic(bodies ...[]byte) *Static {
	s := &Static{closed: make(chan struct{})}
	for _, b := range bodies {
		s.Add(uuid.NewString(), b)
	}
	return s
}

// Add appends a delivery with an explicit id. It must be called before
// Deliveries.
func (s *Static) Add(id string, body []byte) *StaticDelivery {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := &StaticDelivery{id: id, body: body}
	s.deliveries = append(s.deliveries, d)
	return d
}

func (s *Static) Deliveries(ctx context.Context) (<-chan Delivery, error) {
	s.mu.Lock()
	pending := append([]*StaticDelivery(nil), s.deliveries...)
	s.mu.Unlock()

	ch := make(chan Delivery)
	go func() {
		defer close(ch)
		for _, d := range pending {
			if ctx.Err() != nil || s.isClosed() {
				return
			}
			select {
			case ch <- d:
			case <-ctx.Done():
				return
			case <-s.closed:
				return
			}
		}
	}()
	return ch, nil
}

func (s *Static) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func (s *Static) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// Outcomes returns the settlement of every delivery, in insertion order.
func (s *Static) Outcomes() []Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Outcome, len(s.deliveries))
	for i, d := range s.deliveries {
		out[i] = d.Outcome()
	}
	return out
}

// StaticDelivery is a Delivery held in memory.
type StaticDelivery struct {
	mu      sync.Mutex
	id      string
	body    []byte
	outcome Outcome
}

func (d *StaticDelivery) ID() string   { return d.id }
func (d *StaticDelivery) Body() []byte { return d.body }

func (d *StaticDelivery) Ack() error {
	return d.settle(OutcomeAcked)
}

func (d *StaticDelivery) Nack(requeue bool) error {
	if requeue {
		return d.settle(OutcomeRequeued)
	}
	return d.settle(OutcomeNacked)
}

// Outcome reports how the delivery was settled.
func (d *StaticDelivery) Outcome() Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.outcome
}

func (d *StaticDelivery) settle(o Outcome) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.outcome != OutcomePending {
		return ErrAlreadySettled
	}
	d.outcome = o
	return nil
}
