// Package queue defines the task source capability: a stream of deliveries
// that are settled with Ack or Nack once their task finishes.
package queue

import (
	"context"
	"errors"
	"fmt"
)

// MaxBodySize is the largest delivery body accepted as a task (1MB).
const MaxBodySize = 1 << 20

// ErrBodyTooLarge is returned by CheckBody for oversized deliveries.
var ErrBodyTooLarge = errors.New("delivery body exceeds maximum size")

// Delivery is one message from a Source. Exactly one of Ack or Nack must be
// called.
type Delivery interface {
	// ID is the delivery token, unique per message.
	ID() string
	Body() []byte
	Ack() error
	// Nack rejects the delivery. With requeue the source redelivers it later.
	Nack(requeue bool) error
}

// Source produces deliveries.
type Source interface {
	// Deliveries returns a channel of pending deliveries. The channel is
	// closed when ctx is cancelled, the source is drained, or Close is called.
	Deliveries(ctx context.Context) (<-chan Delivery, error)

	// Close stops consuming and releases the connection.
	Close() error
}

// CheckBody rejects empty or oversized bodies before they are parsed.
func CheckBody(body []byte) error {
	switch {
	case len(body) == 0:
		return errors.New("delivery body is empty")
	case len(body) > MaxBodySize:
		return fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, len(body))
	}
	return nil
}
