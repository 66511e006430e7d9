// Package rabbitmq implements queue.Source on top of a durable RabbitMQ queue.
package rabbitmq

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/colonyops/forager/internal/core/queue"
)

// Config holds connection settings.
type Config struct {
	URL      string
	Queue    string
	Prefetch int
}

// channel is the subset of *amqp.Channel the source uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Qos(prefetchCount, prefetchSize int, global bool) error
	ConsumeWithContext(ctx context.Context, queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// Source consumes tasks from RabbitMQ with manual acknowledgement.
type Source struct {
	log       zerolog.Logger
	cfg       Config
	conn      *amqp.Connection
	ch        channel
	closeOnce sync.Once
	closeErr  error
}

var _ queue.Source = (*Source)(nil)

// Dial connects to the broker, declares the queue as durable and limits
// unacknowledged deliveries to cfg.Prefetch.
func Dial(log zerolog.Logger, cfg Config) (*Source, error) {
	log = log.With().Str("component", "rabbitmq").Logger()

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", redactURL(cfg.URL), err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	s, err := newSource(log, cfg, ch)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	s.conn = conn

	log.Info().Str("url", redactURL(cfg.URL)).Str("queue", cfg.Queue).Int("prefetch", cfg.Prefetch).Msg("connected")
	return s, nil
}

func newSource(log zerolog.Logger, cfg Config, ch channel) (*Source, error) {
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare queue %s: %w", cfg.Queue, err)
	}

	prefetch := max(cfg.Prefetch, 1)
	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("set prefetch: %w", err)
	}

	return &Source{log: log, cfg: cfg, ch: ch}, nil
}

func (s *Source) Deliveries(ctx context.Context) (<-chan queue.Delivery, error) {
	msgs, err := s.ch.ConsumeWithContext(ctx, s.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", s.cfg.Queue, err)
	}

	out := make(chan queue.Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					s.log.Warn().Msg("delivery channel closed by broker")
					return
				}

				d := &delivery{msg: m, id: m.MessageId}
				if d.id == "" {
					d.id = uuid.NewString()
				}

				select {
				case out <- d:
				case <-ctx.Done():
					// Unprocessed; hand it back to the broker.
					_ = m.Nack(false, true)
					return
				}
			}
		}
	}()

	return out, nil
}

func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		if err := s.ch.Close(); err != nil {
			s.closeErr = fmt.Errorf("close channel: %w", err)
		}
		if s.conn != nil {
			if err := s.conn.Close(); err != nil && s.closeErr == nil {
				s.closeErr = fmt.Errorf("close connection: %w", err)
			}
		}
	})
	return s.closeErr
}

type delivery struct {
	msg amqp.Delivery
	id  string
}

func (d *delivery) ID() string   { return d.id }
func (d *delivery) Body() []byte { return d.msg.Body }
func (d *delivery) Ack() error   { return d.msg.Ack(false) }

func (d *delivery) Nack(requeue bool) error {
	return d.msg.Nack(false, requeue)
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}
