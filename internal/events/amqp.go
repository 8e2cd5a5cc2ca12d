// AngelaMos | 2026
// amqp.go

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/carterperez-dev/car-rental-backend/internal/config"
)

// AMQPSink publishes events to a fanout exchange. The connection is opened
// lazily and reopened after a failure on the next event; nothing is retried.
type AMQPSink struct {
	cfg  config.AMQPConfig
	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPSink(cfg config.AMQPConfig) *AMQPSink {
	return &AMQPSink{cfg: cfg}
}

func (s *AMQPSink) Forward(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ch, err := s.channelLocked()
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx,
		s.cfg.Exchange,
		ev.Name,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    ev.At,
			Type:         ev.Name,
			Body:         body,
		},
	)
	if err != nil {
		s.resetLocked()
		return fmt.Errorf("amqp publish: %w", err)
	}

	return nil
}

func (s *AMQPSink) channelLocked() (*amqp.Channel, error) {
	if s.ch != nil && !s.ch.IsClosed() {
		return s.ch, nil
	}
	s.resetLocked()

	conn, err := amqp.Dial(s.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close() //nolint:errcheck // cleanup after channel failure
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		s.cfg.Exchange,
		amqp.ExchangeFanout,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		_ = conn.Close() //nolint:errcheck // cleanup after declare failure
		return nil, fmt.Errorf("amqp exchange declare: %w", err)
	}

	s.conn = conn
	s.ch = ch
	return ch, nil
}

func (s *AMQPSink) resetLocked() {
	if s.ch != nil {
		_ = s.ch.Close() //nolint:errcheck // best-effort teardown
		s.ch = nil
	}
	if s.conn != nil {
		_ = s.conn.Close() //nolint:errcheck // best-effort teardown
		s.conn = nil
	}
}

func (s *AMQPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	return nil
}
