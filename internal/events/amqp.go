package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// AMQPForwarder republishes outcome events to a topic exchange so external
// consumers (webhook workers, UIs) can follow reconciliation state without
// an in-process subscription. Routing key is "<sessionId>.<event>".
type AMQPForwarder struct {
	conn     *amqp091.Connection
	exchange string
	logger   *logrus.Logger
	events   <-chan Event
	unsub    func()
	done     chan struct{}
}

// NewAMQPForwarder dials the broker, declares the exchange and subscribes
// to every event on the bus. Call Run to start forwarding.
func NewAMQPForwarder(url, exchange string, bus *Bus, logger *logrus.Logger) (*AMQPForwarder, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial AMQP broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to open channel: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to declare exchange: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	events, unsub := bus.Subscribe()

	return &AMQPForwarder{
		conn:     conn,
		exchange: exchange,
		logger:   logger,
		events:   events,
		unsub:    unsub,
		done:     make(chan struct{}),
	}, nil
}

// Run forwards events until the context is cancelled or the bus closes the
// subscription. Publish failures are logged and skipped; the bus is never
// blocked on the broker.
func (f *AMQPForwarder) Run(ctx context.Context) {
	defer close(f.done)

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-f.events:
			if !ok {
				return
			}
			if err := f.publish(ctx, evt); err != nil {
				f.logger.WithFields(logrus.Fields{
					"event":   evt.Kind,
					"session": evt.SessionID,
				}).WithError(err).Error("Failed to forward event to AMQP")
			}
		}
	}
}

func (f *AMQPForwarder) publish(ctx context.Context, evt Event) error {
	ch, err := f.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	key := fmt.Sprintf("%s.%s", evt.SessionID, evt.Kind)
	return ch.PublishWithContext(ctx, f.exchange, key, false, false, amqp091.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp091.Persistent,
		MessageId:     evt.ID.String(),
		CorrelationId: evt.ID.String(),
		Timestamp:     time.Now(),
		Body:          body,
	})
}

// Close stops the subscription and tears the connection down.
func (f *AMQPForwarder) Close() error {
	f.unsub()
	select {
	case <-f.done:
	case <-time.After(5 * time.Second):
	}
	return f.conn.Close()
}
