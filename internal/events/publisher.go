package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher publishes booking events for the external notifier
type Publisher interface {
	// Publish sends an event to the given queue. Implementations must
	// never panic; failures are logged and returned so callers can
	// ignore them without interrupting the main request flow.
	Publish(ctx context.Context, queue string, event BookingEvent) error

	Close() error
}

// AMQPPublisher publishes events to RabbitMQ. The connection is opened
// lazily and re-dialed after a failure; messages are persistent and the
// queues durable so events survive broker restarts.
type AMQPPublisher struct {
	url    string
	logger *logrus.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher creates a publisher for the given broker URL
func NewAMQPPublisher(url string, logger *logrus.Logger) *AMQPPublisher {
	return &AMQPPublisher{url: url, logger: logger}
}

// Publish sends a booking event to the given queue
func (p *AMQPPublisher) Publish(ctx context.Context, queue string, event BookingEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).Error("Failed to marshal booking event")
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ch, err := p.channel()
	if err != nil {
		p.logger.WithError(err).WithField("queue", queue).Error("Failed to open event channel")
		return err
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		p.reset()
		p.logger.WithError(err).WithField("queue", queue).Error("Failed to declare event queue")
		return fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		p.reset()
		p.logger.WithError(err).WithField("queue", queue).Error("Failed to publish booking event")
		return fmt.Errorf("failed to publish to %s: %w", queue, err)
	}

	p.logger.WithFields(logrus.Fields{
		"queue":      queue,
		"booking_id": event.BookingID,
	}).Debug("Booking event published")
	return nil
}

// channel returns the current channel, dialing if needed
func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	p.conn = conn
	p.ch = ch
	return ch, nil
}

// reset drops the cached connection so the next publish re-dials
func (p *AMQPPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

// Close closes the broker connection
func (p *AMQPPublisher) Close() error {
	p.reset()
	return nil
}

// NoopPublisher drops all events. Wired when no broker URL is
// configured (dev mode).
type NoopPublisher struct {
	logger *logrus.Logger
}

// NewNoopPublisher creates a publisher that discards events
func NewNoopPublisher(logger *logrus.Logger) *NoopPublisher {
	return &NoopPublisher{logger: logger}
}

// Publish logs and discards the event
func (p *NoopPublisher) Publish(ctx context.Context, queue string, event BookingEvent) error {
	p.logger.WithFields(logrus.Fields{
		"queue":      queue,
		"booking_id": event.BookingID,
	}).Debug("Event publication disabled, dropping event")
	return nil
}

// Close is a no-op
func (p *NoopPublisher) Close() error {
	return nil
}
