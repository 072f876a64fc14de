package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AMQPForwarder republishes issue events to a durable RabbitMQ queue.
type AMQPForwarder struct {
	conn   *amqp.Connection
	mu     sync.Mutex
	ch     *amqp.Channel
	queue  string
	logger *zap.Logger
}

// NewAMQPForwarder dials the broker and declares the queue.
func NewAMQPForwarder(url, queue string, logger *zap.Logger) (*AMQPForwarder, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}
	return &AMQPForwarder{conn: conn, ch: ch, queue: queue, logger: logger}, nil
}

// Register subscribes the forwarder to every issue event.
func (f *AMQPForwarder) Register(d Dispatcher) {
	d.Subscribe(EventIssueCreated, f.Handle)
	d.Subscribe(EventIssueStatusChanged, f.Handle)
}

// Handle publishes one event as persistent JSON.
func (f *AMQPForwarder) Handle(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// amqp channels are not safe for concurrent publishers.
	f.mu.Lock()
	defer f.mu.Unlock()
	err = f.ch.PublishWithContext(ctx, "", f.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         string(event.Type),
		Timestamp:    event.Timestamp,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	f.logger.Debug("event forwarded", zap.String("event_type", string(event.Type)), zap.String("issue_id", event.IssueID))
	return nil
}

// Close releases the channel and connection.
func (f *AMQPForwarder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ch.Close(); err != nil {
		f.conn.Close()
		return err
	}
	return f.conn.Close()
}
