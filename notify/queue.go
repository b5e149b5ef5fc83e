package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	attemptHeader    = "x-attempt"
	maxQueueAttempts = 3
	publishTimeout   = 5 * time.Second
)

// Channel is the part of an AMQP channel the queue backend uses
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Qos(prefetchCount, prefetchSize int, global bool) error
}

// ConnectRabbitMQ dials uri and opens a channel
func ConnectRabbitMQ(uri string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	return conn, ch, nil
}

// DeclareQueue declares the durable notification queue
func DeclareQueue(ch Channel, name string) error {
	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	return nil
}

// QueuePublisher is a Deliverer that forwards messages to a durable RabbitMQ queue, where
// any instance's Consumer delivers them
type QueuePublisher struct {
	Channel Channel
	Queue   string
}

// Deliver publishes msg as a persistent json message
func (p *QueuePublisher) Deliver(ctx context.Context, msg Message) error {
	return publish(ctx, p.Channel, p.Queue, msg, 1)
}

func publish(ctx context.Context, ch Channel, queue string, msg Message, attempt int32) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(ctx,
		"",
		queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
			Headers:      amqp.Table{attemptHeader: attempt},
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Consumer reads the notification queue and hands messages to a local Deliverer
type Consumer struct {
	Channel   Channel
	Queue     string
	Deliverer Deliverer
	Prefetch  int
}

// Run consumes until ctx ends or the delivery channel closes
func (c *Consumer) Run(ctx context.Context) error {
	prefetch := c.Prefetch
	if prefetch < 1 {
		prefetch = 10
	}
	if err := c.Channel.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}
	deliveries, err := c.Channel.Consume(c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}
	zap.S().Infow("listening to notification queue", "queue", c.Queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			c.handle(ctx, d)
		}
	}
}

type outcome int

const (
	outcomeAck outcome = iota
	outcomeRetry
	outcomeDrop
)

func (c *Consumer) process(ctx context.Context, body []byte, attempt int32) (outcome, Message) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		zap.S().Warnw("failed to parse notification message", "error", err)
		return outcomeDrop, msg
	}
	dctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()
	if err := c.Deliverer.Deliver(dctx, msg); err != nil {
		zap.S().Errorw("queued notification delivery failed", "type", msg.Type, "attempt", attempt, "error", err)
		if attempt >= maxQueueAttempts {
			return outcomeDrop, msg
		}
		return outcomeRetry, msg
	}
	return outcomeAck, msg
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	attempt := attemptOf(d.Headers)
	result, msg := c.process(ctx, d.Body, attempt)
	switch result {
	case outcomeAck:
		_ = d.Ack(false)
	case outcomeRetry:
		// republish with the next attempt number so the count survives redelivery
		if err := publish(ctx, c.Channel, c.Queue, msg, attempt+1); err != nil {
			zap.S().Errorw("failed to requeue notification", "error", err)
			_ = d.Nack(false, true)
			return
		}
		_ = d.Ack(false)
	case outcomeDrop:
		failedTotal.WithLabelValues("queue").Inc()
		_ = d.Nack(false, false)
	}
}

func attemptOf(h amqp.Table) int32 {
	switch v := h[attemptHeader].(type) {
	case int32:
		return v
	case int64:
		return int32(v)
	case int:
		return int32(v)
	}
	return 1
}
