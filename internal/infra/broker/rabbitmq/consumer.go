package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageHandler processes one raw event payload.
type MessageHandler interface {
	Handle(ctx context.Context, payload []byte) error
}

// Consumer binds a durable queue to the exchange and feeds deliveries to a handler.
type Consumer struct {
	URL      string
	Exchange string
	Queue    string
	Bindings []string
	Handler  MessageHandler
	Logger   *slog.Logger
}

var errDeliveriesClosed = errors.New("rabbitmq: deliveries channel closed")

// Run reconnects with exponential backoff until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		err := c.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if c.Logger != nil {
			c.Logger.Warn("rabbitmq consumer disconnected", "queue", c.Queue, "error", err, "retry_in", backoff)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (c *Consumer) consume(ctx context.Context) error {
	conn, err := amqp.Dial(c.URL)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}
	if err := ch.ExchangeDeclare(c.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	for _, key := range c.Bindings {
		if err := ch.QueueBind(c.Queue, key, c.Exchange, false, nil); err != nil {
			return fmt.Errorf("queue bind %s: %w", key, err)
		}
	}
	msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errDeliveriesClosed
			}
			if err := c.Handler.Handle(ctx, d.Body); err != nil {
				if c.Logger != nil {
					c.Logger.Warn("rabbitmq message rejected", "queue", c.Queue, "error", err)
				}
				// dropped rather than requeued to avoid a hot redelivery loop
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
