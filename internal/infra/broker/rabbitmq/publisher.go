package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends outbox records to a durable topic exchange. The routing key
// is the event topic, so queues bind to "<prefix>reservation.events.v1" and
// similar keys.
type Publisher struct {
	url      string
	exchange string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	p := &Publisher{url: url, exchange: exchange}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

// connect (re)opens the connection and declares the exchange. Caller holds mu
// or owns p exclusively.
func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq: channel open: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq: exchange declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	return nil
}

func (p *Publisher) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil || p.conn.IsClosed() {
		if err := p.connect(); err != nil {
			return err
		}
	}
	table := amqp.Table{}
	for k, v := range headers {
		table[k] = v
	}
	msg := amqp.Publishing{
		ContentType:   headers["content-type"],
		DeliveryMode:  amqp.Persistent,
		Timestamp:     time.Now().UTC(),
		CorrelationId: key,
		Headers:       table,
		Body:          payload,
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, topic, false, false, msg); err != nil {
		// the channel is unusable after a failed publish; reopen on the next call
		_ = p.conn.Close()
		p.conn = nil
		return fmt.Errorf("rabbitmq: publish: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}
