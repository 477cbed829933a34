package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

// Message is one claimed outbox record.
type Message struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
	Attempts   int
}

// Store hands out pending records one at a time. Claim returns nil when nothing is due.
type Store interface {
	Claim(ctx context.Context, workerID string) (*Message, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Worker relays committed outbox records to a Producer as CloudEvents.
type Worker struct {
	Store       Store
	Producer    Producer
	Interval    time.Duration
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration
	// Wake, when set, triggers a drain before the next tick.
	Wake   <-chan struct{}
	Logger *slog.Logger
}

func (w *Worker) Run(ctx context.Context) error {
	if w.Store == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-w.Wake:
		}
		if err := w.Drain(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if w.Logger != nil {
				w.Logger.Warn("outbox drain failed", "worker", w.ID, "error", err)
			}
		}
	}
}

// Drain publishes due records until the store has none left.
func (w *Worker) Drain(ctx context.Context) error {
	for {
		sent, err := w.processOnce(ctx)
		if err != nil || !sent {
			return err
		}
	}
}

func (w *Worker) processOnce(ctx context.Context) (bool, error) {
	msg, err := w.Store.Claim(ctx, w.workerID())
	if err != nil || msg == nil {
		return false, err
	}
	topic := w.topicFor(msg.Name)
	payload, headers, err := w.formatPayload(msg)
	if err != nil {
		return true, w.Store.MarkFailed(ctx, msg.ID, w.nextRetry(msg.Attempts), err.Error())
	}
	if err := w.Producer.Publish(ctx, topic, msg.Aggregate, payload, headers); err != nil {
		if w.Logger != nil {
			w.Logger.Warn("outbox publish failed", "event", msg.Name, "id", msg.ID, "attempts", msg.Attempts, "error", err)
		}
		return true, w.Store.MarkFailed(ctx, msg.ID, w.nextRetry(msg.Attempts), err.Error())
	}
	return true, w.Store.MarkSent(ctx, msg.ID)
}

// formatPayload wraps the record in a CloudEvents envelope. The envelope id is
// the record id so consumers can deduplicate redeliveries.
func (w *Worker) formatPayload(msg *Message) ([]byte, map[string]string, error) {
	data := map[string]any{}
	if err := json.Unmarshal(msg.Payload, &data); err != nil {
		return nil, nil, err
	}
	evt := map[string]any{
		"specversion":     "1.0",
		"id":              msg.ID,
		"type":            msg.Name + ".v1",
		"source":          w.source(),
		"subject":         msg.Aggregate,
		"time":            msg.OccurredAt,
		"datacontenttype": "application/json",
		"data":            data,
	}
	if trace, ok := msg.Headers["traceparent"]; ok {
		evt["traceparent"] = trace
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{
		"content-type": "application/cloudevents+json",
	}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

// TopicFor maps "reservation.created" to "<prefix>reservation.events.v1".
func TopicFor(prefix, name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	return prefix + base + ".events.v1"
}

func (w *Worker) topicFor(name string) string {
	return TopicFor(w.TopicPrefix, name)
}

func (w *Worker) workerID() string {
	if w.ID != "" {
		return w.ID
	}
	return "outbox-worker"
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) nextRetry(attempts int) time.Time {
	if attempts < len(w.Backoff) {
		return time.Now().Add(w.Backoff[attempts])
	}
	if len(w.Backoff) > 0 {
		return time.Now().Add(w.Backoff[len(w.Backoff)-1])
	}
	return time.Now().Add(5 * time.Second)
}

func (w *Worker) source() string {
	if w.Source != "" {
		return w.Source
	}
	return "app://hotelres"
}
