package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"hotelres/internal/domain/shared/events"
)

// EventRecord is a serialized domain event waiting to be relayed.
type EventRecord struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
}

// Outbox persists records inside the caller's unit of work. Flush signals that
// new records were committed.
type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
	Flush(ctx context.Context) error
}

type EventEncoder interface {
	Encode(ev events.DomainEvent) (EventRecord, error)
}

type JSONEventEncoder struct {
	IDGenerator func() string
}

func (e JSONEventEncoder) Encode(ev events.DomainEvent) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, err
	}
	idGen := e.IDGenerator
	if idGen == nil {
		idGen = uuid.NewString
	}
	return EventRecord{
		ID:         idGen(),
		Name:       ev.EventName(),
		Payload:    payload,
		OccurredAt: ev.OccurredAt().UTC(),
		Aggregate:  ev.AggregateID(),
		Headers:    map[string]string{},
	}, nil
}

// RecordDomainEvents encodes evs and adds them to box in order.
func RecordDomainEvents(ctx context.Context, box Outbox, encoder EventEncoder, evs []events.DomainEvent) error {
	if box == nil || len(evs) == 0 {
		return nil
	}
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	headers := HeadersFromContext(ctx)
	for _, ev := range evs {
		rec, err := encoder.Encode(ev)
		if err != nil {
			return err
		}
		for k, v := range headers {
			rec.Headers[k] = v
		}
		if err := box.Add(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

type headersKey struct{}

// ContextWithHeaders attaches headers (request id, traceparent) copied onto every recorded event.
func ContextWithHeaders(ctx context.Context, headers map[string]string) context.Context {
	return context.WithValue(ctx, headersKey{}, headers)
}

func HeadersFromContext(ctx context.Context) map[string]string {
	if v, ok := ctx.Value(headersKey{}).(map[string]string); ok {
		return v
	}
	return nil
}
