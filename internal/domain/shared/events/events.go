package events

import "time"

// DomainEvent is recorded by aggregates and later written to the outbox.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

type EventRecorder struct {
	pending []DomainEvent
}

func (r *EventRecorder) Record(event DomainEvent) {
	if event == nil {
		return
	}
	r.pending = append(r.pending, event)
}

func (r *EventRecorder) PendingEvents() []DomainEvent {
	out := make([]DomainEvent, len(r.pending))
	copy(out, r.pending)
	return out
}

func (r *EventRecorder) ClearEvents() {
	r.pending = nil
}

// Drain returns pending events and clears the recorder.
func (r *EventRecorder) Drain() []DomainEvent {
	out := r.pending
	r.pending = nil
	return out
}

// Collect drains every recorder in order, skipping nils.
func Collect(sources ...interface{ Drain() []DomainEvent }) []DomainEvent {
	var out []DomainEvent
	for _, src := range sources {
		if src == nil {
			continue
		}
		out = append(out, src.Drain()...)
	}
	return out
}
