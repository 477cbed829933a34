package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	appoutbox "hotelres/internal/app/outbox"
	"hotelres/internal/app/uow"
	infraoutbox "hotelres/internal/infra/outbox"
)

type outboxEntry struct {
	record    appoutbox.EventRecord
	sent      bool
	claimed   bool
	attempts  int
	nextTry   time.Time
	lastError string
}

// Outbox stages records in the unit of work found in ctx; they become visible to
// the relay only when that unit commits. Without a unit, Add writes through.
type Outbox struct {
	mu      sync.Mutex
	entries []*outboxEntry
	wake    chan struct{}
}

func NewOutbox() *Outbox {
	return &Outbox{wake: make(chan struct{}, 1)}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	if unit, ok := uow.FromContext(ctx); ok {
		if mu, ok := unit.(*Unit); ok {
			return mu.addRecord(record)
		}
	}
	o.append(record)
	return nil
}

// Flush wakes the relay worker.
func (o *Outbox) Flush(context.Context) error {
	select {
	case o.wake <- struct{}{}:
	default:
	}
	return nil
}

func (o *Outbox) Wake() <-chan struct{} {
	return o.wake
}

func (o *Outbox) append(records ...appoutbox.EventRecord) {
	if len(records) == 0 {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now()
	for _, rec := range records {
		o.entries = append(o.entries, &outboxEntry{record: rec, nextTry: now})
	}
}

// Records returns every committed record in insertion order.
func (o *Outbox) Records() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]appoutbox.EventRecord, 0, len(o.entries))
	for _, e := range o.entries {
		out = append(out, e.record)
	}
	return out
}

// Pending counts records not yet sent.
func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, e := range o.entries {
		if !e.sent {
			n++
		}
	}
	return n
}

func (o *Outbox) Claim(_ context.Context, _ string) (*infraoutbox.Message, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now()
	due := make([]*outboxEntry, 0)
	for _, e := range o.entries {
		if !e.sent && !e.claimed && !e.nextTry.After(now) {
			due = append(due, e)
		}
	}
	if len(due) == 0 {
		return nil, nil
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].record.OccurredAt.Before(due[j].record.OccurredAt) })
	e := due[0]
	e.claimed = true
	return &infraoutbox.Message{
		ID:         e.record.ID,
		Name:       e.record.Name,
		Payload:    e.record.Payload,
		OccurredAt: e.record.OccurredAt,
		Aggregate:  e.record.Aggregate,
		Headers:    e.record.Headers,
		Attempts:   e.attempts,
	}, nil
}

func (o *Outbox) MarkSent(_ context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if e := o.find(id); e != nil {
		e.sent = true
		e.claimed = false
	}
	return nil
}

func (o *Outbox) MarkFailed(_ context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if e := o.find(id); e != nil {
		e.claimed = false
		e.attempts++
		e.nextTry = next
		e.lastError = errMsg
	}
	return nil
}

func (o *Outbox) find(id string) *outboxEntry {
	for _, e := range o.entries {
		if e.record.ID == id {
			return e
		}
	}
	return nil
}

var (
	_ appoutbox.Outbox  = (*Outbox)(nil)
	_ infraoutbox.Store = (*Outbox)(nil)
)
