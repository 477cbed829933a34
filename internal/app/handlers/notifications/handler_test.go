package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	domainreservation "hotelres/internal/domain/reservation"
	"hotelres/internal/domain/shared/daterange"
)

type sent struct {
	to       string
	template string
	msg      Message
}

type recordingNotifier struct {
	mu   sync.Mutex
	err  error
	sent []sent
}

func (n *recordingNotifier) Send(_ context.Context, to, template string, data any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sent{to: to, template: template, msg: data.(Message)})
	return nil
}

type setInbox map[string]bool

func (s setInbox) Seen(_ context.Context, id string) (bool, error) {
	if s[id] {
		return true, nil
	}
	s[id] = true
	return false, nil
}

func envelope(t *testing.T, id, eventType string, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	payload, err := json.Marshal(Envelope{ID: id, Type: eventType, Time: time.Now().UTC(), Data: raw})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return payload
}

func TestHandleSendsTemplatesPerEvent(t *testing.T) {
	checkIn, _ := daterange.ParseDay("2026-05-10")
	checkOut, _ := daterange.ParseDay("2026-05-13")
	dr, _ := daterange.New(checkIn, checkOut)

	notifier := &recordingNotifier{}
	h := &Handler{Notifier: notifier, Inbox: setInbox{}}
	ctx := context.Background()

	created := domainreservation.ReservationCreated{ReservationID: "r1", Reference: "BKAAAA", RoomID: "101", ContactEmail: "guest@example.com", Range: dr}
	confirmed := domainreservation.ReservationTransitioned{ReservationID: "r1", Reference: "BKAAAA", ContactEmail: "guest@example.com", From: domainreservation.StatePending, To: domainreservation.StateConfirmed}
	cancelled := domainreservation.ReservationTransitioned{ReservationID: "r1", Reference: "BKAAAA", ContactEmail: "guest@example.com", From: domainreservation.StateConfirmed, To: domainreservation.StateCancelled, Reason: "sick"}
	checkedIn := domainreservation.ReservationTransitioned{ReservationID: "r1", ContactEmail: "guest@example.com", To: domainreservation.StateCheckedIn}

	for i, payload := range [][]byte{
		envelope(t, "e1", "reservation.created.v1", created),
		envelope(t, "e2", "reservation.transitioned.v1", confirmed),
		envelope(t, "e3", "reservation.transitioned.v1", cancelled),
		envelope(t, "e4", "reservation.transitioned.v1", checkedIn),
		envelope(t, "e5", "calendar.blocked.v1", map[string]string{"RoomID": "101"}),
	} {
		if err := h.Handle(ctx, payload); err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
	}

	if len(notifier.sent) != 3 {
		t.Fatalf("sent %d notifications: %+v", len(notifier.sent), notifier.sent)
	}
	want := []string{TemplateReservationCreated, TemplateReservationConfirmed, TemplateReservationCancelled}
	for i, s := range notifier.sent {
		if s.template != want[i] || s.to != "guest@example.com" {
			t.Fatalf("notification %d = %+v", i, s)
		}
	}
	if first := notifier.sent[0].msg; first.CheckIn != "2026-05-10" || first.CheckOut != "2026-05-13" || first.Reference != "BKAAAA" {
		t.Fatalf("created message = %+v", first)
	}
	if notifier.sent[2].msg.Reason != "sick" {
		t.Fatalf("cancel reason = %q", notifier.sent[2].msg.Reason)
	}
}

func TestHandleDedupesRedeliveries(t *testing.T) {
	notifier := &recordingNotifier{}
	h := &Handler{Notifier: notifier, Inbox: setInbox{}}
	payload := envelope(t, "e1", "reservation.created.v1", domainreservation.ReservationCreated{ReservationID: "r1", ContactEmail: "a@b.io"})
	for i := 0; i < 3; i++ {
		if err := h.Handle(context.Background(), payload); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("sent %d, want 1", len(notifier.sent))
	}
}

func TestHandleSkipsMissingEmailAndSwallowsSendErrors(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	h := &Handler{Notifier: notifier}
	ctx := context.Background()
	if err := h.Handle(ctx, envelope(t, "e1", "reservation.created.v1", domainreservation.ReservationCreated{ReservationID: "r1"})); err != nil {
		t.Fatalf("no email: %v", err)
	}
	if err := h.Handle(ctx, envelope(t, "e2", "reservation.created.v1", domainreservation.ReservationCreated{ReservationID: "r1", ContactEmail: "a@b.io"})); err != nil {
		t.Fatalf("send failure surfaced: %v", err)
	}
}

func TestHandleRejectsMalformedPayload(t *testing.T) {
	h := &Handler{Notifier: &recordingNotifier{}}
	if err := h.Handle(context.Background(), []byte("{")); !errors.Is(err, ErrMalformedEvent) {
		t.Fatalf("err = %v", err)
	}
}
