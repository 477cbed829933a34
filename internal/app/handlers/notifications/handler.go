package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"hotelres/internal/app/policies"
)

const (
	TemplateReservationCreated   = "reservation_created"
	TemplateReservationConfirmed = "reservation_confirmed"
	TemplateReservationCancelled = "reservation_cancelled"
)

var ErrMalformedEvent = errors.New("notifications: malformed event")

// Inbox remembers which events a consumer already handled.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
}

// Envelope is the CloudEvents wrapper the outbox relay publishes.
type Envelope struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Time time.Time       `json:"time"`
	Data json.RawMessage `json:"data"`
}

type reservationEvent struct {
	ReservationID string
	Reference     string
	RoomID        string
	CustomerID    string
	ContactEmail  string
	To            string
	Reason        string
	Range         struct {
		CheckIn  time.Time
		CheckOut time.Time
	}
}

// Message is the data handed to a notification template.
type Message struct {
	ReservationID string
	Reference     string
	RoomID        string
	CheckIn       string
	CheckOut      string
	Reason        string
}

// Handler turns reservation events into customer notifications. Events without a
// contact email or without a matching template are acknowledged and dropped.
type Handler struct {
	Notifier policies.Notifier
	Inbox    Inbox
	Logger   *slog.Logger
}

func (h *Handler) Handle(ctx context.Context, payload []byte) error {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return errors.Join(ErrMalformedEvent, err)
	}
	name := strings.TrimSuffix(env.Type, ".v1")
	if !strings.HasPrefix(name, "reservation.") {
		return nil
	}
	var ev reservationEvent
	if err := json.Unmarshal(env.Data, &ev); err != nil {
		return errors.Join(ErrMalformedEvent, err)
	}
	template := templateFor(name, ev.To)
	if template == "" || ev.ContactEmail == "" {
		return nil
	}
	if h.Inbox != nil && env.ID != "" {
		seen, err := h.Inbox.Seen(ctx, env.ID)
		if err != nil {
			return err
		}
		if seen {
			return nil
		}
	}
	msg := Message{
		ReservationID: ev.ReservationID,
		Reference:     ev.Reference,
		RoomID:        ev.RoomID,
		Reason:        ev.Reason,
	}
	if !ev.Range.CheckIn.IsZero() {
		msg.CheckIn = ev.Range.CheckIn.Format(time.DateOnly)
		msg.CheckOut = ev.Range.CheckOut.Format(time.DateOnly)
	}
	if err := h.Notifier.Send(ctx, ev.ContactEmail, template, msg); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("notification not delivered", "template", template, "reservation_id", ev.ReservationID, "error", err)
		}
		return nil
	}
	if h.Logger != nil {
		h.Logger.Info("notification sent", "template", template, "reservation_id", ev.ReservationID)
	}
	return nil
}

func templateFor(name, to string) string {
	switch name {
	case "reservation.created":
		return TemplateReservationCreated
	case "reservation.transitioned":
		switch to {
		case "CONFIRMED", "APPROVED":
			return TemplateReservationConfirmed
		case "CANCELLED":
			return TemplateReservationCancelled
		}
	}
	return ""
}
