package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"gopkg.in/gomail.v2"

	"hotelres/internal/app/handlers/notifications"
	"hotelres/internal/infra/config"
)

type captureSender struct {
	msgs []*gomail.Message
	err  error
}

func (s *captureSender) DialAndSend(m ...*gomail.Message) error {
	s.msgs = append(s.msgs, m...)
	return s.err
}

func sampleMessage() notifications.Message {
	return notifications.Message{
		ReservationID: "r1",
		Reference:     "BKQ7X2MA",
		RoomID:        "101",
		CheckIn:       "2026-05-10",
		CheckOut:      "2026-05-13",
		Reason:        "plans changed",
	}
}

func TestRenderCancelledIncludesReason(t *testing.T) {
	subject, body, err := Render(notifications.TemplateReservationCancelled, sampleMessage())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if subject != "Reservation BKQ7X2MA cancelled" {
		t.Fatalf("subject = %q", subject)
	}
	if !strings.Contains(body, "Reason: plans changed") {
		t.Fatalf("body = %q", body)
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	if _, _, err := Render("nope", nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestMailerBuildsMessage(t *testing.T) {
	sender := &captureSender{}
	m := &Mailer{Sender: sender, From: "desk@hotel.local"}
	if err := m.Send(context.Background(), "alice@example.com", notifications.TemplateReservationConfirmed, sampleMessage()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(sender.msgs) != 1 {
		t.Fatalf("sent %d messages", len(sender.msgs))
	}
	msg := sender.msgs[0]
	if got := msg.GetHeader("To"); len(got) != 1 || got[0] != "alice@example.com" {
		t.Fatalf("to = %v", got)
	}
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(buf.String(), "is confirmed") {
		t.Fatalf("message = %s", buf.String())
	}
}

func TestMailerPropagatesSendFailure(t *testing.T) {
	boom := errors.New("smtp down")
	m := &Mailer{Sender: &captureSender{err: boom}, From: "desk@hotel.local"}
	err := m.Send(context.Background(), "alice@example.com", notifications.TemplateReservationCreated, sampleMessage())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := LogNotifier{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	if err := n.Send(context.Background(), "alice@example.com", notifications.TemplateReservationCreated, sampleMessage()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.Contains(buf.String(), "BKQ7X2MA") {
		t.Fatalf("log = %s", buf.String())
	}
}

func TestNewPicksLogNotifierWithoutHost(t *testing.T) {
	if _, ok := New(config.SMTPConfig{}, nil).(LogNotifier); !ok {
		t.Fatal("expected log notifier")
	}
	if _, ok := New(config.SMTPConfig{Host: "smtp.local", Port: 25}, nil).(*Mailer); !ok {
		t.Fatal("expected mailer")
	}
}
