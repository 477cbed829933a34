// Package notify delivers customer notifications by SMTP or, without a mail
// server, to the log.
package notify

import (
	"context"
	"log/slog"

	"gopkg.in/gomail.v2"

	"hotelres/internal/app/policies"
	"hotelres/internal/infra/config"
)

// Sender is the part of gomail.Dialer the mailer needs.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type Mailer struct {
	Sender Sender
	From   string
}

func NewMailer(host string, port int, username, password, from string) *Mailer {
	return &Mailer{Sender: gomail.NewDialer(host, port, username, password), From: from}
}

func (m *Mailer) Send(ctx context.Context, to string, template string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject, body, err := Render(template, data)
	if err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return m.Sender.DialAndSend(msg)
}

// LogNotifier writes rendered notifications to the logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Send(ctx context.Context, to string, template string, data any) error {
	subject, _, err := Render(template, data)
	if err != nil {
		return err
	}
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification", "to", to, "template", template, "subject", subject)
	return nil
}

var (
	_ policies.Notifier = (*Mailer)(nil)
	_ policies.Notifier = LogNotifier{}
)

// New mails through SMTP when a host is configured and logs otherwise.
func New(cfg config.SMTPConfig, logger *slog.Logger) policies.Notifier {
	if cfg.Host == "" {
		return LogNotifier{Logger: logger}
	}
	return NewMailer(cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.From)
}
