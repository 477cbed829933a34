package notify

import (
	"bytes"
	"fmt"
	"text/template"

	"hotelres/internal/app/handlers/notifications"
)

type mailTemplate struct {
	subject *template.Template
	body    *template.Template
}

var templates = map[string]mailTemplate{
	notifications.TemplateReservationCreated: mustTemplate(
		"Reservation {{.Reference}} received",
		"Your reservation {{.Reference}} for room {{.RoomID}} from {{.CheckIn}} to {{.CheckOut}} has been received.\n",
	),
	notifications.TemplateReservationConfirmed: mustTemplate(
		"Reservation {{.Reference}} confirmed",
		"Your stay in room {{.RoomID}} from {{.CheckIn}} to {{.CheckOut}} is confirmed.\nReference: {{.Reference}}\n",
	),
	notifications.TemplateReservationCancelled: mustTemplate(
		"Reservation {{.Reference}} cancelled",
		"Your reservation {{.Reference}} has been cancelled.{{if .Reason}}\nReason: {{.Reason}}{{end}}\n",
	),
}

func mustTemplate(subject, body string) mailTemplate {
	return mailTemplate{
		subject: template.Must(template.New("subject").Parse(subject)),
		body:    template.Must(template.New("body").Parse(body)),
	}
}

// Render produces the subject and plain text body for a named template.
func Render(name string, data any) (string, string, error) {
	tpl, ok := templates[name]
	if !ok {
		return "", "", fmt.Errorf("notify: unknown template %q", name)
	}
	var subject, body bytes.Buffer
	if err := tpl.subject.Execute(&subject, data); err != nil {
		return "", "", fmt.Errorf("notify: render subject: %w", err)
	}
	if err := tpl.body.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("notify: render body: %w", err)
	}
	return subject.String(), body.String(), nil
}
