package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

// EmailData is the view model shared by all templates.
type EmailData struct {
	EventName      string
	Location       string
	StartsAt       time.Time
	EndsAt         time.Time
	GuardianName   string
	Participants   []string
	Amount         string
	RegistrationID string
	RefundID       string
	DaysUntil      int
	WaiverAttached bool
}

// Templates renders the HTML emails.
type Templates struct {
	tmpl *template.Template
}

func NewTemplates() (*Templates, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &Templates{tmpl: tmpl}, nil
}

// MustTemplates panics if the embedded templates do not parse.
func MustTemplates() *Templates {
	t, err := NewTemplates()
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Templates) Confirmation(to string, data EmailData) (Message, error) {
	subject := "You're registered for " + data.EventName
	return t.render("confirmation", to, subject, data, confirmationText(data))
}

func (t *Templates) Refund(to string, data EmailData) (Message, error) {
	subject := "Refund issued for " + data.EventName
	text := fmt.Sprintf("Hi %s,\n\nWe have refunded %s for %s.\n", data.GuardianName, data.Amount, strings.Join(data.Participants, ", "))
	return t.render("refund", to, subject, data, text)
}

func (t *Templates) render(name, to, subject string, data EmailData, text string) (Message, error) {
	var buf bytes.Buffer
	if err := t.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", name, err)
	}
	return Message{To: []string{to}, Subject: subject, HTML: buf.String(), Text: text}, nil
}

func confirmationText(d EmailData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\nYour registration for %s is confirmed.\n", d.GuardianName, d.EventName)
	fmt.Fprintf(&b, "Dates: %s to %s\n", d.StartsAt.Format("Jan 2"), d.EndsAt.Format("Jan 2, 2006"))
	fmt.Fprintf(&b, "Participants: %s\n", strings.Join(d.Participants, ", "))
	fmt.Fprintf(&b, "Amount paid: %s\n", d.Amount)
	fmt.Fprintf(&b, "Registration: %s\n", d.RegistrationID)
	return b.String()
}
