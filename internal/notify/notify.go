// Package notify sends transactional email: registration confirmations and
// refund notices.
package notify

import (
	"context"
	"errors"
	"strings"
)

// Attachment is a file sent with a message.
type Attachment struct {
	Filename string
	Content  []byte
}

type Message struct {
	To          []string
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment
}

// Mailer delivers a message.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
}

var ErrInvalidMessage = errors.New("message requires a recipient and a subject")

// Validate checks the minimum a provider will accept.
func (m Message) Validate() error {
	if len(m.To) == 0 || strings.TrimSpace(m.Subject) == "" {
		return ErrInvalidMessage
	}
	for _, to := range m.To {
		if strings.TrimSpace(to) == "" {
			return ErrInvalidMessage
		}
	}
	return nil
}
