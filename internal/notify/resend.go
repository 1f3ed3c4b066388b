package notify

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
)

// ResendMailer sends through the Resend API.
type ResendMailer struct {
	client  *resend.Client
	from    string
	replyTo string
}

func NewResendMailer(apiKey, from, replyTo string) *ResendMailer {
	return &ResendMailer{client: resend.NewClient(apiKey), from: from, replyTo: replyTo}
}

// Send returns the provider message ID.
func (m *ResendMailer) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}
	req := &resend.SendEmailRequest{
		From:    m.from,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
		ReplyTo: m.replyTo,
	}
	for _, a := range msg.Attachments {
		req.Attachments = append(req.Attachments, &resend.Attachment{
			Filename: a.Filename,
			Content:  a.Content,
		})
	}
	sent, err := m.client.Emails.SendWithContext(ctx, req)
	if err != nil {
		return "", fmt.Errorf("send email via resend: %w", err)
	}
	return sent.Id, nil
}
