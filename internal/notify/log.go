package notify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// LogMailer logs messages instead of sending them. Used in development and
// when no provider key is configured.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}
	names := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		names = append(names, a.Filename)
	}
	messageID := "log-" + uuid.NewString()
	m.logger.InfoContext(ctx, "email not sent (log mailer)",
		"message_id", messageID,
		"to", strings.Join(msg.To, ","),
		"subject", msg.Subject,
		"attachments", strings.Join(names, ","),
		"html_bytes", len(msg.HTML),
	)
	return messageID, nil
}
