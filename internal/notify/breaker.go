package notify

import (
	"context"
	"errors"
	"log/slog"

	"retreat/pkg/platform/circuit"
)

var ErrMailerUnavailable = errors.New("email provider unavailable")

// BreakerMailer stops calling a failing provider for a cooldown period so a
// provider outage does not stall every registration.
type BreakerMailer struct {
	next    Mailer
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewBreakerMailer(next Mailer, breaker *circuit.Breaker, logger *slog.Logger) *BreakerMailer {
	return &BreakerMailer{next: next, breaker: breaker, logger: logger}
}

func (m *BreakerMailer) Send(ctx context.Context, msg Message) (string, error) {
	if !m.breaker.Allow() {
		return "", ErrMailerUnavailable
	}
	id, err := m.next.Send(ctx, msg)
	if err != nil {
		if errors.Is(err, ErrInvalidMessage) {
			return "", err
		}
		if _, change := m.breaker.RecordFailure(); change.Opened {
			m.logger.WarnContext(ctx, "email circuit opened", "breaker", m.breaker.Name(), "error", err)
		}
		return "", err
	}
	if _, change := m.breaker.RecordSuccess(); change.Closed {
		m.logger.InfoContext(ctx, "email circuit closed", "breaker", m.breaker.Name())
	}
	return id, nil
}
