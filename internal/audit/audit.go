// Package audit records staff and system actions on registrations. Events go
// to a Sink: the log in development, the Postgres outbox in production, from
// where the Worker forwards them to Kafka.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"retreat/pkg/requestcontext"
)

// Actions recorded by the registration workflow.
const (
	ActionRegistrationConfirmed = "registration_confirmed"
	ActionRegistrationRefunded  = "registration_refunded"
	ActionRegistrationDeleted   = "registration_deleted"
	ActionConfirmationResent    = "confirmation_resent"
	ActionRegistrationsExported = "registrations_exported"
	ActionAdminLogin            = "admin_login"
	ActionAdminLoginFailed      = "admin_login_failed"
)

// Event is one audited action. Keep it transport-agnostic so sinks can fan out.
type Event struct {
	Action         string            `json:"action"`
	RegistrationID string            `json:"registration_id,omitempty"`
	Actor          string            `json:"actor,omitempty"`
	RequestID      string            `json:"request_id,omitempty"`
	Timestamp      time.Time         `json:"timestamp"`
	Details        map[string]string `json:"details,omitempty"`
}

// Sink persists audit events.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

var ErrMissingAction = errors.New("audit event requires an action")

// Publisher stamps events with time and request ID before handing them to
// the sink.
type Publisher struct {
	sink   Sink
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

func NewPublisher(sink Sink, opts ...Option) *Publisher {
	p := &Publisher{sink: sink, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit appends the event. Failures are logged and returned; callers decide
// whether the audited operation may proceed.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Action == "" {
		return ErrMissingAction
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now().UTC()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if err := p.sink.Append(ctx, event); err != nil {
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "failed to append audit event",
				"action", event.Action,
				"registration_id", event.RegistrationID,
				"error", err,
			)
		}
		return err
	}
	return nil
}
