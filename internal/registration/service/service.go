// Package service runs the registration workflow: pricing, payment intents,
// atomic confirmation and the staff actions on stored registrations.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"retreat/internal/audit"
	"retreat/internal/event"
	"retreat/internal/notify"
	"retreat/internal/registration/metrics"
	"retreat/pkg/attrs"
	dErrors "retreat/pkg/domain-errors"
	"retreat/pkg/platform/sentinel"
	"retreat/pkg/requestcontext"
)

const tracerName = "retreat/internal/registration/service"

// Service orchestrates registrations across the record stores, the payment
// gateway and the best-effort side effects (waiver, email, audit).
type Service struct {
	event          event.Event
	stores         Stores
	tx             StoreTx
	gateway        PaymentGateway
	waivers        WaiverStore
	mailer         Mailer
	templates      *notify.Templates
	auditPublisher AuditPublisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithMailer enables confirmation and refund emails.
func WithMailer(mailer Mailer, templates *notify.Templates) Option {
	return func(s *Service) {
		s.mailer = mailer
		s.templates = templates
	}
}

// WithWaiverStore enables PDF waiver generation on confirmation.
func WithWaiverStore(store WaiverStore) Option {
	return func(s *Service) {
		s.waivers = store
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		s.tracer = tp.Tracer(tracerName)
	}
}

// New constructs a Service. stores serves reads outside transactions; tx
// serves the multi-record writes.
func New(ev event.Event, stores Stores, tx StoreTx, gateway PaymentGateway, opts ...Option) (*Service, error) {
	if stores.Guardians == nil || stores.Participants == nil || stores.Registrations == nil {
		return nil, errors.New("guardian, participant and registration stores are required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner is required")
	}
	if gateway == nil {
		return nil, errors.New("payment gateway is required")
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	s := &Service{
		event:   ev,
		stores:  stores,
		tx:      tx,
		gateway: gateway,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.mailer != nil && s.templates == nil {
		return nil, errors.New("mailer requires templates")
	}
	return s, nil
}

// Event returns the retreat this service sells.
func (s *Service) Event() event.Event {
	return s.event
}

func (s *Service) startSpan(ctx context.Context, name string, kv ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "registration."+name, trace.WithAttributes(kv...))
}

// endSpan records err on the span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	span.End()
}

func (s *Service) logAudit(ctx context.Context, action string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", action, "log_type", "audit")
	s.logger.InfoContext(ctx, action, args...)
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Action:         action,
		RegistrationID: attrs.ExtractString(attributes, "registration_id"),
		Actor:          attrs.ExtractString(attributes, "actor"),
		RequestID:      attrs.ExtractString(attributes, "request_id"),
		Details:        attrs.Details(attributes, "registration_id", "actor", "request_id"),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to publish audit event", "action", action, "error", err)
	}
}

// postCommitFailed logs a best-effort step that failed after the registration
// was already stored.
func (s *Service) postCommitFailed(ctx context.Context, step string, err error, attributes ...any) {
	args := append([]any{"step", step, "error", err}, attributes...)
	s.logger.WarnContext(ctx, "post-commit step failed", args...)
	if s.metrics != nil {
		s.metrics.IncrementPostCommitFailure(step)
	}
}

// storeError translates store sentinels into domain errors.
func storeError(err error, what string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, what+" not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, what+" already exists")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeConflict, what+" is in the wrong state")
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "timed out loading "+what)
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load "+what)
	}
}

func now(ctx context.Context) time.Time {
	return requestcontext.Now(ctx).UTC()
}
