package service

import (
	"context"
	"errors"
	"strconv"

	"retreat/internal/audit"
	"retreat/internal/payment"
	"retreat/internal/registration/models"
	"retreat/pkg/platform/sentinel"
)

// HandlePaymentEvent reacts to verified payment webhooks. A full refund made
// outside the admin portal marks the registration refunded; failed payments
// are logged. Returning an error makes the processor retry the delivery.
func (s *Service) HandlePaymentEvent(ctx context.Context, ev payment.Event) (err error) {
	ctx, span := s.startSpan(ctx, "HandlePaymentEvent")
	defer func() { endSpan(span, err) }()

	switch ev.Type {
	case payment.EventChargeRefunded:
		return s.applyExternalRefund(ctx, ev)
	case payment.EventPaymentIntentFailed:
		s.logger.WarnContext(ctx, "payment failed",
			"payment_intent_id", ev.PaymentIntentID,
			"reason", ev.FailureMessage,
			"event_id", ev.ID,
		)
	case payment.EventPaymentIntentSucceed:
		s.logger.InfoContext(ctx, "payment succeeded",
			"payment_intent_id", ev.PaymentIntentID,
			"event_id", ev.ID,
		)
	}
	return nil
}

func (s *Service) applyExternalRefund(ctx context.Context, ev payment.Event) error {
	if !ev.FullyRefunded {
		s.logger.InfoContext(ctx, "partial refund ignored",
			"payment_intent_id", ev.PaymentIntentID,
			"amount_refunded", ev.AmountRefunded,
		)
		return nil
	}
	reg, err := s.stores.Registrations.FindByPaymentIntent(ctx, ev.PaymentIntentID)
	if errors.Is(err, sentinel.ErrNotFound) {
		s.logger.InfoContext(ctx, "refund for unknown payment intent", "payment_intent_id", ev.PaymentIntentID)
		return nil
	}
	if err != nil {
		return storeError(err, "registration")
	}
	if reg.Status == models.StatusRefunded {
		return nil
	}
	if err := reg.Refund(ev.RefundID, now(ctx)); err != nil {
		s.logger.WarnContext(ctx, "refund event for registration that cannot be refunded",
			"registration_id", reg.ID.String(),
			"status", reg.Status.String(),
		)
		return nil
	}
	if err := s.stores.Registrations.Update(ctx, reg); err != nil {
		return storeError(err, "registration")
	}
	s.logAudit(ctx, audit.ActionRegistrationRefunded,
		"registration_id", reg.ID,
		"actor", "payment-processor",
		"refund_id", ev.RefundID,
		"amount_cents", strconv.FormatInt(ev.AmountRefunded, 10),
		"source", "webhook",
		"event_id", ev.ID,
	)
	if s.metrics != nil {
		s.metrics.IncrementRefunded("webhook")
	}
	s.sendRefundNotice(ctx, reg)
	return nil
}
