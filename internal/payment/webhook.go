package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/webhook"

	"retreat/pkg/requestcontext"
)

const maxWebhookBody = 64 << 10

// EventHandlerFunc reacts to one verified event. Returning an error makes
// the webhook answer 500 so Stripe retries.
type EventHandlerFunc func(ctx context.Context, event Event) error

// Webhook verifies Stripe-Signature headers, deduplicates deliveries and
// dispatches events to registered handlers.
type Webhook struct {
	mu       sync.RWMutex
	secret   string
	log      EventLog
	logger   *slog.Logger
	handlers map[string]EventHandlerFunc
}

func NewWebhook(secret string, log EventLog, logger *slog.Logger) *Webhook {
	return &Webhook{
		secret:   secret,
		log:      log,
		logger:   logger,
		handlers: make(map[string]EventHandlerFunc),
	}
}

// Handle registers fn for an event type, replacing any earlier handler.
func (h *Webhook) Handle(eventType string, fn EventHandlerFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[eventType] = fn
}

func (h *Webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.logger.WarnContext(ctx, "webhook body unreadable", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	raw, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), h.secret)
	if err != nil {
		h.logger.WarnContext(ctx, "webhook signature rejected",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.mu.RLock()
	fn, ok := h.handlers[raw.Type]
	h.mu.RUnlock()
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}

	if h.log != nil {
		first, err := h.log.Record(ctx, raw.ID)
		if err != nil {
			h.logger.ErrorContext(ctx, "webhook event log unavailable", "error", err, "event_id", raw.ID)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if !first {
			w.WriteHeader(http.StatusAccepted)
			return
		}
	}

	event, err := decodeEvent(raw)
	if err != nil {
		h.logger.WarnContext(ctx, "webhook payload undecodable", "error", err, "event_id", raw.ID, "type", raw.Type)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := fn(ctx, event); err != nil {
		h.logger.ErrorContext(ctx, "webhook handler failed", "error", err, "event_id", raw.ID, "type", raw.Type)
		if h.log != nil {
			if ferr := h.log.Forget(ctx, raw.ID); ferr != nil {
				h.logger.ErrorContext(ctx, "webhook event log forget failed", "error", ferr, "event_id", raw.ID)
			}
		}
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func decodeEvent(raw stripe.Event) (Event, error) {
	ev := Event{ID: raw.ID, Type: raw.Type, Created: time.Unix(raw.Created, 0).UTC()}
	if raw.Data == nil {
		return ev, fmt.Errorf("event %s has no data", raw.ID)
	}
	switch raw.Type {
	case EventChargeRefunded:
		var ch stripe.Charge
		if err := json.Unmarshal(raw.Data.Raw, &ch); err != nil {
			return ev, err
		}
		if ch.PaymentIntent != nil {
			ev.PaymentIntentID = ch.PaymentIntent.ID
		}
		ev.AmountRefunded = ch.AmountRefunded
		ev.FullyRefunded = ch.Refunded
		if ch.Refunds != nil && len(ch.Refunds.Data) > 0 {
			ev.RefundID = ch.Refunds.Data[0].ID
		}
	case EventPaymentIntentFailed, EventPaymentIntentSucceed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(raw.Data.Raw, &pi); err != nil {
			return ev, err
		}
		ev.PaymentIntentID = pi.ID
		if pi.LastPaymentError != nil {
			ev.FailureMessage = pi.LastPaymentError.Msg
		}
	}
	return ev, nil
}
