// Package payment talks to the card processor: payment intents, refunds and
// signed webhooks.
package payment

import (
	"context"
	"time"
)

// Intent statuses the registration flow cares about.
const (
	StatusRequiresPaymentMethod = "requires_payment_method"
	StatusProcessing            = "processing"
	StatusSucceeded             = "succeeded"
	StatusCanceled              = "canceled"
)

// Webhook event types handled by the registration flow.
const (
	EventChargeRefunded       = "charge.refunded"
	EventPaymentIntentFailed  = "payment_intent.payment_failed"
	EventPaymentIntentSucceed = "payment_intent.succeeded"
)

// Metadata keys attached to every intent.
const (
	MetaEventSlug        = "event_slug"
	MetaGuardianEmail    = "guardian_email"
	MetaParticipantCount = "participant_count"
)

// Intent is the subset of a payment intent the service needs.
type Intent struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"-"`
	Status       string            `json:"status"`
	AmountCents  int64             `json:"amount_cents"`
	Currency     string            `json:"currency"`
	ReceiptEmail string            `json:"receipt_email,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

func (i *Intent) Succeeded() bool { return i.Status == StatusSucceeded }

type CreateIntentParams struct {
	AmountCents    int64
	Currency       string
	ReceiptEmail   string
	Description    string
	Metadata       map[string]string
	IdempotencyKey string
}

type Refund struct {
	ID              string `json:"id"`
	PaymentIntentID string `json:"payment_intent_id"`
	Status          string `json:"status"`
	AmountCents     int64  `json:"amount_cents"`
}

// Event is a verified webhook event reduced to what handlers need.
type Event struct {
	ID              string
	Type            string
	PaymentIntentID string
	RefundID        string
	AmountRefunded  int64
	FullyRefunded   bool
	FailureMessage  string
	Created         time.Time
}

// Gateway creates, reads and refunds payment intents.
type Gateway interface {
	CreateIntent(ctx context.Context, params CreateIntentParams) (*Intent, error)
	GetIntent(ctx context.Context, intentID string) (*Intent, error)
	Refund(ctx context.Context, intentID, idempotencyKey string) (*Refund, error)
}
