package payment

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"

	dErrors "retreat/pkg/domain-errors"
)

// StripeGateway implements Gateway over the Stripe API.
type StripeGateway struct {
	api *client.API
}

// NewStripeGateway configures a Stripe client authenticated with secretKey.
func NewStripeGateway(secretKey string) *StripeGateway {
	return &StripeGateway{api: client.New(secretKey, nil)}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, p CreateIntentParams) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(p.AmountCents),
		Currency:           stripe.String(p.Currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx
	if p.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(p.ReceiptEmail)
	}
	if p.Description != "" {
		params.Description = stripe.String(p.Description)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, translateError(err, "failed to create payment intent")
	}
	return intentFromStripe(pi), nil
}

func (g *StripeGateway) GetIntent(ctx context.Context, intentID string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := g.api.PaymentIntents.Get(intentID, params)
	if err != nil {
		return nil, translateError(err, "failed to retrieve payment intent")
	}
	return intentFromStripe(pi), nil
}

func (g *StripeGateway) Refund(ctx context.Context, intentID, idempotencyKey string) (*Refund, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}
	r, err := g.api.Refunds.New(params)
	if err != nil {
		return nil, translateError(err, "failed to refund payment")
	}
	return &Refund{
		ID:              r.ID,
		PaymentIntentID: intentID,
		Status:          string(r.Status),
		AmountCents:     r.Amount,
	}, nil
}

func intentFromStripe(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
		ReceiptEmail: pi.ReceiptEmail,
		Metadata:     pi.Metadata,
		CreatedAt:    time.Unix(pi.Created, 0).UTC(),
	}
}

// translateError maps Stripe API errors onto domain codes. Card declines are
// the payer's problem (402); missing resources are 404; everything else is
// an upstream failure.
func translateError(err error, message string) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return dErrors.Wrap(err, dErrors.CodeUpstream, message)
	}
	switch {
	case se.Type == stripe.ErrorTypeCard:
		return dErrors.Wrap(err, dErrors.CodePaymentRequired, se.Msg)
	case se.HTTPStatusCode == http.StatusNotFound:
		return dErrors.Wrap(err, dErrors.CodeNotFound, "payment not found")
	case se.Code == stripe.ErrorCodeChargeAlreadyRefunded:
		return dErrors.Wrap(err, dErrors.CodeConflict, "payment already refunded")
	case se.HTTPStatusCode == http.StatusBadRequest:
		return dErrors.Wrap(err, dErrors.CodeBadRequest, se.Msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeUpstream, message)
	}
}
