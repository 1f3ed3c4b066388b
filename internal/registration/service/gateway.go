package service

import (
	"context"

	"retreat/internal/payment"
)

// PaymentGateway creates, reads and refunds card payments.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, params payment.CreateIntentParams) (*payment.Intent, error)
	GetIntent(ctx context.Context, intentID string) (*payment.Intent, error)
	Refund(ctx context.Context, intentID, idempotencyKey string) (*payment.Refund, error)
}
