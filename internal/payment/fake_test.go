package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "retreat/pkg/domain-errors"
)

func TestFakeGateway_Lifecycle(t *testing.T) {
	ctx := context.Background()
	g := NewFakeGateway(false)

	intent, err := g.CreateIntent(ctx, CreateIntentParams{AmountCents: 25000, Currency: "usd", Metadata: map[string]string{MetaEventSlug: "summer"}})
	require.NoError(t, err)
	assert.Equal(t, StatusRequiresPaymentMethod, intent.Status)
	assert.Contains(t, intent.ClientSecret, intent.ID+"_secret_")

	_, err = g.Refund(ctx, intent.ID, "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	g.SetStatus(intent.ID, StatusSucceeded)
	got, err := g.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.True(t, got.Succeeded())
	assert.Equal(t, "summer", got.Metadata[MetaEventSlug])

	refund, err := g.Refund(ctx, intent.ID, "")
	require.NoError(t, err)
	assert.Equal(t, int64(25000), refund.AmountCents)
	assert.True(t, g.Refunded(intent.ID))

	_, err = g.Refund(ctx, intent.ID, "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestFakeGateway_UnknownIntent(t *testing.T) {
	_, err := NewFakeGateway(true).GetIntent(context.Background(), "pi_missing")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestFakeGateway_AutoSucceed(t *testing.T) {
	intent, err := NewFakeGateway(true).CreateIntent(context.Background(), CreateIntentParams{AmountCents: 100, Currency: "usd"})
	require.NoError(t, err)
	assert.True(t, intent.Succeeded())
}
