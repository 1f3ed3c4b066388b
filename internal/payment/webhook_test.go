package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v72"
)

const testSecret = "whsec_test"

func signedRequest(t *testing.T, payload string) *http.Request {
	t.Helper()
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(testSecret))
	_, _ = mac.Write([]byte(ts + "." + payload))
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewBufferString(payload))
	req.Header.Set("Stripe-Signature", fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil))))
	return req
}

func chargeRefundedPayload(eventID string) string {
	return fmt.Sprintf(`{
		"id": %q,
		"object": "event",
		"api_version": %q,
		"type": "charge.refunded",
		"created": 1767225600,
		"data": {"object": {
			"id": "ch_1",
			"object": "charge",
			"payment_intent": "pi_123",
			"amount_refunded": 40000,
			"refunded": true,
			"refunds": {"object": "list", "data": [{"id": "re_9", "object": "refund"}]}
		}}
	}`, eventID, stripe.APIVersion)
}

func newTestWebhook() *Webhook {
	return NewWebhook(testSecret, NewMemoryEventLog(time.Hour), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestWebhook_DispatchesVerifiedEvent(t *testing.T) {
	h := newTestWebhook()
	var got Event
	h.Handle(EventChargeRefunded, func(_ context.Context, ev Event) error {
		got = ev
		return nil
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, signedRequest(t, chargeRefundedPayload("evt_1")))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "evt_1", got.ID)
	assert.Equal(t, "pi_123", got.PaymentIntentID)
	assert.Equal(t, "re_9", got.RefundID)
	assert.Equal(t, int64(40000), got.AmountRefunded)
	assert.True(t, got.FullyRefunded)
}

func TestWebhook_RejectsBadSignature(t *testing.T) {
	h := newTestWebhook()
	called := false
	h.Handle(EventChargeRefunded, func(context.Context, Event) error {
		called = true
		return nil
	})

	req := signedRequest(t, chargeRefundedPayload("evt_1"))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.False(t, called)
}

func TestWebhook_DeduplicatesDeliveries(t *testing.T) {
	h := newTestWebhook()
	calls := 0
	h.Handle(EventChargeRefunded, func(context.Context, Event) error {
		calls++
		return nil
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, signedRequest(t, chargeRefundedPayload("evt_dup")))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, signedRequest(t, chargeRefundedPayload("evt_dup")))
	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, 1, calls)
}

func TestWebhook_HandlerFailureAllowsRetry(t *testing.T) {
	h := newTestWebhook()
	calls := 0
	h.Handle(EventChargeRefunded, func(context.Context, Event) error {
		calls++
		if calls == 1 {
			return errors.New("database down")
		}
		return nil
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, signedRequest(t, chargeRefundedPayload("evt_retry")))
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, signedRequest(t, chargeRefundedPayload("evt_retry")))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 2, calls)
}

func TestWebhook_IgnoresUnhandledTypes(t *testing.T) {
	h := newTestWebhook()
	payload := fmt.Sprintf(`{"id":"evt_x","object":"event","api_version":%q,"type":"customer.created","data":{"object":{}}}`, stripe.APIVersion)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, signedRequest(t, payload))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestWebhook_DecodesPaymentFailure(t *testing.T) {
	h := newTestWebhook()
	var got Event
	h.Handle(EventPaymentIntentFailed, func(_ context.Context, ev Event) error {
		got = ev
		return nil
	})
	payload := fmt.Sprintf(`{"id":"evt_f","object":"event","api_version":%q,"type":"payment_intent.payment_failed",
		"data":{"object":{"id":"pi_9","object":"payment_intent","last_payment_error":{"message":"Your card was declined."}}}}`, stripe.APIVersion)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, signedRequest(t, payload))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pi_9", got.PaymentIntentID)
	assert.Equal(t, "Your card was declined.", got.FailureMessage)
}
