package payment

import (
	"context"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	dErrors "retreat/pkg/domain-errors"
)

// FakeGateway is an in-process Gateway for tests and PAYMENTS_FAKE mode.
// With AutoSucceed, new intents start out succeeded so the full flow can run
// without a card form.
type FakeGateway struct {
	mu          sync.Mutex
	intents     map[string]*Intent
	refunds     map[string]*Refund
	AutoSucceed bool
	now         func() time.Time
}

func NewFakeGateway(autoSucceed bool) *FakeGateway {
	return &FakeGateway{
		intents:     make(map[string]*Intent),
		refunds:     make(map[string]*Refund),
		AutoSucceed: autoSucceed,
		now:         time.Now,
	}
}

func (g *FakeGateway) CreateIntent(_ context.Context, p CreateIntentParams) (*Intent, error) {
	if p.AmountCents <= 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "amount must be positive")
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	id := "pi_fake_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	status := StatusRequiresPaymentMethod
	if g.AutoSucceed {
		status = StatusSucceeded
	}
	intent := &Intent{
		ID:           id,
		ClientSecret: id + "_secret_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
		Status:       status,
		AmountCents:  p.AmountCents,
		Currency:     p.Currency,
		ReceiptEmail: p.ReceiptEmail,
		Metadata:     maps.Clone(p.Metadata),
		CreatedAt:    g.now().UTC(),
	}
	g.intents[id] = intent
	cp := *intent
	return &cp, nil
}

func (g *FakeGateway) GetIntent(_ context.Context, intentID string) (*Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	intent, ok := g.intents[intentID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "payment not found")
	}
	cp := *intent
	return &cp, nil
}

func (g *FakeGateway) Refund(_ context.Context, intentID, _ string) (*Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	intent, ok := g.intents[intentID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "payment not found")
	}
	if _, done := g.refunds[intentID]; done {
		return nil, dErrors.New(dErrors.CodeConflict, "payment already refunded")
	}
	if !intent.Succeeded() {
		return nil, dErrors.New(dErrors.CodeConflict, "payment has not succeeded")
	}
	r := &Refund{
		ID:              "re_fake_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		PaymentIntentID: intentID,
		Status:          "succeeded",
		AmountCents:     intent.AmountCents,
	}
	g.refunds[intentID] = r
	cp := *r
	return &cp, nil
}

// SetStatus overrides an intent's status, simulating the payer completing
// (or failing) the card form.
func (g *FakeGateway) SetStatus(intentID, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if intent, ok := g.intents[intentID]; ok {
		intent.Status = status
	}
}

// SetCreatedAt backdates an intent for quote-at-creation tests.
func (g *FakeGateway) SetCreatedAt(intentID string, t time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if intent, ok := g.intents[intentID]; ok {
		intent.CreatedAt = t
	}
}

// Refunded reports whether an intent was refunded through this gateway.
func (g *FakeGateway) Refunded(intentID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.refunds[intentID]
	return ok
}
