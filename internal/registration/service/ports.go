package service

import (
	"context"
	"time"

	"retreat/internal/audit"
	"retreat/internal/notify"
	"retreat/internal/payment"
	"retreat/internal/registration/models"
	"retreat/internal/waiver"
	id "retreat/pkg/domain"
)

// GuardianStore persists guardians. Email is unique.
type GuardianStore interface {
	Create(ctx context.Context, g *models.Guardian) error
	Update(ctx context.Context, g *models.Guardian) error
	FindByID(ctx context.Context, guardianID id.GuardianID) (*models.Guardian, error)
	FindByEmail(ctx context.Context, email string) (*models.Guardian, error)
	Delete(ctx context.Context, guardianID id.GuardianID) error
}

// ParticipantStore persists participants.
type ParticipantStore interface {
	CreateMany(ctx context.Context, participants []*models.Participant) error
	ListByRegistration(ctx context.Context, registrationID id.RegistrationID) ([]*models.Participant, error)
	DeleteByRegistration(ctx context.Context, registrationID id.RegistrationID) (int, error)
}

// RegistrationStore persists registrations. PaymentIntentID is unique.
type RegistrationStore interface {
	Create(ctx context.Context, r *models.Registration) error
	Update(ctx context.Context, r *models.Registration) error
	// SetWaiver links a stored waiver without touching status or refund columns.
	SetWaiver(ctx context.Context, registrationID id.RegistrationID, waiverID string, updatedAt time.Time) error
	FindByID(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error)
	FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Registration, error)
	// List returns every registration matching the filter's status and query,
	// newest first. Paging is applied by the caller.
	List(ctx context.Context, filter models.Filter) ([]*models.Registration, error)
	CountByGuardian(ctx context.Context, guardianID id.GuardianID) (int, error)
	// CountParticipants sums participants on confirmed registrations for an event.
	CountParticipants(ctx context.Context, eventSlug string) (int, error)
	Delete(ctx context.Context, registrationID id.RegistrationID) error
}

// Stores bundles the three record sets so a transaction can hand out
// transaction-bound implementations of all of them together.
type Stores struct {
	Guardians     GuardianStore
	Participants  ParticipantStore
	Registrations RegistrationStore
}

// StoreTx runs fn atomically. Either every write made through the given
// Stores commits or none does.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}

type WaiverStore interface {
	Save(ctx context.Context, doc *waiver.Document) error
	Get(ctx context.Context, waiverID id.WaiverID) (*waiver.Document, error)
	Delete(ctx context.Context, waiverID id.WaiverID) error
}

type Mailer interface {
	Send(ctx context.Context, msg notify.Message) (string, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// compile-time check that the payment adapters satisfy the port
var (
	_ PaymentGateway = (*payment.StripeGateway)(nil)
	_ PaymentGateway = (*payment.FakeGateway)(nil)
)
