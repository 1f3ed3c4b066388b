// Package models holds the three denormalized record sets of a registration:
// guardians, participants and registrations.
package models

import (
	"strings"
	"time"

	id "retreat/pkg/domain"
	dErrors "retreat/pkg/domain-errors"
)

// Guardian is the parent or legal guardian paying for a registration.
// Identity for reuse across registrations is the normalized email.
type Guardian struct {
	ID        id.GuardianID `json:"id"`
	FirstName string        `json:"first_name"`
	LastName  string        `json:"last_name"`
	Email     string        `json:"email"`
	Phone     string        `json:"phone"`
	Address   string        `json:"address,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (g *Guardian) FullName() string {
	return strings.TrimSpace(g.FirstName + " " + g.LastName)
}

type EmergencyContact struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship,omitempty"`
}

// Participant is one youth attending the retreat.
type Participant struct {
	ID               id.ParticipantID  `json:"id"`
	GuardianID       id.GuardianID     `json:"guardian_id"`
	RegistrationID   id.RegistrationID `json:"registration_id"`
	FirstName        string            `json:"first_name"`
	LastName         string            `json:"last_name"`
	BirthDate        time.Time         `json:"birth_date"`
	Gender           string            `json:"gender,omitempty"`
	Grade            string            `json:"grade,omitempty"`
	ShirtSize        string            `json:"shirt_size,omitempty"`
	Allergies        string            `json:"allergies,omitempty"`
	Medical          string            `json:"medical,omitempty"`
	EmergencyContact EmergencyContact  `json:"emergency_contact"`
	CreatedAt        time.Time         `json:"created_at"`
}

func (p *Participant) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Registration links one guardian to the participants paid for in a single
// payment. GuardianName, GuardianEmail and ParticipantNames are copies kept
// for the admin table and search.
//
// Invariants:
//   - PaymentIntentID is unique across registrations
//   - Status transitions follow Status.CanTransitionTo
//   - RefundID and RefundedAt are set only when Status is refunded
type Registration struct {
	ID               id.RegistrationID  `json:"id"`
	EventSlug        string             `json:"event_slug"`
	GuardianID       id.GuardianID      `json:"guardian_id"`
	ParticipantIDs   []id.ParticipantID `json:"participant_ids"`
	Status           Status             `json:"status"`
	AmountCents      int64              `json:"amount_cents"`
	Currency         string             `json:"currency"`
	PaymentIntentID  string             `json:"payment_intent_id"`
	RefundID         string             `json:"refund_id,omitempty"`
	WaiverID         string             `json:"waiver_id,omitempty"`
	SignedBy         string             `json:"signed_by,omitempty"`
	SignedAt         *time.Time         `json:"signed_at,omitempty"`
	SubmittedFrom    string             `json:"submitted_from,omitempty"`
	GuardianName     string             `json:"guardian_name"`
	GuardianEmail    string             `json:"guardian_email"`
	ParticipantNames []string           `json:"participant_names"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
	RefundedAt       *time.Time         `json:"refunded_at,omitempty"`
}

// CanRefund checks the registration is paid and not yet refunded.
func (r *Registration) CanRefund() error {
	if !r.Status.CanTransitionTo(StatusRefunded) {
		return dErrors.New(dErrors.CodeInvariantViolation, "only confirmed registrations can be refunded")
	}
	if r.PaymentIntentID == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "registration has no payment to refund")
	}
	return nil
}

// ApplyRefund marks the registration refunded. Call CanRefund first.
func (r *Registration) ApplyRefund(refundID string, now time.Time) {
	r.Status = StatusRefunded
	r.RefundID = refundID
	r.RefundedAt = &now
	r.UpdatedAt = now
}

// Refund validates and applies a refund in one call.
func (r *Registration) Refund(refundID string, now time.Time) error {
	if err := r.CanRefund(); err != nil {
		return err
	}
	r.ApplyRefund(refundID, now)
	return nil
}

// NeedsForceDelete reports whether deleting would discard a payment that was
// never refunded.
func (r *Registration) NeedsForceDelete() bool {
	return r.Status == StatusConfirmed
}

// SearchText is the lower-cased haystack used by Filter.Matches and stored
// alongside the row in Postgres.
func (r *Registration) SearchText() string {
	parts := []string{r.ID.String(), r.GuardianName, r.GuardianEmail, r.PaymentIntentID}
	parts = append(parts, r.ParticipantNames...)
	for _, pid := range r.ParticipantIDs {
		parts = append(parts, pid.String())
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// RegistrationDetails is a registration with its guardian and participants.
type RegistrationDetails struct {
	Registration *Registration  `json:"registration"`
	Guardian     *Guardian      `json:"guardian"`
	Participants []*Participant `json:"participants"`
}

// Summary aggregates registrations for the admin dashboard.
type Summary struct {
	Total         int   `json:"total"`
	Pending       int   `json:"pending"`
	Confirmed     int   `json:"confirmed"`
	Refunded      int   `json:"refunded"`
	Participants  int   `json:"participants"`
	GrossCents    int64 `json:"gross_cents"`
	RefundedCents int64 `json:"refunded_cents"`
	NetCents      int64 `json:"net_cents"`
}

// Add folds one registration into the summary. Participants count only
// confirmed registrations.
func (s *Summary) Add(r *Registration) {
	s.Total++
	switch r.Status {
	case StatusPendingPayment:
		s.Pending++
	case StatusConfirmed:
		s.Confirmed++
		s.Participants += len(r.ParticipantIDs)
		s.GrossCents += r.AmountCents
	case StatusRefunded:
		s.Refunded++
		s.GrossCents += r.AmountCents
		s.RefundedCents += r.AmountCents
	}
	s.NetCents = s.GrossCents - s.RefundedCents
}
