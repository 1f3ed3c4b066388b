package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"retreat/internal/audit"
	"retreat/internal/notify"
	"retreat/internal/registration/models"
	"retreat/internal/waiver"
	id "retreat/pkg/domain"
	dErrors "retreat/pkg/domain-errors"
	"retreat/pkg/platform/sentinel"
)

// DeleteResult reports what a delete removed.
type DeleteResult struct {
	RegistrationID      id.RegistrationID `json:"registration_id"`
	ParticipantsDeleted int               `json:"participants_deleted"`
	GuardianDeleted     bool              `json:"guardian_deleted"`
	WaiverDeleted       bool              `json:"waiver_deleted"`
}

// GetRegistration returns a registration with its guardian and participants.
func (s *Service) GetRegistration(ctx context.Context, registrationID id.RegistrationID) (*models.RegistrationDetails, error) {
	reg, err := s.stores.Registrations.FindByID(ctx, registrationID)
	if err != nil {
		return nil, storeError(err, "registration")
	}
	return s.loadDetails(ctx, reg)
}

// ListRegistrations returns one page of the admin table.
func (s *Service) ListRegistrations(ctx context.Context, filter models.Filter) (*models.Page, error) {
	filter.Normalize()
	all, err := s.stores.Registrations.List(ctx, filter)
	if err != nil {
		return nil, storeError(err, "registrations")
	}
	page := models.Paginate(all, filter)
	return &page, nil
}

// Summarize aggregates every stored registration.
func (s *Service) Summarize(ctx context.Context) (*models.Summary, error) {
	all, err := s.stores.Registrations.List(ctx, models.Filter{})
	if err != nil {
		return nil, storeError(err, "registrations")
	}
	var sum models.Summary
	for _, r := range all {
		sum.Add(r)
	}
	return &sum, nil
}

// RefundRegistration refunds the payment of a confirmed registration and
// marks it refunded.
func (s *Service) RefundRegistration(ctx context.Context, registrationID id.RegistrationID, actor string) (reg *models.Registration, err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "RefundRegistration", attribute.String("registration_id", registrationID.String()))
	defer func() {
		endSpan(span, err)
		if s.metrics != nil {
			s.metrics.ObserveRefund(start)
		}
	}()

	reg, err = s.stores.Registrations.FindByID(ctx, registrationID)
	if err != nil {
		return nil, storeError(err, "registration")
	}
	if err := reg.CanRefund(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConflict, "registration cannot be refunded")
	}

	refund, err := s.gateway.Refund(ctx, reg.PaymentIntentID, "refund-"+reg.ID.String())
	if err != nil {
		return nil, err
	}

	reg.ApplyRefund(refund.ID, now(ctx))
	if err := s.stores.Registrations.Update(ctx, reg); err != nil {
		// The money is already back with the payer; the webhook will retry
		// marking the registration.
		s.logger.ErrorContext(ctx, "refund issued but registration not updated",
			"registration_id", reg.ID.String(),
			"refund_id", refund.ID,
			"error", err,
		)
		return nil, storeError(err, "registration")
	}

	s.logAudit(ctx, audit.ActionRegistrationRefunded,
		"registration_id", reg.ID,
		"actor", actor,
		"refund_id", refund.ID,
		"amount_cents", strconv.FormatInt(refund.AmountCents, 10),
		"source", "admin",
	)
	if s.metrics != nil {
		s.metrics.IncrementRefunded("admin")
	}
	s.sendRefundNotice(ctx, reg)
	return reg, nil
}

// DeleteRegistration removes a registration and its participants in one
// transaction. The guardian goes too unless another registration still
// references them. Confirmed registrations need force because deleting them
// discards a payment that was never refunded.
func (s *Service) DeleteRegistration(ctx context.Context, registrationID id.RegistrationID, force bool, actor string) (result *DeleteResult, err error) {
	ctx, span := s.startSpan(ctx, "DeleteRegistration",
		attribute.String("registration_id", registrationID.String()),
		attribute.Bool("force", force),
	)
	defer func() { endSpan(span, err) }()

	var reg *models.Registration
	result = &DeleteResult{RegistrationID: registrationID}
	err = s.tx.RunInTx(ctx, func(ctx context.Context, stores Stores) error {
		var err error
		reg, err = stores.Registrations.FindByID(ctx, registrationID)
		if err != nil {
			return err
		}
		if reg.NeedsForceDelete() && !force {
			return dErrors.New(dErrors.CodeConflict, "registration is paid and not refunded; refund it first or delete with force=true")
		}
		if result.ParticipantsDeleted, err = stores.Participants.DeleteByRegistration(ctx, reg.ID); err != nil {
			return err
		}
		if err := stores.Registrations.Delete(ctx, reg.ID); err != nil {
			return err
		}
		remaining, err := stores.Registrations.CountByGuardian(ctx, reg.GuardianID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			switch err := stores.Guardians.Delete(ctx, reg.GuardianID); {
			case err == nil:
				result.GuardianDeleted = true
			case !errors.Is(err, sentinel.ErrNotFound):
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, "registration")
	}

	if reg.WaiverID != "" && s.waivers != nil {
		if waiverID, parseErr := id.ParseWaiverID(reg.WaiverID); parseErr == nil {
			if err := s.waivers.Delete(ctx, waiverID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
				s.logger.WarnContext(ctx, "failed to delete waiver", "waiver_id", reg.WaiverID, "error", err)
			} else {
				result.WaiverDeleted = err == nil
			}
		}
	}

	s.logAudit(ctx, audit.ActionRegistrationDeleted,
		"registration_id", reg.ID,
		"actor", actor,
		"status", reg.Status.String(),
		"participants", strconv.Itoa(result.ParticipantsDeleted),
		"guardian_deleted", strconv.FormatBool(result.GuardianDeleted),
		"forced", strconv.FormatBool(force && reg.NeedsForceDelete()),
	)
	if s.metrics != nil {
		s.metrics.IncrementDeleted()
	}
	return result, nil
}

// ResendConfirmation emails the confirmation again, with the stored waiver.
func (s *Service) ResendConfirmation(ctx context.Context, registrationID id.RegistrationID, actor string) error {
	if s.mailer == nil {
		return dErrors.New(dErrors.CodeConflict, "email is not configured")
	}
	details, err := s.GetRegistration(ctx, registrationID)
	if err != nil {
		return err
	}
	if details.Registration.Status != models.StatusConfirmed {
		return dErrors.New(dErrors.CodeConflict, "only confirmed registrations have a confirmation to resend")
	}
	doc, err := s.loadWaiver(ctx, details.Registration)
	if err != nil {
		s.logger.WarnContext(ctx, "resending without waiver", "registration_id", registrationID.String(), "error", err)
	}
	if err := s.sendConfirmation(ctx, details, doc); err != nil {
		if errors.Is(err, notify.ErrMailerUnavailable) {
			return dErrors.Wrap(err, dErrors.CodeUpstream, "email provider is temporarily unavailable")
		}
		return dErrors.Wrap(err, dErrors.CodeUpstream, "failed to send confirmation email")
	}
	s.logAudit(ctx, audit.ActionConfirmationResent,
		"registration_id", registrationID,
		"actor", actor,
		"to", details.Guardian.Email,
	)
	return nil
}

// GetWaiver returns the stored waiver PDF of a registration.
func (s *Service) GetWaiver(ctx context.Context, registrationID id.RegistrationID) (*waiver.Document, error) {
	reg, err := s.stores.Registrations.FindByID(ctx, registrationID)
	if err != nil {
		return nil, storeError(err, "registration")
	}
	if reg.WaiverID == "" || s.waivers == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "registration has no waiver")
	}
	doc, err := s.loadWaiver(ctx, reg)
	if err != nil {
		return nil, storeError(err, "waiver")
	}
	if doc == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "waiver not found")
	}
	return doc, nil
}
