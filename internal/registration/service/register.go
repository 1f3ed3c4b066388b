package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"retreat/internal/audit"
	"retreat/internal/event"
	"retreat/internal/payment"
	"retreat/internal/registration/models"
	id "retreat/pkg/domain"
	dErrors "retreat/pkg/domain-errors"
	"retreat/pkg/platform/sentinel"
	"retreat/pkg/requestcontext"
)

// PaymentIntentResult is what the registration form needs to collect the card.
type PaymentIntentResult struct {
	ClientSecret    string      `json:"client_secret"`
	PaymentIntentID string      `json:"payment_intent_id"`
	AmountCents     int64       `json:"amount_cents"`
	Currency        string      `json:"currency"`
	Quote           event.Quote `json:"quote"`
}

// ConfirmResult is the outcome of ConfirmRegistration. Created is false when
// the payment intent had already been confirmed.
type ConfirmResult struct {
	Details *models.RegistrationDetails
	Created bool
}

// Quote prices a registration for the given number of participants at the
// current time.
func (s *Service) Quote(ctx context.Context, participants int) (event.Quote, error) {
	if participants < 1 || participants > s.event.MaxParticipants {
		return event.Quote{}, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("participants must be between 1 and %d", s.event.MaxParticipants))
	}
	return s.event.Quote(participants, now(ctx)), nil
}

// CreatePaymentIntent validates the form, prices it server-side and opens a
// payment intent for that amount.
func (s *Service) CreatePaymentIntent(ctx context.Context, req *models.RegistrationRequest) (result *PaymentIntentResult, err error) {
	ctx, span := s.startSpan(ctx, "CreatePaymentIntent")
	defer func() { endSpan(span, err) }()

	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "registration is required")
	}
	req.Normalize()
	if err := req.Validate(s.event); err != nil {
		return nil, err
	}

	at := now(ctx)
	if !s.event.IsOpen(at) {
		return nil, dErrors.New(dErrors.CodeClosed, "registration is closed")
	}
	n := len(req.Participants)
	if err := s.checkCapacity(ctx, n); err != nil {
		return nil, err
	}

	quote := s.event.Quote(n, at)
	intent, err := s.gateway.CreateIntent(ctx, payment.CreateIntentParams{
		AmountCents:  quote.AmountCents,
		Currency:     quote.Currency,
		ReceiptEmail: req.Guardian.Email,
		Description:  fmt.Sprintf("%s registration (%d participants)", s.event.Name, n),
		Metadata: map[string]string{
			payment.MetaEventSlug:        s.event.Slug,
			payment.MetaGuardianEmail:    req.Guardian.Email,
			payment.MetaParticipantCount: strconv.Itoa(n),
		},
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("payment_intent_id", intent.ID))

	if s.metrics != nil {
		s.metrics.IncrementIntentCreated()
	}
	s.logger.InfoContext(ctx, "payment intent created",
		"payment_intent_id", intent.ID,
		"amount_cents", quote.AmountCents,
		"participants", n,
		"request_id", requestcontext.RequestID(ctx),
	)
	return &PaymentIntentResult{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		AmountCents:     intent.AmountCents,
		Currency:        intent.Currency,
		Quote:           quote,
	}, nil
}

func (s *Service) checkCapacity(ctx context.Context, requested int) error {
	if s.event.Capacity <= 0 {
		return nil
	}
	taken, err := s.stores.Registrations.CountParticipants(ctx, s.event.Slug)
	if err != nil {
		return storeError(err, "registrations")
	}
	if left := s.event.Capacity - taken; requested > left {
		return dErrors.New(dErrors.CodeConflict, fmt.Sprintf("only %d places left", max(left, 0)))
	}
	return nil
}

// ConfirmRegistration stores the guardian, participants and registration for
// a succeeded payment in one transaction. Calling it again for the same
// payment intent returns the stored registration.
func (s *Service) ConfirmRegistration(ctx context.Context, paymentIntentID string, req *models.RegistrationRequest) (result *ConfirmResult, err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "ConfirmRegistration", attribute.String("payment_intent_id", paymentIntentID))
	defer func() {
		endSpan(span, err)
		if s.metrics != nil {
			s.metrics.ObserveConfirm(start)
		}
	}()

	paymentIntentID = strings.TrimSpace(paymentIntentID)
	if paymentIntentID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "payment_intent_id is required")
	}
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "registration is required")
	}
	req.Normalize()
	if err := req.Validate(s.event); err != nil {
		return nil, err
	}

	if existing, err := s.existingForIntent(ctx, paymentIntentID); err != nil || existing != nil {
		return existing, err
	}

	intent, err := s.gateway.GetIntent(ctx, paymentIntentID)
	if err != nil {
		return nil, err
	}
	if err := s.verifyIntent(intent, req); err != nil {
		return nil, err
	}

	at := now(ctx)
	guardian, participants, reg := s.buildRecords(ctx, intent, req, at)

	err = s.tx.RunInTx(ctx, func(ctx context.Context, stores Stores) error {
		stored, err := upsertGuardian(ctx, stores.Guardians, guardian, at)
		if err != nil {
			return err
		}
		guardian = stored
		reg.GuardianID = guardian.ID
		for _, p := range participants {
			p.GuardianID = guardian.ID
		}
		if err := stores.Registrations.Create(ctx, reg); err != nil {
			return err
		}
		return stores.Participants.CreateMany(ctx, participants)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// A concurrent confirm for the same intent won the race.
			if existing, lookupErr := s.existingForIntent(ctx, paymentIntentID); lookupErr == nil && existing != nil {
				return existing, nil
			}
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "registration conflicted with a concurrent submission, please retry")
		}
		return nil, storeError(err, "registration")
	}

	details := &models.RegistrationDetails{Registration: reg, Guardian: guardian, Participants: participants}
	doc := s.attachWaiver(ctx, details)
	s.sendConfirmation(ctx, details, doc)

	s.logAudit(ctx, audit.ActionRegistrationConfirmed,
		"registration_id", reg.ID,
		"actor", guardian.Email,
		"payment_intent_id", paymentIntentID,
		"participants", strconv.Itoa(len(participants)),
		"amount_cents", strconv.FormatInt(reg.AmountCents, 10),
	)
	if s.metrics != nil {
		s.metrics.RecordConfirmed(len(participants), reg.AmountCents)
	}
	return &ConfirmResult{Details: details, Created: true}, nil
}

func (s *Service) existingForIntent(ctx context.Context, paymentIntentID string) (*ConfirmResult, error) {
	reg, err := s.stores.Registrations.FindByPaymentIntent(ctx, paymentIntentID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(err, "registration")
	}
	details, err := s.loadDetails(ctx, reg)
	if err != nil {
		return nil, err
	}
	return &ConfirmResult{Details: details, Created: false}, nil
}

// verifyIntent checks the payment matches what this registration costs. The
// quote is taken at the intent's creation time so a price change between
// paying and confirming does not reject a valid payment.
func (s *Service) verifyIntent(intent *payment.Intent, req *models.RegistrationRequest) error {
	if !intent.Succeeded() {
		return dErrors.New(dErrors.CodePaymentRequired, "payment has not completed (status "+intent.Status+")")
	}
	if slug := intent.Metadata[payment.MetaEventSlug]; slug != "" && slug != s.event.Slug {
		return dErrors.New(dErrors.CodeConflict, "payment belongs to a different event")
	}
	n := len(req.Participants)
	if count := intent.Metadata[payment.MetaParticipantCount]; count != "" && count != strconv.Itoa(n) {
		return dErrors.New(dErrors.CodeConflict, "payment was made for a different number of participants")
	}
	quote := s.event.Quote(n, intent.CreatedAt)
	if intent.AmountCents != quote.AmountCents || !strings.EqualFold(intent.Currency, quote.Currency) {
		return dErrors.New(dErrors.CodeConflict, "payment amount does not match the registration")
	}
	return nil
}

func (s *Service) buildRecords(ctx context.Context, intent *payment.Intent, req *models.RegistrationRequest, at time.Time) (*models.Guardian, []*models.Participant, *models.Registration) {
	guardian := &models.Guardian{
		ID:        id.NewGuardianID(),
		FirstName: req.Guardian.FirstName,
		LastName:  req.Guardian.LastName,
		Email:     req.Guardian.Email,
		Phone:     req.Guardian.Phone,
		Address:   req.Guardian.Address,
		CreatedAt: at,
		UpdatedAt: at,
	}
	reg := &models.Registration{
		ID:               id.NewRegistrationID(),
		EventSlug:        s.event.Slug,
		Status:           models.StatusConfirmed,
		AmountCents:      intent.AmountCents,
		Currency:         strings.ToLower(intent.Currency),
		PaymentIntentID:  intent.ID,
		SubmittedFrom:    submittedFrom(ctx),
		GuardianName:     guardian.FullName(),
		GuardianEmail:    guardian.Email,
		ParticipantNames: req.ParticipantNames(),
		CreatedAt:        at,
		UpdatedAt:        at,
	}
	if req.Waiver.Accepted {
		reg.SignedBy = req.Waiver.SignedBy
		reg.SignedAt = &at
	}
	participants := make([]*models.Participant, 0, len(req.Participants))
	for _, in := range req.Participants {
		birth, _ := in.ParseBirthDate()
		p := &models.Participant{
			ID:               id.NewParticipantID(),
			RegistrationID:   reg.ID,
			FirstName:        in.FirstName,
			LastName:         in.LastName,
			BirthDate:        birth,
			Gender:           in.Gender,
			Grade:            in.Grade,
			ShirtSize:        in.ShirtSize,
			Allergies:        in.Allergies,
			Medical:          in.Medical,
			EmergencyContact: in.EmergencyContact,
			CreatedAt:        at,
		}
		participants = append(participants, p)
		reg.ParticipantIDs = append(reg.ParticipantIDs, p.ID)
	}
	return guardian, participants, reg
}

// upsertGuardian reuses the guardian with the same email, refreshing their
// contact details, or creates a new one.
func upsertGuardian(ctx context.Context, guardians GuardianStore, g *models.Guardian, at time.Time) (*models.Guardian, error) {
	existing, err := guardians.FindByEmail(ctx, g.Email)
	if errors.Is(err, sentinel.ErrNotFound) {
		if err := guardians.Create(ctx, g); err != nil {
			return nil, err
		}
		return g, nil
	}
	if err != nil {
		return nil, err
	}
	existing.FirstName = g.FirstName
	existing.LastName = g.LastName
	existing.Phone = g.Phone
	if g.Address != "" {
		existing.Address = g.Address
	}
	existing.UpdatedAt = at
	if err := guardians.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func submittedFrom(ctx context.Context) string {
	device := requestcontext.Device(ctx)
	ip := requestcontext.ClientIP(ctx)
	switch {
	case device != "" && ip != "":
		return device + " (" + ip + ")"
	case device != "":
		return device
	default:
		return ip
	}
}
