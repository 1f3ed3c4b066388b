package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"retreat/internal/event"
	"retreat/internal/notify"
	"retreat/internal/registration/models"
	"retreat/internal/waiver"
	id "retreat/pkg/domain"
	"retreat/pkg/platform/sentinel"
)

// attachWaiver renders and stores the waiver and records its ID on the
// registration. Returns nil when waivers are disabled or any step fails.
func (s *Service) attachWaiver(ctx context.Context, details *models.RegistrationDetails) *waiver.Document {
	if s.waivers == nil {
		return nil
	}
	reg := details.Registration
	content, err := waiver.Generate(s.event, details)
	if err != nil {
		s.postCommitFailed(ctx, "waiver_render", err, "registration_id", reg.ID.String())
		return nil
	}
	doc := &waiver.Document{
		ID:             id.NewWaiverID(),
		RegistrationID: reg.ID,
		Content:        content,
		CreatedAt:      now(ctx),
	}
	if err := s.waivers.Save(ctx, doc); err != nil {
		s.postCommitFailed(ctx, "waiver_store", err, "registration_id", reg.ID.String())
		return nil
	}
	if err := s.stores.Registrations.SetWaiver(ctx, reg.ID, doc.ID.String(), doc.CreatedAt); err != nil {
		s.postCommitFailed(ctx, "waiver_link", err, "registration_id", reg.ID.String())
		_ = s.waivers.Delete(ctx, doc.ID)
		return nil
	}
	reg.WaiverID = doc.ID.String()
	reg.UpdatedAt = doc.CreatedAt
	return doc
}

func (s *Service) sendConfirmation(ctx context.Context, details *models.RegistrationDetails, doc *waiver.Document) error {
	if s.mailer == nil {
		return nil
	}
	data := s.emailData(ctx, details.Registration)
	data.WaiverAttached = doc != nil
	msg, err := s.templates.Confirmation(details.Guardian.Email, data)
	if err == nil {
		if doc != nil {
			msg.Attachments = append(msg.Attachments, notify.Attachment{Filename: doc.Filename(), Content: doc.Content})
		}
		_, err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		s.postCommitFailed(ctx, "confirmation_email", err, "registration_id", details.Registration.ID.String())
		return err
	}
	return nil
}

func (s *Service) sendRefundNotice(ctx context.Context, reg *models.Registration) {
	if s.mailer == nil || reg.GuardianEmail == "" {
		return
	}
	msg, err := s.templates.Refund(reg.GuardianEmail, s.emailData(ctx, reg))
	if err == nil {
		_, err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		s.postCommitFailed(ctx, "refund_email", err, "registration_id", reg.ID.String())
	}
}

func (s *Service) emailData(ctx context.Context, reg *models.Registration) notify.EmailData {
	return notify.EmailData{
		EventName:      s.event.Name,
		Location:       s.event.Location,
		StartsAt:       s.event.StartsAt,
		EndsAt:         s.event.EndsAt,
		GuardianName:   reg.GuardianName,
		Participants:   reg.ParticipantNames,
		Amount:         event.FormatAmount(reg.AmountCents, reg.Currency),
		RegistrationID: reg.ID.String(),
		RefundID:       reg.RefundID,
		DaysUntil:      int(s.event.Countdown(now(ctx)) / (24 * time.Hour)),
	}
}

// loadDetails fetches the guardian and participants of reg.
func (s *Service) loadDetails(ctx context.Context, reg *models.Registration) (*models.RegistrationDetails, error) {
	guardian, err := s.stores.Guardians.FindByID(ctx, reg.GuardianID)
	if err != nil {
		return nil, storeError(err, "guardian")
	}
	participants, err := s.stores.Participants.ListByRegistration(ctx, reg.ID)
	if err != nil {
		return nil, storeError(err, "participants")
	}
	orderParticipants(participants, reg.ParticipantIDs)
	return &models.RegistrationDetails{Registration: reg, Guardian: guardian, Participants: participants}, nil
}

// orderParticipants sorts ps into the order they were submitted in.
func orderParticipants(ps []*models.Participant, order []id.ParticipantID) {
	pos := make(map[id.ParticipantID]int, len(order))
	for i, pid := range order {
		pos[pid] = i
	}
	sort.SliceStable(ps, func(i, j int) bool { return pos[ps[i].ID] < pos[ps[j].ID] })
}

// loadWaiver returns the stored waiver for reg, or nil when there is none.
func (s *Service) loadWaiver(ctx context.Context, reg *models.Registration) (*waiver.Document, error) {
	if s.waivers == nil || reg.WaiverID == "" {
		return nil, nil
	}
	waiverID, err := id.ParseWaiverID(reg.WaiverID)
	if err != nil {
		return nil, err
	}
	doc, err := s.waivers.Get(ctx, waiverID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	return doc, err
}
