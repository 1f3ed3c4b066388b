package waiver

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retreat/internal/event"
	"retreat/internal/registration/models"
	id "retreat/pkg/domain"
)

func sampleDetails() *models.RegistrationDetails {
	created := time.Date(2027, 2, 10, 15, 0, 0, 0, time.UTC)
	guardian := &models.Guardian{ID: id.NewGuardianID(), FirstName: "Ana", LastName: "Núñez", Email: "ana@example.org", Phone: "555-010-2000"}
	reg := &models.Registration{
		ID:            id.NewRegistrationID(),
		GuardianID:    guardian.ID,
		Status:        models.StatusConfirmed,
		SignedBy:      "Ana Núñez",
		SignedAt:      &created,
		SubmittedFrom: "Firefox on Linux",
		CreatedAt:     created,
	}
	return &models.RegistrationDetails{
		Registration: reg,
		Guardian:     guardian,
		Participants: []*models.Participant{{
			ID:               id.NewParticipantID(),
			FirstName:        "Lucía",
			LastName:         "Núñez",
			BirthDate:        time.Date(2013, 5, 1, 0, 0, 0, 0, time.UTC),
			Allergies:        "peanuts",
			EmergencyContact: models.EmergencyContact{Name: "Carlos Núñez", Phone: "555-010-3000", Relationship: "uncle"},
		}},
	}
}

func TestGenerate_RendersPDF(t *testing.T) {
	pdf, err := Generate(event.Default(), sampleDetails())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
	assert.Greater(t, len(pdf), 1000)
}

func TestGenerate_RequiresCompleteDetails(t *testing.T) {
	d := sampleDetails()
	d.Participants = nil
	_, err := Generate(event.Default(), d)
	assert.ErrorIs(t, err, ErrIncomplete)

	_, err = Generate(event.Default(), nil)
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestDocument_Filename(t *testing.T) {
	regID := id.NewRegistrationID()
	doc := &Document{RegistrationID: regID}
	assert.Equal(t, "waiver-"+regID.String()+".pdf", doc.Filename())
}
