package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"retreat/internal/event"
	dErrors "retreat/pkg/domain-errors"
)

// RegistrationRequestSuite tests form normalization and validation.
type RegistrationRequestSuite struct {
	suite.Suite
	event event.Event
}

func TestRegistrationRequestSuite(t *testing.T) {
	suite.Run(t, new(RegistrationRequestSuite))
}

func (s *RegistrationRequestSuite) SetupTest() {
	s.event = event.Default()
	s.event.StartsAt = time.Date(2027, 7, 16, 16, 0, 0, 0, time.UTC)
	s.event.MinAge = 11
	s.event.MaxAge = 18
	s.event.MaxParticipants = 3
	s.event.WaiverRequired = true
}

func (s *RegistrationRequestSuite) validRequest() *RegistrationRequest {
	return &RegistrationRequest{
		Guardian: GuardianInput{
			FirstName: "Maria",
			LastName:  "Lopez",
			Email:     "maria.lopez@example.org",
			Phone:     "(555) 010-2030",
		},
		Participants: []ParticipantInput{
			{FirstName: "Ana", LastName: "Lopez", BirthDate: "2013-05-02", ShirtSize: "m"},
		},
		Waiver: WaiverInput{Accepted: true, SignedBy: "Maria Lopez"},
	}
}

func (s *RegistrationRequestSuite) TestNormalize() {
	s.Run("trims and lowercases", func() {
		req := s.validRequest()
		req.Guardian.Email = "  Maria.Lopez@Example.ORG "
		req.Guardian.FirstName = "  Maria "
		req.Participants[0].ShirtSize = " m "
		req.Normalize()

		s.Equal("maria.lopez@example.org", req.Guardian.Email)
		s.Equal("Maria", req.Guardian.FirstName)
		s.Equal("M", req.Participants[0].ShirtSize)
	})

	s.Run("nil request does not panic", func() {
		var req *RegistrationRequest
		s.NotPanics(func() { req.Normalize() })
	})
}

func (s *RegistrationRequestSuite) TestValidation() {
	s.Run("valid request passes", func() {
		req := s.validRequest()
		req.Normalize()
		s.NoError(req.Validate(s.event))
	})

	cases := []struct {
		name    string
		mutate  func(r *RegistrationRequest)
		message string
	}{
		{"missing guardian name", func(r *RegistrationRequest) { r.Guardian.FirstName = "" }, "guardian.first_name is required"},
		{"invalid email", func(r *RegistrationRequest) { r.Guardian.Email = "not-an-email" }, "guardian.email is invalid"},
		{"short phone", func(r *RegistrationRequest) { r.Guardian.Phone = "123" }, "guardian.phone"},
		{"letters in phone", func(r *RegistrationRequest) { r.Guardian.Phone = "555-CALL-NOW" }, "guardian.phone"},
		{"no participants", func(r *RegistrationRequest) { r.Participants = nil }, "at least one participant"},
		{"too many participants", func(r *RegistrationRequest) {
			p := r.Participants[0]
			r.Participants = []ParticipantInput{p, p, p, p}
		}, "at most 3 participants"},
		{"missing birth date", func(r *RegistrationRequest) { r.Participants[0].BirthDate = "" }, "participants[0].birth_date is required"},
		{"bad birth date", func(r *RegistrationRequest) { r.Participants[0].BirthDate = "05/02/2013" }, "YYYY-MM-DD"},
		{"too young", func(r *RegistrationRequest) { r.Participants[0].BirthDate = "2020-01-01" }, "between 11 and 18"},
		{"too old", func(r *RegistrationRequest) { r.Participants[0].BirthDate = "2000-01-01" }, "between 11 and 18"},
		{"waiver not accepted", func(r *RegistrationRequest) { r.Waiver.Accepted = false }, "waiver must be accepted"},
		{"waiver unsigned", func(r *RegistrationRequest) { r.Waiver.SignedBy = "" }, "waiver.signed_by is required"},
		{"name too long", func(r *RegistrationRequest) { r.Participants[0].LastName = strings.Repeat("x", 129) }, "128 characters"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			req := s.validRequest()
			tc.mutate(req)
			req.Normalize()
			err := req.Validate(s.event)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
			s.Contains(err.Error(), tc.message)
		})
	}

	s.Run("waiver optional when event does not require it", func() {
		ev := s.event
		ev.WaiverRequired = false
		req := s.validRequest()
		req.Waiver = WaiverInput{}
		s.NoError(req.Validate(ev))
	})

	s.Run("age without an upper bound", func() {
		ev := s.event
		ev.MaxAge = 0

		req := s.validRequest()
		req.Participants[0].BirthDate = "2000-01-01"
		s.NoError(req.Validate(ev))

		req = s.validRequest()
		req.Participants[0].BirthDate = "2020-01-01"
		err := req.Validate(ev)
		s.Require().Error(err)
		s.Contains(err.Error(), "participants[0] must be at least 11 years old")
		s.NotContains(err.Error(), "between")
	})

	s.Run("reports every problem at once", func() {
		req := s.validRequest()
		req.Guardian.FirstName = ""
		req.Guardian.Email = ""
		err := req.Validate(s.event)
		s.Require().Error(err)
		s.Contains(err.Error(), "guardian.first_name")
		s.Contains(err.Error(), "guardian.email is required")
	})
}

func (s *RegistrationRequestSuite) TestParticipantNames() {
	req := s.validRequest()
	req.Participants = append(req.Participants, ParticipantInput{FirstName: "Luis", LastName: "Lopez"})
	s.Equal([]string{"Ana Lopez", "Luis Lopez"}, req.ParticipantNames())
}
