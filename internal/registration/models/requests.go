package models

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"retreat/internal/event"
	dErrors "retreat/pkg/domain-errors"
	"retreat/pkg/email"
)

const (
	BirthDateLayout = "2006-01-02"
	maxNameLength   = 128
	maxNotesLength  = 2000
	minPhoneDigits  = 7
)

type GuardianInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

type ParticipantInput struct {
	FirstName        string           `json:"first_name"`
	LastName         string           `json:"last_name"`
	BirthDate        string           `json:"birth_date"`
	Gender           string           `json:"gender"`
	Grade            string           `json:"grade"`
	ShirtSize        string           `json:"shirt_size"`
	Allergies        string           `json:"allergies"`
	Medical          string           `json:"medical"`
	EmergencyContact EmergencyContact `json:"emergency_contact"`
}

// ParseBirthDate parses the YYYY-MM-DD birth date in UTC.
func (p ParticipantInput) ParseBirthDate() (time.Time, error) {
	return time.Parse(BirthDateLayout, p.BirthDate)
}

type WaiverInput struct {
	Accepted bool   `json:"accepted"`
	SignedBy string `json:"signed_by"`
}

// RegistrationRequest is the public registration form.
type RegistrationRequest struct {
	Guardian     GuardianInput      `json:"guardian"`
	Participants []ParticipantInput `json:"participants"`
	Waiver       WaiverInput        `json:"waiver"`
}

// Normalize trims every field and normalizes the guardian email.
func (r *RegistrationRequest) Normalize() {
	if r == nil {
		return
	}
	g := &r.Guardian
	g.FirstName = strings.TrimSpace(g.FirstName)
	g.LastName = strings.TrimSpace(g.LastName)
	g.Email = email.Normalize(g.Email)
	g.Phone = strings.TrimSpace(g.Phone)
	g.Address = strings.TrimSpace(g.Address)

	for i := range r.Participants {
		p := &r.Participants[i]
		p.FirstName = strings.TrimSpace(p.FirstName)
		p.LastName = strings.TrimSpace(p.LastName)
		p.BirthDate = strings.TrimSpace(p.BirthDate)
		p.Gender = strings.TrimSpace(p.Gender)
		p.Grade = strings.TrimSpace(p.Grade)
		p.ShirtSize = strings.ToUpper(strings.TrimSpace(p.ShirtSize))
		p.Allergies = strings.TrimSpace(p.Allergies)
		p.Medical = strings.TrimSpace(p.Medical)
		p.EmergencyContact.Name = strings.TrimSpace(p.EmergencyContact.Name)
		p.EmergencyContact.Phone = strings.TrimSpace(p.EmergencyContact.Phone)
		p.EmergencyContact.Relationship = strings.TrimSpace(p.EmergencyContact.Relationship)
	}
	r.Waiver.SignedBy = strings.TrimSpace(r.Waiver.SignedBy)
}

// Validate checks the form against the event's rules. All problems are
// reported together in one CodeValidation error.
func (r *RegistrationRequest) Validate(ev event.Event) error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	g := r.Guardian
	requireName(g.FirstName, "guardian.first_name", add)
	requireName(g.LastName, "guardian.last_name", add)
	if g.Email == "" {
		add("guardian.email is required")
	} else if !email.IsValid(g.Email) {
		add("guardian.email is invalid")
	}
	if !validPhone(g.Phone) {
		add("guardian.phone must contain at least %d digits", minPhoneDigits)
	}
	if len(g.Address) > maxNotesLength {
		add("guardian.address is too long")
	}

	switch n := len(r.Participants); {
	case n == 0:
		add("at least one participant is required")
	case n > ev.MaxParticipants:
		add("at most %d participants per registration", ev.MaxParticipants)
	}

	for i, p := range r.Participants {
		field := fmt.Sprintf("participants[%d]", i)
		requireName(p.FirstName, field+".first_name", add)
		requireName(p.LastName, field+".last_name", add)
		if len(p.Allergies) > maxNotesLength || len(p.Medical) > maxNotesLength {
			add("%s medical notes are too long", field)
		}
		if p.EmergencyContact.Phone != "" && !validPhone(p.EmergencyContact.Phone) {
			add("%s.emergency_contact.phone is invalid", field)
		}
		if p.BirthDate == "" {
			add("%s.birth_date is required", field)
			continue
		}
		birth, err := p.ParseBirthDate()
		if err != nil {
			add("%s.birth_date must be YYYY-MM-DD", field)
			continue
		}
		age := ev.AgeOn(birth)
		switch {
		case ev.MaxAge > 0 && (age < ev.MinAge || age > ev.MaxAge):
			add("%s must be between %d and %d years old on the first day of the retreat", field, ev.MinAge, ev.MaxAge)
		case age < ev.MinAge:
			add("%s must be at least %d years old on the first day of the retreat", field, ev.MinAge)
		}
	}

	if ev.WaiverRequired {
		if !r.Waiver.Accepted {
			add("waiver must be accepted")
		}
		if r.Waiver.SignedBy == "" {
			add("waiver.signed_by is required")
		}
	}

	if len(problems) > 0 {
		return dErrors.New(dErrors.CodeValidation, strings.Join(problems, "; "))
	}
	return nil
}

// ParticipantNames returns "First Last" for every participant in order.
func (r *RegistrationRequest) ParticipantNames() []string {
	names := make([]string, 0, len(r.Participants))
	for _, p := range r.Participants {
		names = append(names, strings.TrimSpace(p.FirstName+" "+p.LastName))
	}
	return names
}

func requireName(v, field string, add func(string, ...any)) {
	switch {
	case v == "":
		add("%s is required", field)
	case len(v) > maxNameLength:
		add("%s must be %d characters or less", field, maxNameLength)
	}
}

func validPhone(phone string) bool {
	digits := 0
	for _, r := range phone {
		switch {
		case unicode.IsDigit(r):
			digits++
		case strings.ContainsRune(" +-().", r):
		default:
			return false
		}
	}
	return digits >= minPhoneDigits
}
