// Package event describes the retreat being sold: dates, registration window,
// pricing and participant bounds. Prices are always computed here, never
// taken from the client.
package event

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var currencyPattern = regexp.MustCompile(`^[a-z]{3}$`)

// Pricing is expressed in the smallest currency unit.
type Pricing struct {
	BaseCents            int64     `yaml:"base_cents" json:"base_cents"`
	EarlyBirdCents       int64     `yaml:"early_bird_cents" json:"early_bird_cents,omitempty"`
	EarlyBirdEndsAt      time.Time `yaml:"early_bird_ends_at" json:"early_bird_ends_at,omitzero"`
	SiblingDiscountCents int64     `yaml:"sibling_discount_cents" json:"sibling_discount_cents,omitempty"`
}

type Event struct {
	Slug                 string    `yaml:"slug" json:"slug"`
	Name                 string    `yaml:"name" json:"name"`
	Location             string    `yaml:"location" json:"location"`
	StartsAt             time.Time `yaml:"starts_at" json:"starts_at"`
	EndsAt               time.Time `yaml:"ends_at" json:"ends_at"`
	RegistrationOpensAt  time.Time `yaml:"registration_opens_at" json:"registration_opens_at"`
	RegistrationClosesAt time.Time `yaml:"registration_closes_at" json:"registration_closes_at"`
	Currency             string    `yaml:"currency" json:"currency"`
	Pricing              Pricing   `yaml:"pricing" json:"pricing"`
	// Capacity caps confirmed participants; zero means unlimited.
	Capacity        int  `yaml:"capacity" json:"capacity,omitempty"`
	MinAge          int  `yaml:"min_age" json:"min_age"`
	MaxAge          int  `yaml:"max_age" json:"max_age"`
	MaxParticipants int  `yaml:"max_participants" json:"max_participants"`
	WaiverRequired  bool `yaml:"waiver_required" json:"waiver_required"`
	// WaiverText is rendered into the signed waiver PDF.
	WaiverText string `yaml:"waiver_text" json:"-"`
}

// Quote is the server-side price for a registration.
type Quote struct {
	Participants  int       `json:"participants"`
	UnitCents     int64     `json:"unit_cents"`
	DiscountCents int64     `json:"discount_cents"`
	AmountCents   int64     `json:"amount_cents"`
	Currency      string    `json:"currency"`
	EarlyBird     bool      `json:"early_bird"`
	QuotedAt      time.Time `json:"quoted_at"`
}

// LoadFile reads and validates an event definition. An empty path returns
// the compiled-in default.
func LoadFile(path string) (*Event, error) {
	if path == "" {
		ev := Default()
		return &ev, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read event config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes YAML and validates the result.
func Parse(raw []byte) (*Event, error) {
	var ev Event
	if err := yaml.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("parse event config: %w", err)
	}
	ev.Currency = strings.ToLower(strings.TrimSpace(ev.Currency))
	if ev.MaxParticipants == 0 {
		ev.MaxParticipants = defaultMaxParticipants
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}

const defaultMaxParticipants = 6

// Validate checks the event definition is internally consistent.
func (e Event) Validate() error {
	var errs []error
	if strings.TrimSpace(e.Slug) == "" {
		errs = append(errs, errors.New("slug is required"))
	}
	if strings.TrimSpace(e.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if !currencyPattern.MatchString(e.Currency) {
		errs = append(errs, fmt.Errorf("currency %q must be a 3-letter ISO code", e.Currency))
	}
	if e.StartsAt.IsZero() || !e.EndsAt.After(e.StartsAt) {
		errs = append(errs, errors.New("ends_at must be after starts_at"))
	}
	if e.RegistrationOpensAt.IsZero() || !e.RegistrationClosesAt.After(e.RegistrationOpensAt) {
		errs = append(errs, errors.New("registration_closes_at must be after registration_opens_at"))
	}
	if e.Pricing.BaseCents <= 0 {
		errs = append(errs, errors.New("pricing.base_cents must be positive"))
	}
	if e.Pricing.EarlyBirdCents < 0 || e.Pricing.EarlyBirdCents > e.Pricing.BaseCents {
		errs = append(errs, errors.New("pricing.early_bird_cents must be between 0 and base_cents"))
	}
	if e.Pricing.EarlyBirdCents > 0 && e.Pricing.EarlyBirdEndsAt.IsZero() {
		errs = append(errs, errors.New("pricing.early_bird_ends_at is required with early_bird_cents"))
	}
	if e.Pricing.SiblingDiscountCents < 0 {
		errs = append(errs, errors.New("pricing.sibling_discount_cents cannot be negative"))
	}
	if e.MinAge < 0 || (e.MaxAge > 0 && e.MinAge > e.MaxAge) {
		errs = append(errs, errors.New("min_age must be between 0 and max_age"))
	}
	if e.MaxParticipants <= 0 {
		errs = append(errs, errors.New("max_participants must be positive"))
	}
	if e.Capacity < 0 {
		errs = append(errs, errors.New("capacity cannot be negative"))
	}
	return errors.Join(errs...)
}

// IsOpen reports whether registration is accepted at now.
func (e Event) IsOpen(now time.Time) bool {
	return !now.Before(e.RegistrationOpensAt) && now.Before(e.RegistrationClosesAt)
}

// UnitPrice is the price of the first participant at now.
func (e Event) UnitPrice(now time.Time) (int64, bool) {
	if e.Pricing.EarlyBirdCents > 0 && now.Before(e.Pricing.EarlyBirdEndsAt) {
		return e.Pricing.EarlyBirdCents, true
	}
	return e.Pricing.BaseCents, false
}

// Quote prices a registration for the given number of participants. Each
// participant after the first receives the sibling discount; a participant
// never costs less than zero.
func (e Event) Quote(participants int, now time.Time) Quote {
	unit, early := e.UnitPrice(now)
	q := Quote{
		Participants: participants,
		UnitCents:    unit,
		Currency:     e.Currency,
		EarlyBird:    early,
		QuotedAt:     now,
	}
	if participants <= 0 {
		return q
	}
	sibling := max(unit-e.Pricing.SiblingDiscountCents, 0)
	q.DiscountCents = int64(participants-1) * (unit - sibling)
	q.AmountCents = unit + int64(participants-1)*sibling
	return q
}

// Countdown is the time left until the retreat starts, zero once started.
func (e Event) Countdown(now time.Time) time.Duration {
	if !now.Before(e.StartsAt) {
		return 0
	}
	return e.StartsAt.Sub(now)
}

// AgeOn returns a participant's age in whole years on the event start date.
func (e Event) AgeOn(birthDate time.Time) int {
	start := e.StartsAt.In(time.UTC)
	birth := birthDate.In(time.UTC)
	age := start.Year() - birth.Year()
	if start.Month() < birth.Month() || (start.Month() == birth.Month() && start.Day() < birth.Day()) {
		age--
	}
	return age
}

// Default is the event used when EVENT_CONFIG is not set.
func Default() Event {
	return Event{
		Slug:                 "summer-retreat",
		Name:                 "Summer Youth Retreat",
		Location:             "Camp Cedar Ridge",
		StartsAt:             time.Date(2027, 7, 16, 16, 0, 0, 0, time.UTC),
		EndsAt:               time.Date(2027, 7, 18, 14, 0, 0, 0, time.UTC),
		RegistrationOpensAt:  time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		RegistrationClosesAt: time.Date(2027, 7, 1, 0, 0, 0, 0, time.UTC),
		Currency:             "usd",
		Pricing: Pricing{
			BaseCents:            25000,
			EarlyBirdCents:       22500,
			EarlyBirdEndsAt:      time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC),
			SiblingDiscountCents: 2500,
		},
		MinAge:          11,
		MaxAge:          18,
		MaxParticipants: defaultMaxParticipants,
		WaiverRequired:  true,
		WaiverText: "I, the undersigned parent or legal guardian, give permission for the participant(s) " +
			"named below to attend the retreat and take part in all scheduled activities. I authorize " +
			"retreat staff to obtain emergency medical treatment for the participant(s) if I cannot be " +
			"reached, and I release the organizers from liability for injury except in cases of gross negligence.",
	}
}

// FormatAmount renders minor units for display, e.g. "$250.00" or "250.00 EUR".
func FormatAmount(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	major := fmt.Sprintf("%d.%02d", cents/100, cents%100)
	if strings.EqualFold(currency, "usd") {
		return sign + "$" + major
	}
	return sign + major + " " + strings.ToUpper(currency)
}
