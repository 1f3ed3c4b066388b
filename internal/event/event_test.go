package event

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent() Event {
	ev := Default()
	ev.Pricing = Pricing{
		BaseCents:            20000,
		EarlyBirdCents:       18000,
		EarlyBirdEndsAt:      time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC),
		SiblingDiscountCents: 3000,
	}
	return ev
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestQuote(t *testing.T) {
	ev := testEvent()
	early := time.Date(2027, 1, 10, 0, 0, 0, 0, time.UTC)
	late := time.Date(2027, 4, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		participants int
		now          time.Time
		wantAmount   int64
		wantDiscount int64
		wantEarly    bool
	}{
		{"single early bird", 1, early, 18000, 0, true},
		{"single regular", 1, late, 20000, 0, false},
		{"siblings early bird", 3, early, 18000 + 2*15000, 2 * 3000, true},
		{"siblings regular", 2, late, 20000 + 17000, 3000, false},
		{"zero participants", 0, late, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := ev.Quote(tt.participants, tt.now)
			assert.Equal(t, tt.wantAmount, q.AmountCents)
			assert.Equal(t, tt.wantDiscount, q.DiscountCents)
			assert.Equal(t, tt.wantEarly, q.EarlyBird)
			assert.Equal(t, "usd", q.Currency)
		})
	}
}

func TestQuote_DiscountNeverNegative(t *testing.T) {
	ev := testEvent()
	ev.Pricing.SiblingDiscountCents = 50000
	q := ev.Quote(3, time.Date(2027, 4, 10, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, int64(20000), q.AmountCents)
}

func TestIsOpen(t *testing.T) {
	ev := testEvent()
	assert.False(t, ev.IsOpen(ev.RegistrationOpensAt.Add(-time.Second)))
	assert.True(t, ev.IsOpen(ev.RegistrationOpensAt))
	assert.False(t, ev.IsOpen(ev.RegistrationClosesAt))
}

func TestCountdown(t *testing.T) {
	ev := testEvent()
	assert.Equal(t, time.Hour, ev.Countdown(ev.StartsAt.Add(-time.Hour)))
	assert.Equal(t, time.Duration(0), ev.Countdown(ev.StartsAt.Add(time.Hour)))
}

func TestAgeOn(t *testing.T) {
	ev := testEvent() // starts 2027-07-16
	assert.Equal(t, 14, ev.AgeOn(time.Date(2013, 7, 16, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 13, ev.AgeOn(time.Date(2013, 7, 17, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 13, ev.AgeOn(time.Date(2013, 12, 1, 0, 0, 0, 0, time.UTC)))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(e *Event)
		wantErr string
	}{
		{"missing slug", func(e *Event) { e.Slug = "" }, "slug"},
		{"bad currency", func(e *Event) { e.Currency = "dollars" }, "currency"},
		{"ends before start", func(e *Event) { e.EndsAt = e.StartsAt.Add(-time.Hour) }, "ends_at"},
		{"window reversed", func(e *Event) { e.RegistrationClosesAt = e.RegistrationOpensAt }, "registration_closes_at"},
		{"zero price", func(e *Event) { e.Pricing.BaseCents = 0 }, "base_cents"},
		{"early bird above base", func(e *Event) { e.Pricing.EarlyBirdCents = e.Pricing.BaseCents + 1 }, "early_bird_cents"},
		{"ages reversed", func(e *Event) { e.MinAge, e.MaxAge = 18, 11 }, "min_age"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := testEvent()
			tt.mutate(&ev)
			err := ev.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "event.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
slug: winter-camp
name: Winter Camp
location: Pine Lodge
starts_at: 2027-01-08T17:00:00Z
ends_at: 2027-01-10T12:00:00Z
registration_opens_at: 2026-09-01T00:00:00Z
registration_closes_at: 2027-01-01T00:00:00Z
currency: USD
pricing:
  base_cents: 15000
  sibling_discount_cents: 1000
min_age: 12
max_age: 17
waiver_required: true
`), 0o600))

	ev, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "winter-camp", ev.Slug)
	assert.Equal(t, "usd", ev.Currency)
	assert.Equal(t, defaultMaxParticipants, ev.MaxParticipants)
	assert.Equal(t, int64(15000), ev.Pricing.BaseCents)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	def, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, "summer-retreat", def.Slug)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "$250.00", FormatAmount(25000, "usd"))
	assert.Equal(t, "$0.05", FormatAmount(5, "USD"))
	assert.Equal(t, "199.90 EUR", FormatAmount(19990, "eur"))
	assert.Equal(t, "-$12.50", FormatAmount(-1250, "usd"))
}
