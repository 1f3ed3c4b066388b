package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retreat/pkg/platform/circuit"
)

func sampleData() EmailData {
	return EmailData{
		EventName:      "Summer Youth Retreat",
		Location:       "Camp Cedar Ridge",
		StartsAt:       time.Date(2027, 7, 16, 16, 0, 0, 0, time.UTC),
		EndsAt:         time.Date(2027, 7, 18, 14, 0, 0, 0, time.UTC),
		GuardianName:   "Ana <Admin> Lopez",
		Participants:   []string{"Mia Lopez", "Leo Lopez"},
		Amount:         "$475.00",
		RegistrationID: "reg-1",
		DaysUntil:      120,
		WaiverAttached: true,
	}
}

func TestTemplates_Confirmation(t *testing.T) {
	msg, err := MustTemplates().Confirmation("ana@example.org", sampleData())
	require.NoError(t, err)

	assert.Equal(t, []string{"ana@example.org"}, msg.To)
	assert.Equal(t, "You're registered for Summer Youth Retreat", msg.Subject)
	assert.Contains(t, msg.HTML, "Mia Lopez, Leo Lopez")
	assert.Contains(t, msg.HTML, "$475.00")
	assert.Contains(t, msg.HTML, "120 days to go")
	assert.Contains(t, msg.HTML, "signed waiver is attached")
	assert.Contains(t, msg.HTML, "Ana &lt;Admin&gt; Lopez", "guardian input is escaped")
	assert.Contains(t, msg.Text, "Registration: reg-1")
}

func TestTemplates_Refund(t *testing.T) {
	data := sampleData()
	data.RefundID = "re_123"
	msg, err := MustTemplates().Refund("ana@example.org", data)
	require.NoError(t, err)

	assert.Equal(t, "Refund issued for Summer Youth Retreat", msg.Subject)
	assert.Contains(t, msg.HTML, "We have refunded $475.00")
	assert.Contains(t, msg.HTML, "re_123")
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMailer(slog.New(slog.NewTextHandler(&buf, nil)))

	id, err := m.Send(context.Background(), Message{To: []string{"a@example.org"}, Subject: "Hi", Attachments: []Attachment{{Filename: "waiver.pdf"}}})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Contains(t, buf.String(), "waiver.pdf")

	_, err = m.Send(context.Background(), Message{Subject: "no recipient"})
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

type flakyMailer struct {
	err   error
	calls int
}

func (m *flakyMailer) Send(context.Context, Message) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return "msg-1", nil
}

func TestBreakerMailer_OpensAfterFailures(t *testing.T) {
	var buf bytes.Buffer
	next := &flakyMailer{err: errors.New("provider 503")}
	now := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	b := circuit.New("email", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1),
		circuit.WithCooldown(time.Minute), circuit.WithClock(func() time.Time { return now }))
	m := NewBreakerMailer(next, b, slog.New(slog.NewTextHandler(&buf, nil)))
	msg := Message{To: []string{"a@example.org"}, Subject: "Hi"}

	_, err := m.Send(context.Background(), msg)
	require.Error(t, err)
	_, err = m.Send(context.Background(), msg)
	require.Error(t, err)
	assert.Contains(t, buf.String(), "email circuit opened")

	_, err = m.Send(context.Background(), msg)
	assert.ErrorIs(t, err, ErrMailerUnavailable)
	assert.Equal(t, 2, next.calls, "open circuit short-circuits the provider")

	now = now.Add(time.Minute)
	next.err = nil
	id, err := m.Send(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	assert.False(t, b.IsOpen())
}
