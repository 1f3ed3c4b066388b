package audit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retreat/pkg/requestcontext"
)

type failingSink struct{ err error }

func (s failingSink) Append(context.Context, Event) error { return s.err }

func TestPublisher_StampsTimeAndRequestID(t *testing.T) {
	sink := NewMemorySink()
	fixed := time.Date(2027, 2, 1, 9, 0, 0, 0, time.UTC)
	pub := NewPublisher(sink, WithClock(func() time.Time { return fixed }))

	ctx := requestcontext.WithRequestID(context.Background(), "req-42")
	require.NoError(t, pub.Emit(ctx, Event{Action: ActionRegistrationRefunded, RegistrationID: "r1", Actor: "staff@example.org"}))

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, fixed, events[0].Timestamp)
	assert.Equal(t, "req-42", events[0].RequestID)
	assert.Equal(t, []string{ActionRegistrationRefunded}, sink.Actions())
}

func TestPublisher_RejectsMissingAction(t *testing.T) {
	pub := NewPublisher(NewMemorySink())
	assert.ErrorIs(t, pub.Emit(context.Background(), Event{}), ErrMissingAction)
}

func TestPublisher_ReturnsSinkErrors(t *testing.T) {
	var buf bytes.Buffer
	sinkErr := errors.New("outbox unavailable")
	pub := NewPublisher(failingSink{err: sinkErr}, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	err := pub.Emit(context.Background(), Event{Action: ActionRegistrationDeleted})
	assert.ErrorIs(t, err, sinkErr)
	assert.Contains(t, buf.String(), "failed to append audit event")
}

func TestLogSink_WritesAuditRecord(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, sink.Append(context.Background(), Event{
		Action:         ActionRegistrationConfirmed,
		RegistrationID: "r1",
		Details:        map[string]string{"participants": "2"},
	}))

	out := buf.String()
	assert.Contains(t, out, "log_type=audit")
	assert.Contains(t, out, "registration_id=r1")
	assert.Contains(t, out, "participants=2")
}
