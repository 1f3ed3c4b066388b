package circuit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker(clock *fakeClock) *Breaker {
	return New("resend",
		WithFailureThreshold(2),
		WithSuccessThreshold(2),
		WithCooldown(time.Minute),
		WithClock(clock.Now),
	)
}

func TestBreaker_Lifecycle(t *testing.T) {
	clock := &fakeClock{now: time.Date(2027, 4, 1, 9, 0, 0, 0, time.UTC)}
	b := newTestBreaker(clock)
	require.Equal(t, "resend", b.Name())
	require.True(t, b.Allow(), "closed breaker lets calls through")

	fallback, change := b.RecordFailure()
	assert.False(t, fallback)
	assert.False(t, change.Opened)

	fallback, change = b.RecordFailure()
	assert.True(t, fallback)
	assert.True(t, change.Opened)
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow(), "open breaker blocks during cooldown")

	clock.Advance(time.Minute)
	assert.True(t, b.Allow(), "probe allowed after cooldown")

	primary, change := b.RecordSuccess()
	assert.False(t, primary, "one success is not enough to close")
	assert.False(t, change.Closed)

	primary, change = b.RecordSuccess()
	assert.True(t, primary)
	assert.True(t, change.Closed)
	assert.False(t, b.IsOpen())
}

func TestBreaker_FailedProbeRestartsCooldown(t *testing.T) {
	clock := &fakeClock{now: time.Date(2027, 4, 1, 9, 0, 0, 0, time.UTC)}
	b := newTestBreaker(clock)
	b.RecordFailure()
	b.RecordFailure()

	clock.Advance(time.Minute)
	require.True(t, b.Allow())
	fallback, change := b.RecordFailure()
	assert.True(t, fallback)
	assert.False(t, change.Opened, "already open")

	clock.Advance(30 * time.Second)
	assert.False(t, b.Allow())
}

func TestBreaker_CountersResetOnOppositeResult(t *testing.T) {
	clock := &fakeClock{now: time.Date(2027, 4, 1, 9, 0, 0, 0, time.UTC)}

	t.Run("success between failures keeps it closed", func(t *testing.T) {
		b := newTestBreaker(clock)
		b.RecordFailure()
		b.RecordSuccess()
		_, change := b.RecordFailure()
		assert.False(t, change.Opened)
		assert.Equal(t, StateClosed, b.State())
	})

	t.Run("failure between probe successes keeps it open", func(t *testing.T) {
		b := newTestBreaker(clock)
		b.RecordFailure()
		b.RecordFailure()
		b.RecordSuccess()
		b.RecordFailure()
		_, change := b.RecordSuccess()
		assert.False(t, change.Closed)
		assert.True(t, b.IsOpen())
	})
}

func TestBreaker_Reset(t *testing.T) {
	b := New("resend", WithFailureThreshold(1))
	b.RecordFailure()
	require.True(t, b.IsOpen())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreaker_IgnoresInvalidOptions(t *testing.T) {
	b := New("resend", WithFailureThreshold(0), WithSuccessThreshold(-1), WithCooldown(0))
	for i := 0; i < 4; i++ {
		_, change := b.RecordFailure()
		assert.False(t, change.Opened, "default threshold is five")
	}
	_, change := b.RecordFailure()
	assert.True(t, change.Opened)
}
