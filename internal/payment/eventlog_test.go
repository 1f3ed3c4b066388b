package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryEventLog(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryEventLog(time.Minute)
	now := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	log.now = func() time.Time { return now }

	first, err := log.Record(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, first)

	first, err = log.Record(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, first)

	require.NoError(t, log.Forget(ctx, "evt_1"))
	first, _ = log.Record(ctx, "evt_1")
	assert.True(t, first)

	now = now.Add(2 * time.Minute)
	first, _ = log.Record(ctx, "evt_1")
	assert.True(t, first, "expired entries are processed again")
}
