//go:build integration

package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"retreat/pkg/testutil/containers"
)

func TestKafkaProducer_PublishesOutboxEntries(t *testing.T) {
	kafka := containers.NewKafkaContainer(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	const topic = "retreat.audit.test"
	require.NoError(t, CreateTopic(ctx, []string{kafka.Broker}, topic, 1, 1))
	require.NoError(t, CreateTopic(ctx, []string{kafka.Broker}, topic, 1, 1), "existing topic is not an error")

	producer, err := NewKafkaProducer([]string{kafka.Broker}, topic)
	require.NoError(t, err)
	defer producer.Close()

	entry := OutboxEntry{
		ID:          uuid.New(),
		AggregateID: "r1",
		EventType:   ActionRegistrationRefunded,
		Payload:     []byte(`{"action":"registration_refunded"}`),
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, producer.Publish(ctx, []OutboxEntry{entry}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(kafka.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.Empty(t, fetches.Errors())
	records := fetches.Records()
	require.NotEmpty(t, records)
	assert.Equal(t, "r1", string(records[0].Key))
	assert.JSONEq(t, string(entry.Payload), string(records[0].Value))
}
