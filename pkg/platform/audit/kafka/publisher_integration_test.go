//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "libregistry/pkg/platform/audit"
	"libregistry/pkg/platform/audit/kafka"
	"libregistry/pkg/testutil/containers"
)

func TestPublisherProducesToTopic(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	rc := containers.NewRedpandaContainer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	const topic = "libregistry.audit.test"
	pub, err := kafka.NewPublisher(ctx, rc.Brokers, topic)
	require.NoError(t, err)
	defer pub.Close()

	event := audit.Event{
		ID:         uuid.New(),
		Action:     audit.EventLibraryCreated,
		OPDSURL:    "https://circ.example.org/opds",
		OccurredAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, pub.Emit(ctx, event))
	require.NoError(t, pub.Flush(ctx))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rc.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "https://circ.example.org/opds", string(records[0].Key))

	var got audit.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, audit.EventLibraryCreated, got.Action)
}

func TestEnsureTopicIsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	rc := containers.NewRedpandaContainer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	const topic = "libregistry.audit.idempotent"
	first, err := kafka.NewPublisher(ctx, rc.Brokers, topic)
	require.NoError(t, err)
	first.Close()

	second, err := kafka.NewPublisher(ctx, rc.Brokers, topic)
	require.NoError(t, err)
	second.Close()
}
