//go:build integration

package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"idregistry/internal/platform/config"
	"idregistry/pkg/testutil/containers"
)

func TestProducerRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	broker := containers.NewRedpandaContainer(t)
	cfg := config.KafkaConfig{Brokers: []string{broker.Broker}, Topic: "registry.notifications", Partitions: 1, ReplicationFactor: 1}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	producer, err := NewProducer(cfg)
	require.NoError(t, err)
	defer producer.Close()

	require.NoError(t, EnsureTopic(ctx, producer, cfg))
	require.NoError(t, EnsureTopic(ctx, producer, cfg), "second call tolerates an existing topic")
	require.NoError(t, Health(ctx, producer))

	require.NoError(t, producer.ProduceSync(ctx, &kgo.Record{Key: []byte("main"), Value: []byte("{}")}).FirstErr())

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker.Broker),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.Empty(t, fetches.Errors())
	records := fetches.Records()
	require.NotEmpty(t, records)
	assert.Equal(t, []byte("main"), records[0].Key)
}
