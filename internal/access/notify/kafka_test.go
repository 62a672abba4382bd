package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"idregistry/internal/access/models"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (p *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		if p.err == nil {
			p.records = append(p.records, r)
		}
		results = append(results, kgo.ProduceResult{Record: r, Err: p.err})
	}
	return results
}

func TestKafkaNotifier(t *testing.T) {
	t.Run("produces keyed json record", func(t *testing.T) {
		producer := &fakeProducer{}
		k := NewKafkaNotifier(producer, "registry.notifications")
		n := notification(t, models.OwnershipTransferred{PreviousOwner: owner, NewOwner: newcomer})

		require.NoError(t, k.Notify(context.Background(), n))
		require.Len(t, producer.records, 1)

		r := producer.records[0]
		assert.Equal(t, "registry.notifications", r.Topic)
		assert.Equal(t, []byte("main"), r.Key)
		assert.Equal(t, kgo.RecordHeader{Key: "event", Value: []byte("OwnershipTransferred")}, r.Headers[0])
		assert.Equal(t, kgo.RecordHeader{Key: "sequence", Value: []byte("2")}, r.Headers[1])

		var body map[string]any
		require.NoError(t, json.Unmarshal(r.Value, &body))
		assert.Equal(t, "OwnershipTransferred", body["event"])
		payload := body["payload"].(map[string]any)
		assert.Equal(t, newcomer.String(), payload["new_owner"])
	})

	t.Run("producer failure is returned", func(t *testing.T) {
		boom := errors.New("not enough replicas")
		k := NewKafkaNotifier(&fakeProducer{err: boom}, "registry.notifications")

		err := k.Notify(context.Background(), notification(t, models.DisableTrustedOnly{}))
		assert.ErrorIs(t, err, boom)
	})
}
