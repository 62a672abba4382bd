package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"idregistry/internal/access/models"
)

const (
	headerEvent    = "event"
	headerSequence = "sequence"
)

// RecordProducer is the part of *kgo.Client the notifier needs.
type RecordProducer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaNotifier publishes notifications as JSON records keyed by registry id,
// so all notifications of one registry land on one partition in order.
type KafkaNotifier struct {
	producer RecordProducer
	topic    string
}

func NewKafkaNotifier(producer RecordProducer, topic string) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, topic: topic}
}

func (k *KafkaNotifier) Notify(ctx context.Context, n models.Notification) error {
	record, err := k.record(n)
	if err != nil {
		return err
	}
	if err := k.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce %s notification: %w", n.Event.Name(), err)
	}
	return nil
}

func (k *KafkaNotifier) record(n models.Notification) (*kgo.Record, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("marshal notification: %w", err)
	}
	return &kgo.Record{
		Topic: k.topic,
		Key:   []byte(n.RegistryID),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: headerEvent, Value: []byte(n.Event.Name())},
			{Key: headerSequence, Value: fmt.Appendf(nil, "%d", n.Sequence)},
		},
		Timestamp: n.OccurredAt,
	}, nil
}
