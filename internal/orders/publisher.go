package orders

import (
	"context"
	"encoding/json"
	"strconv"

	kafkax "github.com/ivan-hilckov/shawarma-bot-sub000/internal/kafka"
	kafkago "github.com/segmentio/kafka-go"
)

// KafkaPublisher puts envelopes on the shared async producer.
type KafkaPublisher struct {
	Producer *kafkax.Producer
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic string, env Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return p.Producer.Publish(ctx, kafkago.Message{
		Topic: topic,
		Key:   PartitionKey(env.CorrelationID),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "x-event-type", Value: []byte(env.EventType)},
			{Key: "x-event-version", Value: []byte(strconv.Itoa(env.EventVersion))},
		},
	})
}
