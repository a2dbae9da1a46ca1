//go:build integration

package producer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"esign/internal/platform/kafka/producer"
	"esign/pkg/testutil/containers"
)

func TestProducer_ProduceIsConsumable(t *testing.T) {
	kc := containers.GetManager().GetKafka(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	topic := "esign.producer.test"
	require.NoError(t, kc.CreateTopic(ctx, topic, 1, 1))

	p, err := producer.New(producer.DefaultConfig(kc.Brokers), nil)
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Health(ctx))
	require.NoError(t, p.Produce(ctx, &producer.Message{
		Topic:   topic,
		Key:     []byte("user-1"),
		Value:   []byte(`{"action":"kyc_verify"}`),
		Headers: map[string]string{"event_type": "kyc_verify"},
	}))

	consumer, err := kc.NewConsumer(ctx, "producer-test", topic)
	require.NoError(t, err)
	defer consumer.Close()

	record := kc.WaitForMessage(ctx, consumer, 20*time.Second, func(r *kgo.Record) bool {
		return string(r.Key) == "user-1"
	})
	require.NotNil(t, record)
	require.JSONEq(t, `{"action":"kyc_verify"}`, string(record.Value))
}

func TestProducer_ClosedRejectsProduce(t *testing.T) {
	p, err := producer.New(producer.DefaultConfig("localhost:1"), nil)
	require.NoError(t, err)
	require.NoError(t, p.Close())

	err = p.Produce(context.Background(), &producer.Message{Topic: "t"})
	require.Error(t, err)
	require.Error(t, p.Health(context.Background()))
}
