package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	domcheckout "example.com/storefront-checkout/app/internal/domain/checkout"
)

func TestKafkaPublisher_Publish(t *testing.T) {
	config := mocks.NewTestConfig()
	config.Producer.Return.Successes = true
	producer := mocks.NewAsyncProducer(t, config)

	var got domcheckout.Event
	producer.ExpectInputWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, err := msg.Key.Encode()
		require.NoError(t, err)
		require.Equal(t, "chk-1", string(key))
		value, err := msg.Value.Encode()
		require.NoError(t, err)
		return json.Unmarshal(value, &got)
	})

	p := newKafkaPublisher(producer, "checkout-events", nil)
	err := p.Publish(context.Background(), domcheckout.Event{
		ID:         "evt-1",
		Type:       domcheckout.EventOrderPlaced,
		CheckoutID: "chk-1",
		OrderID:    "ord-9",
		OccurredAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	select {
	case msg := <-producer.Successes():
		require.Equal(t, "checkout-events", msg.Topic)
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
	require.NoError(t, p.Close())
	require.Equal(t, domcheckout.EventOrderPlaced, got.Type)
	require.Equal(t, "ord-9", got.OrderID)
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewLogPublisher(zap.New(core))

	require.NoError(t, p.Publish(context.Background(), domcheckout.Event{Type: domcheckout.EventAbandoned, CheckoutID: "chk-2"}))
	require.Equal(t, 1, logs.FilterMessage("checkout event").Len())
}
