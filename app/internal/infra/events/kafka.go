package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	domcheckout "example.com/storefront-checkout/app/internal/domain/checkout"
)

// KafkaPublisher sends checkout events to one topic, keyed by checkout id so
// a checkout's events stay ordered within a partition.
type KafkaPublisher struct {
	producer sarama.AsyncProducer
	topic    string
	logger   *zap.Logger
	wg       sync.WaitGroup
}

func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 500 * time.Millisecond
	config.Producer.Retry.Max = 5

	producer, err := sarama.NewAsyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}
	return newKafkaPublisher(producer, topic, logger), nil
}

func newKafkaPublisher(producer sarama.AsyncProducer, topic string, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &KafkaPublisher{producer: producer, topic: topic, logger: logger}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for err := range producer.Errors() {
			p.logger.Error("kafka delivery failed", zap.String("topic", p.topic), zap.Error(err))
		}
	}()
	return p
}

func (p *KafkaPublisher) Publish(ctx context.Context, e domcheckout.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(e.CheckoutID),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(e.Type)},
		},
		Timestamp: e.OccurredAt,
	}
	select {
	case p.producer.Input() <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes buffered messages and waits for the error drain to finish.
func (p *KafkaPublisher) Close() error {
	err := p.producer.Close()
	p.wg.Wait()
	return err
}

// LogPublisher writes events to the log; used when no broker is configured.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, e domcheckout.Event) error {
	p.logger.Info("checkout event",
		zap.String("type", string(e.Type)),
		zap.String("checkout_id", e.CheckoutID),
		zap.String("session_id", e.SessionID),
		zap.String("order_id", e.OrderID),
		zap.String("coupon_code", e.CouponCode),
	)
	return nil
}
