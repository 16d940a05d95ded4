package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// KafkaSink forwards every event to a Kafka topic as JSON keyed by user id.
type KafkaSink struct {
	client *kgo.Client
	topic  string
	logger *zap.Logger
}

// NewKafkaSink connects to brokers. It returns nil when no brokers are configured.
func NewKafkaSink(ctx context.Context, brokers []string, topic string, logger *zap.Logger) (*KafkaSink, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchMaxBytes(1<<20),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	sink := &KafkaSink{client: client, topic: topic, logger: logger}
	if err := sink.ensureTopic(ctx); err != nil {
		logger.Warn("kafka topic check failed", zap.String("topic", topic), zap.Error(err))
	}
	return sink, nil
}

func (s *KafkaSink) ensureTopic(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	admin := kadm.NewClient(s.client)
	topics, err := admin.ListTopics(ctx, s.topic)
	if err != nil {
		return err
	}
	if d, ok := topics[s.topic]; ok && d.Err == nil {
		return nil
	}
	resp, err := admin.CreateTopic(ctx, 1, -1, nil, s.topic)
	if err != nil {
		return err
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return resp.Err
	}
	s.logger.Info("created kafka topic", zap.String("topic", s.topic))
	return nil
}

// Handle produces one event synchronously with a short timeout.
func (s *KafkaSink) Handle(ctx context.Context, event Event) error {
	if s == nil || s.client == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	produceCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	record := &kgo.Record{
		Key:   []byte(event.UserID),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := s.client.ProduceSync(produceCtx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce %s: %w", event.Type, err)
	}
	return nil
}

// Register subscribes the sink to every event type.
func (s *KafkaSink) Register(d Dispatcher) {
	if s == nil {
		return
	}
	SubscribeAll(d, s.Handle)
}

// Close flushes and closes the client. Safe on nil.
func (s *KafkaSink) Close() {
	if s == nil || s.client == nil {
		return
	}
	s.client.Close()
}
