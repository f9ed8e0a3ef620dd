package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/example/jewelshop/pkg/config"
	"github.com/example/jewelshop/pkg/repository"
	"go.mongodb.org/mongo-driver/bson"
)

const serviceName = "storefront"

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *repository.AuditLog) error
}

// AuditSink records events in the Mongo audit collection.
type AuditSink struct {
	store auditWriter
}

func NewAuditSink(store auditWriter) *AuditSink {
	return &AuditSink{store: store}
}

func (s *AuditSink) Name() string { return "audit" }

func (s *AuditSink) Handle(ctx context.Context, e Event) error {
	data := bson.M{
		"status":        e.Status,
		"paymentStatus": e.PaymentStatus,
		"userId":        e.UserID,
	}
	for k, v := range e.Detail {
		data[k] = v
	}
	return s.store.CreateAuditLog(ctx, &repository.AuditLog{
		Service:   serviceName,
		Action:    string(e.Type),
		EntityID:  e.OrderID,
		Actor:     e.Actor,
		Data:      data,
		CreatedAt: e.At,
	})
}

// KafkaSink publishes events as JSON, keyed by order id so that one order's
// events stay on one partition.
type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaSink(cfg config.KafkaConfig) (*KafkaSink, error) {
	sc := sarama.NewConfig()
	sc.ClientID = cfg.ClientID
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Return.Successes = true
	sc.Net.DialTimeout = 5 * time.Second

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewKafkaSinkFromProducer(producer, cfg.Topic), nil
}

func NewKafkaSinkFromProducer(producer sarama.SyncProducer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Handle(_ context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, _, err = s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(e.OrderID),
		Value: sarama.ByteEncoder(body),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(e.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.producer.Close()
}
