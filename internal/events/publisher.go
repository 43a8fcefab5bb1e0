// internal/events/publisher.go
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// TypeTopUpSettled is the event type emitted after a top-up reaches a terminal state.
const TypeTopUpSettled = "topup.settled"

// SettlementEvent announces a committed settlement. Consumers must tolerate
// duplicates and gaps; the database stays the source of truth.
type SettlementEvent struct {
	Type        string    `json:"type"`
	TopUpID     string    `json:"topup_id"`
	AccountID   string    `json:"account_id"`
	ExternalRef string    `json:"external_ref"`
	Amount      int64     `json:"amount"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	Source      string    `json:"source"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publisher delivers settlement events.
type Publisher interface {
	PublishSettlement(ctx context.Context, event SettlementEvent) error
	Close() error
}

type kafkaPublisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewKafkaPublisher creates a Publisher that writes to topic, keyed by account id
// so events of one account stay ordered within a partition.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		Logger:       kafka.LoggerFunc(func(msg string, args ...interface{}) { logger.Debug(fmt.Sprintf(msg, args...)) }),
		ErrorLogger:  kafka.LoggerFunc(func(msg string, args ...interface{}) { logger.Error(fmt.Sprintf(msg, args...)) }),
	}
	return &kafkaPublisher{writer: writer, logger: logger}
}

func (p *kafkaPublisher) PublishSettlement(ctx context.Context, event SettlementEvent) error {
	msg, err := encodeSettlement(event)
	if err != nil {
		return err
	}

	produceCtx, cancel := context.WithTimeout(ctx, p.writer.WriteTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(produceCtx, msg); err != nil {
		return fmt.Errorf("failed to publish settlement of %s: %w", event.ExternalRef, err)
	}
	p.logger.Debug("Settlement event published",
		zap.String("external_ref", event.ExternalRef),
		zap.String("status", event.Status),
	)
	return nil
}

func (p *kafkaPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer: %w", err)
	}
	p.logger.Info("Kafka publisher closed.")
	return nil
}

func encodeSettlement(event SettlementEvent) (kafka.Message, error) {
	if event.Type == "" {
		event.Type = TypeTopUpSettled
	}
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode settlement event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.AccountID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
		Time: event.OccurredAt,
	}, nil
}

// NopPublisher drops every event. It is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishSettlement(context.Context, SettlementEvent) error { return nil }
func (NopPublisher) Close() error                                             { return nil }
