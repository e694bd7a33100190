package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/segmentio/kafka-go"
)

const EventOrderPlaced = "order.placed"

type Publisher interface {
	OrderPlaced(ctx context.Context, order domain.OrderRecord) error
	Close() error
}

type OrderPlacedEvent struct {
	Type       string             `json:"type"`
	OccurredAt time.Time          `json:"occurred_at"`
	SessionID  string             `json:"session_id"`
	Order      domain.OrderRecord `json:"order"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(topic string, brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}
}

// OrderPlaced keys the message by session so a profile's orders stay ordered.
func (p *KafkaPublisher) OrderPlaced(ctx context.Context, order domain.OrderRecord) error {
	payload, err := json.Marshal(OrderPlacedEvent{
		Type:       EventOrderPlaced,
		OccurredAt: time.Now().UTC(),
		SessionID:  order.SessionID,
		Order:      order,
	})
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(order.SessionID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(EventOrderPlaced)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish order event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher is used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) OrderPlaced(context.Context, domain.OrderRecord) error { return nil }

func (NoopPublisher) Close() error { return nil }
