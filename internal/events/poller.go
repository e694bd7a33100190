package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// CartClearer empties the cart of a browser profile.
type CartClearer interface {
	ClearCart(ctx context.Context, sessionID string) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Poller listens for completed checkouts and empties the matching carts.
type Poller struct {
	reader  messageReader
	clearer CartClearer
}

func NewPoller(clearer CartClearer, topic, groupID string, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{reader: reader, clearer: clearer}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.handleNext(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		slog.Error("error closing reader", "error", err)
	}
}

func (p *Poller) handleNext(ctx context.Context) {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.ErrorContext(ctx, "error reading message", "error", err)
		}
		return
	}

	var payload struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(m.Value, &payload); err != nil {
		slog.WarnContext(ctx, "error parsing checkout message", "error", err, "offset", m.Offset)
		return
	}
	if payload.SessionID == "" {
		slog.WarnContext(ctx, "checkout message without session_id", "offset", m.Offset)
		return
	}

	if err := p.clearer.ClearCart(ctx, payload.SessionID); err != nil {
		slog.ErrorContext(ctx, "failed to clear cart", "session", payload.SessionID, "error", err)
	}
}
