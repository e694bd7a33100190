package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

func TestKafkaPublisher_OrderPlaced(t *testing.T) {
	w := &mockWriter{}
	p := &KafkaPublisher{writer: w}

	err := p.OrderPlaced(context.Background(), domain.OrderRecord{ID: "o1", SessionID: "s1", TotalCents: 800})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "s1", string(w.msgs[0].Key))

	var ev OrderPlacedEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &ev))
	assert.Equal(t, EventOrderPlaced, ev.Type)
	assert.Equal(t, "o1", ev.Order.ID)
	assert.Equal(t, int64(800), ev.Order.TotalCents)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	p := &KafkaPublisher{writer: &mockWriter{err: errors.New("broker down")}}
	err := p.OrderPlaced(context.Background(), domain.OrderRecord{ID: "o1"})
	require.ErrorContains(t, err, "broker down")
}

type mockReader struct {
	msgs []kafka.Message
	err  error
}

func (m *mockReader) ReadMessage(context.Context) (kafka.Message, error) {
	if len(m.msgs) == 0 {
		if m.err != nil {
			return kafka.Message{}, m.err
		}
		return kafka.Message{}, context.Canceled
	}
	msg := m.msgs[0]
	m.msgs = m.msgs[1:]
	return msg, nil
}

func (m *mockReader) Close() error { return nil }

type mockClearer struct {
	mu      sync.Mutex
	cleared []string
	err     error
}

func (m *mockClearer) ClearCart(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared = append(m.cleared, sessionID)
	return m.err
}

func TestPoller_ClearsCartOnCheckout(t *testing.T) {
	reader := &mockReader{msgs: []kafka.Message{
		{Value: []byte(`{"session_id":"s1","checkout_id":"c1"}`)},
		{Value: []byte(`not json`)},
		{Value: []byte(`{"user_id":"7"}`)},
		{Value: []byte(`{"session_id":"s2"}`)},
	}}
	clearer := &mockClearer{}
	p := &Poller{reader: reader, clearer: clearer}

	for i := 0; i < 4; i++ {
		p.handleNext(context.Background())
	}

	assert.Equal(t, []string{"s1", "s2"}, clearer.cleared)
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &Poller{reader: &mockReader{}, clearer: &mockClearer{}}
	p.Run(ctx)
	p.Close()
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.OrderPlaced(context.Background(), domain.OrderRecord{}))
	assert.NoError(t, p.Close())
}
