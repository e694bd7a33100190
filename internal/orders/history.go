package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/kv"
)

// MaxOrders caps the persisted history; older records are evicted.
const MaxOrders = 50

// History is the per-profile order history, newest first.
type History struct {
	store kv.Store
	key   string

	mu sync.Mutex
}

func NewHistory(store kv.Store, sessionID string) *History {
	return &History{
		store: store,
		key:   kv.Key(sessionID, "orders"),
	}
}

func (h *History) List(ctx context.Context) []domain.OrderRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.load(ctx)
}

// Append records an order, evicting the oldest entries beyond MaxOrders.
func (h *History) Append(ctx context.Context, order domain.OrderRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	records := append([]domain.OrderRecord{order}, h.load(ctx)...)
	if len(records) > MaxOrders {
		records = records[:MaxOrders]
	}

	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return h.store.Set(ctx, h.key, data)
}

func (h *History) Get(ctx context.Context, id string) (domain.OrderRecord, bool) {
	for _, o := range h.List(ctx) {
		if o.ID == id {
			return o, true
		}
	}
	return domain.OrderRecord{}, false
}

func (h *History) load(ctx context.Context) []domain.OrderRecord {
	data, err := h.store.Get(ctx, h.key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	}
	if err != nil {
		slog.WarnContext(ctx, "order history read failed", "key", h.key, "error", err)
		return nil
	}

	var records []domain.OrderRecord
	if err := json.Unmarshal(data, &records); err != nil {
		slog.WarnContext(ctx, "order history is corrupt, starting empty", "key", h.key, "error", err)
		return nil
	}
	if len(records) > MaxOrders {
		records = records[:MaxOrders]
	}
	return records
}
