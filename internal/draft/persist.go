package draft

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/fjod/go_cart/storefront/internal/kv"
)

// blob reads and writes one JSON container through the persistence port.
// Read problems of any kind degrade to an empty container; write problems
// are logged and the in-memory state stays authoritative.
type blob[T any] struct {
	store kv.Store
	key   string
}

func (b blob[T]) load(ctx context.Context) []T {
	data, err := b.store.Get(ctx, b.key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	}
	if err != nil {
		slog.WarnContext(ctx, "draft read failed, starting empty", "key", b.key, "error", err)
		return nil
	}

	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		slog.WarnContext(ctx, "draft is corrupt, starting empty", "key", b.key, "error", err)
		return nil
	}
	return out
}

func (b blob[T]) save(ctx context.Context, items []T) {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		slog.ErrorContext(ctx, "draft marshal failed", "key", b.key, "error", err)
		return
	}
	if err := b.store.Set(ctx, b.key, data); err != nil {
		slog.WarnContext(ctx, "draft write failed", "key", b.key, "error", err)
	}
}

func (b blob[T]) clear(ctx context.Context) {
	if err := b.store.Remove(ctx, b.key); err != nil {
		slog.WarnContext(ctx, "draft remove failed", "key", b.key, "error", err)
	}
}
