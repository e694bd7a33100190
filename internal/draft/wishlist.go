package draft

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/kv"
)

// Wishlist is a set of items keyed by identity, kept in insertion order.
type Wishlist struct {
	blob blob[domain.WishlistItem]
	now  func() time.Time

	once  sync.Once
	mu    sync.Mutex
	items []domain.WishlistItem

	tracking bool
	changes  []Change
}

// Change is one local add or removal recorded while tracking.
type Change struct {
	Item  domain.WishlistItem
	Added bool
}

func NewWishlist(store kv.Store, sessionID string) *Wishlist {
	return &Wishlist{
		blob: blob[domain.WishlistItem]{store: store, key: kv.Key(sessionID, "wishlist")},
		now:  time.Now,
	}
}

func (w *Wishlist) hydrate(ctx context.Context) {
	w.once.Do(func() {
		w.items = dedupe(w.blob.load(ctx))
	})
}

// Toggle adds the item when absent and removes it when present. It reports
// whether the item is wishlisted afterwards.
func (w *Wishlist) Toggle(ctx context.Context, in domain.StoreItemInput) (domain.WishlistItem, bool, error) {
	item, err := in.WishlistItem()
	if err != nil {
		return domain.WishlistItem{}, false, err
	}
	w.hydrate(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()

	if i := indexOfItem(w.items, item.Identity); i >= 0 {
		removed := w.items[i]
		w.items = append(w.items[:i], w.items[i+1:]...)
		w.recordLocked(removed, false)
		w.blob.save(ctx, w.items)
		return removed, false, nil
	}

	item.AddedAt = w.now()
	w.items = append(w.items, item)
	w.recordLocked(item, true)
	w.blob.save(ctx, w.items)
	return item, true, nil
}

// Add inserts the item unless its identity is already present.
func (w *Wishlist) Add(ctx context.Context, item domain.WishlistItem) bool {
	if !item.Identity.Valid() {
		return false
	}
	w.hydrate(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()

	if indexOfItem(w.items, item.Identity) >= 0 {
		return false
	}
	if item.AddedAt.IsZero() {
		item.AddedAt = w.now()
	}
	w.items = append(w.items, item)
	w.recordLocked(item, true)
	w.blob.save(ctx, w.items)
	return true
}

func (w *Wishlist) Contains(ctx context.Context, id domain.Identity) bool {
	w.hydrate(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	return indexOfItem(w.items, id) >= 0
}

// Remove is a no-op for absent identities.
func (w *Wishlist) Remove(ctx context.Context, id domain.Identity) bool {
	w.hydrate(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()

	i := indexOfItem(w.items, id)
	if i < 0 {
		return false
	}
	removed := w.items[i]
	w.items = append(w.items[:i], w.items[i+1:]...)
	w.recordLocked(removed, false)
	w.blob.save(ctx, w.items)
	return true
}

// Replace swaps the whole set, dropping duplicate identities.
func (w *Wishlist) Replace(ctx context.Context, items []domain.WishlistItem) {
	w.hydrate(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.items = dedupe(items)
	w.blob.save(ctx, w.items)
}

func (w *Wishlist) Items(ctx context.Context) []domain.WishlistItem {
	w.hydrate(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]domain.WishlistItem, len(w.items))
	copy(out, w.items)
	return out
}

func (w *Wishlist) Count(ctx context.Context) int {
	w.hydrate(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.items)
}

func (w *Wishlist) Clear(ctx context.Context) {
	w.hydrate(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, it := range w.items {
		w.recordLocked(it, false)
	}
	w.items = nil
	w.blob.clear(ctx)
}

// Track starts recording local changes for a later Reconcile. Changes
// already recorded are kept so a restarted fetch still replays them.
func (w *Wishlist) Track() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tracking = true
}

// Untrack stops recording and drops the recorded changes.
func (w *Wishlist) Untrack() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tracking = false
	w.changes = nil
}

// Reconcile replaces the set with fn(current items, recorded changes) in one
// critical section, then stops tracking.
func (w *Wishlist) Reconcile(ctx context.Context, fn func(local []domain.WishlistItem, changes []Change) []domain.WishlistItem) {
	w.hydrate(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()

	local := make([]domain.WishlistItem, len(w.items))
	copy(local, w.items)
	changes := w.changes

	w.items = dedupe(fn(local, changes))
	w.tracking = false
	w.changes = nil
	w.blob.save(ctx, w.items)
}

func (w *Wishlist) recordLocked(item domain.WishlistItem, added bool) {
	if w.tracking {
		w.changes = append(w.changes, Change{Item: item, Added: added})
	}
}

func indexOfItem(items []domain.WishlistItem, id domain.Identity) int {
	for i := range items {
		if items[i].Identity.Equal(id) {
			return i
		}
	}
	return -1
}

func dedupe(items []domain.WishlistItem) []domain.WishlistItem {
	out := make([]domain.WishlistItem, 0, len(items))
	for _, it := range items {
		if !it.Identity.Valid() || indexOfItem(out, it.Identity) >= 0 {
			continue
		}
		out = append(out, it)
	}
	return out
}
