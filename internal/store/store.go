// Package store is the per-profile state container the storefront reads:
// cart and wishlist drafts, wishlist sync with the customer account, and
// order history.
package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/draft"
	"github.com/fjod/go_cart/storefront/internal/events"
	"github.com/fjod/go_cart/storefront/internal/kv"
	"github.com/fjod/go_cart/storefront/internal/orders"
	"github.com/fjod/go_cart/storefront/internal/remote"
)

type Deps struct {
	Storage      kv.Store
	Backend      remote.Backend
	Publisher    events.Publisher
	MergePolicy  remote.MergePolicy
	FetchTimeout time.Duration
	Now          func() time.Time
}

type Store struct {
	sessionID string
	storage   kv.Store
	cart      *draft.Cart
	wishlist  *draft.Wishlist
	sync      *remote.Adapter
	orders    *orders.History
	publisher events.Publisher
	now       func() time.Time
}

func New(sessionID string, deps Deps) *Store {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}

	wishlist := draft.NewWishlist(deps.Storage, sessionID)
	s := &Store{
		sessionID: sessionID,
		storage:   deps.Storage,
		cart:      draft.NewCart(deps.Storage, sessionID),
		wishlist:  wishlist,
		sync:      remote.NewAdapter(deps.Backend, wishlist, deps.MergePolicy, deps.FetchTimeout),
		orders:    orders.NewHistory(deps.Storage, sessionID),
		publisher: publisher,
		now:       now,
	}
	s.restoreToken(context.Background())
	return s
}

// restoreToken signs a re-created store back in with the token saved by
// Login, so an idle sweep does not log the profile out.
func (s *Store) restoreToken(ctx context.Context) {
	raw, err := s.storage.Get(ctx, s.tokenKey())
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			slog.WarnContext(ctx, "failed to restore session token", "session", s.sessionID, "error", err)
		}
		return
	}
	if token := string(raw); token != "" {
		s.sync.SetToken(token)
	}
}

func (s *Store) tokenKey() string {
	return kv.Key(s.sessionID, "token")
}

type Snapshot struct {
	SessionID        string `json:"sessionId"`
	Authenticated    bool   `json:"authenticated"`
	CartCount        int    `json:"cartCount"`
	WishlistCount    int    `json:"wishlistCount"`
	WishlistState    string `json:"wishlistState"`
	WishlistHydrated bool   `json:"wishlistHydrated"`
	WishlistError    string `json:"wishlistError,omitempty"`
}

func (s *Store) Snapshot(ctx context.Context) Snapshot {
	return Snapshot{
		SessionID:        s.sessionID,
		Authenticated:    s.sync.Token() != "",
		CartCount:        s.CartCount(ctx),
		WishlistCount:    s.WishlistCount(ctx),
		WishlistState:    s.sync.State().String(),
		WishlistHydrated: s.sync.Hydrated(),
		WishlistError:    s.sync.Error(),
	}
}

// CartCount is the number of distinct lines.
func (s *Store) CartCount(ctx context.Context) int {
	return s.cart.Count(ctx)
}

func (s *Store) WishlistCount(ctx context.Context) int {
	return s.wishlist.Count(ctx)
}

func (s *Store) AddToCart(ctx context.Context, item domain.StoreItemInput, quantity int) (domain.CartLine, error) {
	return s.cart.Add(ctx, item, quantity)
}

func (s *Store) UpdateCartQuantity(ctx context.Context, id domain.Identity, quantity int) error {
	return s.cart.SetQuantity(ctx, id, quantity)
}

func (s *Store) RemoveFromCart(ctx context.Context, id domain.Identity) bool {
	return s.cart.Remove(ctx, id)
}

func (s *Store) ClearCart(ctx context.Context) {
	s.cart.Clear(ctx)
}

func (s *Store) CartLines(ctx context.Context) []domain.CartLine {
	return s.cart.Lines(ctx)
}

func (s *Store) CartTotalCents(ctx context.Context) int64 {
	return s.cart.TotalCents(ctx)
}

// ToggleWishlist flips membership locally and mirrors it to the account when
// signed in. A failed mirror is logged; the draft stays as toggled.
func (s *Store) ToggleWishlist(ctx context.Context, in domain.StoreItemInput) (bool, error) {
	item, added, err := s.wishlist.Toggle(ctx, in)
	if err != nil {
		return false, err
	}

	if added {
		err = s.sync.PushAdd(ctx, item)
	} else {
		err = s.sync.PushRemove(ctx, item.Identity)
	}
	if err != nil {
		slog.WarnContext(ctx, "wishlist change not synced", "session", s.sessionID, "item", item.Identity.Key(), "added", added, "error", err)
	}
	return added, nil
}

func (s *Store) IsWishlisted(ctx context.Context, in domain.StoreItemInput) bool {
	id, err := in.Identity()
	if err != nil {
		return false
	}
	return s.wishlist.Contains(ctx, id)
}

// RemoveWishlist is a no-op when the identity is not wishlisted.
func (s *Store) RemoveWishlist(ctx context.Context, id domain.Identity) {
	if !s.wishlist.Remove(ctx, id) {
		return
	}
	if err := s.sync.PushRemove(ctx, id); err != nil {
		slog.WarnContext(ctx, "wishlist removal not synced", "session", s.sessionID, "item", id.Key(), "error", err)
	}
}

func (s *Store) Wishlist(ctx context.Context) []domain.WishlistItem {
	return s.wishlist.Items(ctx)
}

// Login hands the customer token to the sync adapter, which hydrates the
// wishlist in the background. The token is persisted with the drafts.
func (s *Store) Login(ctx context.Context, token string) {
	s.sync.SetToken(token)
	if err := s.storage.Set(ctx, s.tokenKey(), []byte(token)); err != nil {
		slog.WarnContext(ctx, "failed to persist session token", "session", s.sessionID, "error", err)
	}
}

func (s *Store) Logout(ctx context.Context) {
	s.sync.ClearToken()
	if err := s.storage.Remove(ctx, s.tokenKey()); err != nil && !errors.Is(err, kv.ErrNotFound) {
		slog.WarnContext(ctx, "failed to remove session token", "session", s.sessionID, "error", err)
	}
}

func (s *Store) RefreshWishlist() error {
	return s.sync.Refresh()
}

// WaitWishlist blocks until the wishlist fetch in flight, if any, settles.
func (s *Store) WaitWishlist(ctx context.Context) error {
	return s.sync.Wait(ctx)
}

func (s *Store) WishlistHydrated() bool {
	return s.sync.Hydrated()
}

func (s *Store) WishlistError() string {
	return s.sync.Error()
}

func (s *Store) Token() string {
	return s.sync.Token()
}

// PlaceOrder turns the cart into a paid order record, keeps it in the
// history, clears the cart and announces the order.
func (s *Store) PlaceOrder(ctx context.Context, payment domain.PaymentInfo) (domain.OrderRecord, error) {
	record, err := orders.NewRecord(s.sessionID, s.cart.Lines(ctx), s.cart.TotalCents(ctx), payment, s.now())
	if err != nil {
		return domain.OrderRecord{}, err
	}
	if err := s.orders.Append(ctx, record); err != nil {
		slog.WarnContext(ctx, "order history write failed", "session", s.sessionID, "order", record.ID, "error", err)
	}
	s.cart.Clear(ctx)

	if err := s.publisher.OrderPlaced(ctx, record); err != nil {
		slog.ErrorContext(ctx, "failed to publish order", "order", record.ID, "error", err)
	}
	return record, nil
}

func (s *Store) Orders(ctx context.Context) []domain.OrderRecord {
	return s.orders.List(ctx)
}

func (s *Store) Order(ctx context.Context, id string) (domain.OrderRecord, bool) {
	return s.orders.Get(ctx, id)
}

func (s *Store) Close() {
	s.sync.Close()
}
