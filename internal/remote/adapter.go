// Package remote keeps a profile's draft wishlist in step with the
// customer's server-side wishlist once a token is known.
package remote

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/draft"
	"github.com/fjod/go_cart/storefront/internal/gamestore"
)

var ErrNoToken = errors.New("no customer token")

// Backend is the slice of the game store API the adapter needs.
type Backend interface {
	Wishlist(ctx context.Context, token string) ([]domain.WishlistItem, error)
	AddWishlist(ctx context.Context, token string, item domain.WishlistItem) error
	RemoveWishlist(ctx context.Context, token string, id domain.Identity) error
}

// LocalWishlist is the draft container the adapter reconciles into. It
// records local changes between Track and Reconcile so they can be replayed
// over a server snapshot taken before them.
type LocalWishlist interface {
	Track()
	Untrack()
	Reconcile(ctx context.Context, fn func(local []domain.WishlistItem, changes []draft.Change) []domain.WishlistItem)
}

type State int

const (
	StateIdle State = iota
	StateLoading
	StateHydrated
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateHydrated:
		return "hydrated"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

type MergePolicy string

const (
	// MergeLocal keeps wishlist drafts made before login and pushes them up.
	MergeLocal MergePolicy = "merge"
	// ServerWins discards drafts in favour of the server list.
	ServerWins MergePolicy = "server"
)

type Adapter struct {
	backend Backend
	local   LocalWishlist
	policy  MergePolicy
	timeout time.Duration

	mu         sync.Mutex
	token      string
	state      State
	errMsg     string
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
	closed     bool
}

func NewAdapter(backend Backend, local LocalWishlist, policy MergePolicy, timeout time.Duration) *Adapter {
	if policy == "" {
		policy = MergeLocal
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Adapter{
		backend: backend,
		local:   local,
		policy:  policy,
		timeout: timeout,
	}
}

// SetToken reacts to a login. Only a change of token starts a fetch; an
// empty token is a logout.
func (a *Adapter) SetToken(token string) {
	token = strings.TrimSpace(token)
	if token == "" {
		a.ClearToken()
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || token == a.token {
		return
	}
	a.token = token
	a.startFetchLocked()
}

// Refresh re-fetches the server wishlist, superseding any fetch in flight.
func (a *Adapter) Refresh() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.token == "" {
		return ErrNoToken
	}
	if !a.closed {
		a.startFetchLocked()
	}
	return nil
}

// ClearToken aborts any fetch and drops remote-derived state. Drafts stay.
func (a *Adapter) ClearToken() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resetLocked()
}

// Close aborts any fetch; results arriving afterwards are discarded.
func (a *Adapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.resetLocked()
}

func (a *Adapter) resetLocked() {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.generation++
	a.local.Untrack()
	a.token = ""
	a.state = StateIdle
	a.errMsg = ""
	a.done = nil
}

func (a *Adapter) startFetchLocked() {
	if a.cancel != nil {
		a.cancel()
	}
	a.generation++
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	done := make(chan struct{})

	a.local.Track()
	a.cancel = cancel
	a.done = done
	a.state = StateLoading
	a.errMsg = ""

	go a.fetch(ctx, cancel, a.generation, a.token, done)
}

func (a *Adapter) fetch(ctx context.Context, cancel context.CancelFunc, gen uint64, token string, done chan struct{}) {
	defer close(done)
	defer cancel()

	remote, err := a.backend.Wishlist(ctx, token)

	a.mu.Lock()
	if gen != a.generation {
		// superseded by a newer fetch, a logout or Close
		a.mu.Unlock()
		slog.DebugContext(ctx, "discarding stale wishlist response", "generation", gen)
		return
	}
	a.cancel = nil
	if err != nil {
		a.state = StateError
		a.errMsg = gamestore.UserMessage(err)
		a.local.Untrack()
		a.mu.Unlock()
		slog.WarnContext(ctx, "wishlist hydration failed", "error", err)
		return
	}

	var pending []domain.WishlistItem
	a.local.Reconcile(context.WithoutCancel(ctx), func(local []domain.WishlistItem, changes []draft.Change) []domain.WishlistItem {
		var result []domain.WishlistItem
		switch a.policy {
		case ServerWins:
			result = append(result, remote...)
		default:
			result, pending = merge(remote, local)
		}
		// changes made while the request was in flight are newer than the
		// snapshot and were already mirrored to the server
		pending = withoutChanged(pending, changes)
		return replay(result, changes)
	})
	a.state = StateHydrated
	a.mu.Unlock()

	// drafts made while anonymous are pushed after the state is released
	pushCtx, pushCancel := context.WithTimeout(context.Background(), a.timeout)
	defer pushCancel()
	for _, item := range pending {
		if err := a.backend.AddWishlist(pushCtx, token, item); err != nil {
			slog.WarnContext(pushCtx, "failed to push draft wishlist item", "item", item.Identity.Key(), "error", err)
		}
	}
}

// merge returns server items followed by local-only items, and the local-only
// items on their own.
func merge(server, local []domain.WishlistItem) (merged, localOnly []domain.WishlistItem) {
	merged = make([]domain.WishlistItem, 0, len(server)+len(local))
	merged = append(merged, server...)
	for _, item := range local {
		found := false
		for _, s := range server {
			if s.Identity.Equal(item.Identity) {
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, item)
			localOnly = append(localOnly, item)
		}
	}
	return merged, localOnly
}

// replay applies recorded local changes in order on top of items.
func replay(items []domain.WishlistItem, changes []draft.Change) []domain.WishlistItem {
	for _, c := range changes {
		i := indexOf(items, c.Item.Identity)
		switch {
		case c.Added && i < 0:
			items = append(items, c.Item)
		case !c.Added && i >= 0:
			items = append(items[:i], items[i+1:]...)
		}
	}
	return items
}

func withoutChanged(items []domain.WishlistItem, changes []draft.Change) []domain.WishlistItem {
	var out []domain.WishlistItem
	for _, it := range items {
		changed := false
		for _, c := range changes {
			if c.Item.Identity.Equal(it.Identity) {
				changed = true
				break
			}
		}
		if !changed {
			out = append(out, it)
		}
	}
	return out
}

func indexOf(items []domain.WishlistItem, id domain.Identity) int {
	for i := range items {
		if items[i].Identity.Equal(id) {
			return i
		}
	}
	return -1
}

// Wait blocks until no fetch is in flight or ctx ends.
func (a *Adapter) Wait(ctx context.Context) error {
	for {
		a.mu.Lock()
		done := a.done
		loading := a.state == StateLoading
		a.mu.Unlock()

		if done == nil || !loading {
			return nil
		}
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// PushAdd mirrors a wishlist addition to the server. Anonymous profiles
// are draft-only and return nil.
func (a *Adapter) PushAdd(ctx context.Context, item domain.WishlistItem) error {
	token := a.Token()
	if token == "" {
		return nil
	}
	return a.backend.AddWishlist(ctx, token, item)
}

func (a *Adapter) PushRemove(ctx context.Context, id domain.Identity) error {
	token := a.Token()
	if token == "" {
		return nil
	}
	return a.backend.RemoveWishlist(ctx, token, id)
}

func (a *Adapter) Token() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token
}

func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Hydrated reports whether the latest fetch completed successfully.
func (a *Adapter) Hydrated() bool {
	return a.State() == StateHydrated
}

// Error is the user-facing message of the last failed fetch, or "".
func (a *Adapter) Error() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.errMsg
}
