// Package search serves catalog suggestions for the search box: debounced,
// superseded by newer keystrokes, and priced with store-wide promotions.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/gamestore"
	"github.com/fjod/go_cart/storefront/internal/promotion"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultLimit = 8
	MaxLimit     = 25
	// MinQueryLength is the shortest query worth a backend round trip.
	MinQueryLength = 2
)

// ErrSuperseded is returned to a caller whose query was replaced by a newer
// one from the same session before it completed.
var ErrSuperseded = errors.New("search superseded by a newer query")

type Catalog interface {
	SearchGames(ctx context.Context, query string, limit int) ([]gamestore.Game, error)
	ActivePromotions(ctx context.Context) ([]domain.Promotion, error)
}

type Suggestion struct {
	SteamAppID      int64   `json:"steamAppId,omitempty"`
	Slug            string  `json:"slug,omitempty"`
	Name            string  `json:"name"`
	AvatarURL       string  `json:"avatarUrl,omitempty"`
	IsFree          bool    `json:"isFree"`
	Price           float64 `json:"price"`
	OriginalPrice   float64 `json:"originalPrice"`
	DiscountPercent int     `json:"discountPercent"`
	PriceLabel      string  `json:"priceLabel"`
	PromotionID     string  `json:"promotionId,omitempty"`
}

type Options struct {
	Debounce         time.Duration
	PromotionsMaxAge time.Duration
	Now              func() time.Time
}

type Suggester struct {
	catalog  Catalog
	debounce time.Duration
	maxAge   time.Duration
	now      func() time.Time

	group singleflight.Group

	mu      sync.Mutex
	pending map[string]*call

	promoMu  sync.Mutex
	promos   []domain.Promotion
	promosAt time.Time
}

type call struct {
	cancel context.CancelFunc
}

func NewSuggester(catalog Catalog, opts Options) *Suggester {
	if opts.PromotionsMaxAge <= 0 {
		opts.PromotionsMaxAge = 5 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Suggester{
		catalog:  catalog,
		debounce: opts.Debounce,
		maxAge:   opts.PromotionsMaxAge,
		now:      opts.Now,
		pending:  make(map[string]*call),
	}
}

// Suggest waits out the debounce window, then queries the catalog. A newer
// Suggest for the same session cancels this one, which then returns
// ErrSuperseded. Identical queries in flight share one backend call.
func (s *Suggester) Suggest(ctx context.Context, sessionID, query string, limit int) ([]Suggestion, error) {
	query = strings.TrimSpace(query)
	limit = clampLimit(limit)

	ctx, c := s.begin(ctx, sessionID)
	defer s.end(sessionID, c)

	if len([]rune(query)) < MinQueryLength {
		return []Suggestion{}, nil
	}

	if s.debounce > 0 {
		timer := time.NewTimer(s.debounce)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, s.cancelled(ctx)
		}
	}

	key := strings.ToLower(query) + "|" + strconv.Itoa(limit)
	ch := s.group.DoChan(key, func() (any, error) {
		// shared by every waiter, so not bound to the first caller's cancellation
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		return s.fetch(fetchCtx, query, limit)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if ctx.Err() != nil {
			return nil, s.cancelled(ctx)
		}
		return res.Val.([]Suggestion), nil
	case <-ctx.Done():
		return nil, s.cancelled(ctx)
	}
}

func (s *Suggester) begin(ctx context.Context, sessionID string) (context.Context, *call) {
	ctx, cancel := context.WithCancelCause(ctx)
	c := &call{cancel: func() { cancel(ErrSuperseded) }}

	s.mu.Lock()
	if prev, ok := s.pending[sessionID]; ok {
		prev.cancel()
	}
	s.pending[sessionID] = c
	s.mu.Unlock()
	return ctx, c
}

func (s *Suggester) end(sessionID string, c *call) {
	s.mu.Lock()
	if s.pending[sessionID] == c {
		delete(s.pending, sessionID)
	}
	s.mu.Unlock()
	c.cancel()
}

func (s *Suggester) cancelled(ctx context.Context) error {
	if cause := context.Cause(ctx); errors.Is(cause, ErrSuperseded) {
		return ErrSuperseded
	}
	return ctx.Err()
}

func (s *Suggester) fetch(ctx context.Context, query string, limit int) ([]Suggestion, error) {
	games, err := s.catalog.SearchGames(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search games: %w", err)
	}
	promos := s.promotions(ctx)
	now := s.now()

	out := make([]Suggestion, 0, len(games))
	for _, g := range games {
		out = append(out, suggestionFor(g, promos, now))
	}
	return out, nil
}

// promotions returns the cached active promotions, refreshing them when
// older than maxAge. A failed refresh keeps serving the previous list.
func (s *Suggester) promotions(ctx context.Context) []domain.Promotion {
	s.promoMu.Lock()
	defer s.promoMu.Unlock()

	if !s.promosAt.IsZero() && s.now().Sub(s.promosAt) < s.maxAge {
		return s.promos
	}
	promos, err := s.catalog.ActivePromotions(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to load promotions, pricing without them", "error", err)
		return s.promos
	}
	s.promos = promos
	s.promosAt = s.now()
	return promos
}

func suggestionFor(g gamestore.Game, promos []domain.Promotion, now time.Time) Suggestion {
	sg := Suggestion{
		SteamAppID: g.SteamAppID,
		Slug:       g.Slug,
		Name:       g.Name,
		AvatarURL:  g.AvatarURL,
		IsFree:     g.IsFree,
	}
	if g.IsFree || g.Price <= 0 {
		sg.IsFree = true
		sg.PriceLabel = "Free"
		return sg
	}

	final := toCents(g.Price)
	initial := toCents(g.OriginalPrice)
	if initial < final {
		initial = final
	}
	price := promotion.Stack(initial, final, promos, now)

	sg.Price = float64(price.FinalCents) / 100
	sg.OriginalPrice = float64(price.OriginalCents) / 100
	sg.DiscountPercent = price.DiscountPercent
	sg.PriceLabel = price.FinalLabel()
	sg.PromotionID = price.PromotionID
	return sg
}

func toCents(dollars float64) int64 {
	return int64(math.Round(dollars * 100))
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
