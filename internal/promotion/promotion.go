// Package promotion applies store-wide promotions to catalog prices.
// All arithmetic is done in cents.
package promotion

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

var (
	ErrUnknownDiscountType = errors.New("unknown discount type")
	ErrInvalidCondition    = errors.New("promotion condition is not a positive number")
)

type Price struct {
	FinalCents      int64  `json:"finalCents"`
	OriginalCents   int64  `json:"originalCents"`
	DiscountPercent int    `json:"discountPercent"`
	Label           string `json:"label,omitempty"`
	PromotionID     string `json:"promotionId,omitempty"`
}

func (p Price) FinalLabel() string {
	return FormatCents(p.FinalCents)
}

func (p Price) OriginalLabel() string {
	return FormatCents(p.OriginalCents)
}

func (p Price) Discounted() bool {
	return p.FinalCents < p.OriginalCents
}

// Apply computes the price of baseCents after promo.
func Apply(baseCents int64, promo domain.Promotion) (Price, error) {
	value, err := conditionValue(promo.ApplicationCondition)
	if err != nil {
		return Price{}, err
	}

	var final int64
	switch promo.DiscountType {
	case domain.DiscountPercentage:
		pct := math.Min(value, 100)
		final = int64(math.Round(float64(baseCents) * (100 - pct) / 100))
	case domain.DiscountFixedAmount:
		final = baseCents - int64(math.Round(value*100))
	default:
		return Price{}, fmt.Errorf("%w: %q", ErrUnknownDiscountType, promo.DiscountType)
	}
	if final < 0 {
		final = 0
	}

	return newPrice(baseCents, final, promo.ID), nil
}

// Best applies every promotion active at now and keeps the cheapest result.
// Promotions that cannot be applied are skipped.
func Best(baseCents int64, promos []domain.Promotion, now time.Time) Price {
	best := newPrice(baseCents, baseCents, "")
	for _, promo := range promos {
		if !promo.ActiveAt(now) {
			continue
		}
		p, err := Apply(baseCents, promo)
		if err != nil {
			continue
		}
		if p.FinalCents < best.FinalCents {
			best = p
		}
	}
	return best
}

// Stack applies promotions on top of an upstream discount. initialCents is the
// undiscounted price and finalCents the upstream sale price; the returned
// discount percent is relative to initialCents.
func Stack(initialCents, finalCents int64, promos []domain.Promotion, now time.Time) Price {
	if initialCents < finalCents {
		initialCents = finalCents
	}
	p := Best(finalCents, promos, now)
	return newPrice(initialCents, p.FinalCents, p.PromotionID)
}

func newPrice(original, final int64, promotionID string) Price {
	p := Price{
		FinalCents:    final,
		OriginalCents: original,
		PromotionID:   promotionID,
	}
	if original > 0 && final < original {
		p.DiscountPercent = int(math.Round(float64(original-final) * 100 / float64(original)))
		p.Label = fmt.Sprintf("-%d%%", p.DiscountPercent)
	}
	return p
}

func conditionValue(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCondition, raw)
	}
	return v, nil
}
