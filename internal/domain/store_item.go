package domain

import (
	"strconv"
	"strings"
	"time"
)

// StoreItemInput is what a product page, search result or card hands over
// when the user adds something to the cart or wishlist.
type StoreItemInput struct {
	SteamAppID    int64  `json:"steamAppId,omitempty"`
	Slug          string `json:"slug,omitempty"`
	ID            string `json:"id,omitempty"`
	Name          string `json:"name"`
	Image         string `json:"image,omitempty"`
	Price         string `json:"price,omitempty"`
	OriginalPrice string `json:"originalPrice,omitempty"`
}

// Identity prefers the steam app id, then the slug, then the catalog id.
func (in StoreItemInput) Identity() (Identity, error) {
	if in.SteamAppID > 0 {
		return SteamIdentity(in.SteamAppID), nil
	}
	if slug := strings.TrimSpace(in.Slug); slug != "" {
		return SlugIdentity(slug), nil
	}
	if id := strings.TrimSpace(in.ID); id != "" {
		// catalog ids of steam-sourced entries are the app id itself
		if n, err := strconv.ParseInt(id, 10, 64); err == nil && n > 0 {
			return SteamIdentity(n), nil
		}
		return SlugIdentity(id), nil
	}
	return Identity{}, ErrInvalidIdentity
}

func (in StoreItemInput) CartLine(quantity int) (CartLine, error) {
	id, err := in.Identity()
	if err != nil {
		return CartLine{}, err
	}
	if quantity < 1 {
		quantity = 1
	}
	return CartLine{
		Identity:           id,
		Name:               strings.TrimSpace(in.Name),
		Image:              strings.TrimSpace(in.Image),
		UnitPriceLabel:     strings.TrimSpace(in.Price),
		OriginalPriceLabel: strings.TrimSpace(in.OriginalPrice),
		Quantity:           quantity,
	}, nil
}

func (in StoreItemInput) WishlistItem() (WishlistItem, error) {
	id, err := in.Identity()
	if err != nil {
		return WishlistItem{}, err
	}
	return WishlistItem{
		Identity:           id,
		Name:               strings.TrimSpace(in.Name),
		Image:              strings.TrimSpace(in.Image),
		PriceLabel:         strings.TrimSpace(in.Price),
		OriginalPriceLabel: strings.TrimSpace(in.OriginalPrice),
	}, nil
}

type CartLine struct {
	Identity           Identity  `json:"identity"`
	Name               string    `json:"name"`
	Image              string    `json:"image,omitempty"`
	UnitPriceLabel     string    `json:"unitPriceLabel,omitempty"`
	OriginalPriceLabel string    `json:"originalPriceLabel,omitempty"`
	Quantity           int       `json:"quantity"`
	AddedAt            time.Time `json:"addedAt"`
}

type WishlistItem struct {
	Identity           Identity  `json:"identity"`
	Name               string    `json:"name"`
	Image              string    `json:"image,omitempty"`
	PriceLabel         string    `json:"priceLabel,omitempty"`
	OriginalPriceLabel string    `json:"originalPriceLabel,omitempty"`
	AddedAt            time.Time `json:"addedAt"`
}
