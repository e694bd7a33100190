package gamestore

import (
	"github.com/fjod/go_cart/storefront/internal/domain"
)

// WishlistEntry is the wire shape of /customers/me/wishlist.
type WishlistEntry struct {
	GameID        string `json:"gameId,omitempty"`
	SteamAppID    int64  `json:"steamAppId,omitempty"`
	Slug          string `json:"slug,omitempty"`
	Name          string `json:"name"`
	Image         string `json:"image,omitempty"`
	Price         string `json:"price,omitempty"`
	OriginalPrice string `json:"originalPrice,omitempty"`
}

func (e WishlistEntry) ToDomain() (domain.WishlistItem, error) {
	return domain.StoreItemInput{
		SteamAppID:    e.SteamAppID,
		Slug:          e.Slug,
		ID:            e.GameID,
		Name:          e.Name,
		Image:         e.Image,
		Price:         e.Price,
		OriginalPrice: e.OriginalPrice,
	}.WishlistItem()
}

func EntryFromDomain(item domain.WishlistItem) WishlistEntry {
	return WishlistEntry{
		SteamAppID:    item.Identity.SteamAppID,
		Slug:          item.Identity.Slug,
		Name:          item.Name,
		Image:         item.Image,
		Price:         item.PriceLabel,
		OriginalPrice: item.OriginalPriceLabel,
	}
}

// Game is a catalog entry from /games. Prices are in dollars.
type Game struct {
	ID              string  `json:"id"`
	Slug            string  `json:"slug,omitempty"`
	SteamAppID      int64   `json:"steamAppId,omitempty"`
	Name            string  `json:"name"`
	AvatarURL       string  `json:"avatarUrl,omitempty"`
	IsFree          bool    `json:"isFree"`
	Price           float64 `json:"price"`
	OriginalPrice   float64 `json:"originalPrice,omitempty"`
	DiscountPercent int     `json:"discountPercent,omitempty"`
}

type Report struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	GameID      string `json:"gameId,omitempty"`
}

type errorBody struct {
	Message string `json:"message"`
}
