package http

import (
	"errors"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/remote"
)

type WishlistHandler struct {
	sessions Sessions
}

func NewWishlistHandler(sessions Sessions) *WishlistHandler {
	return &WishlistHandler{sessions: sessions}
}

type WishlistResponseDTO struct {
	Items    []domain.WishlistItem `json:"items"`
	Count    int                   `json:"count"`
	Hydrated bool                  `json:"hydrated"`
	Error    string                `json:"error,omitempty"`
}

type ToggleResponseDTO struct {
	Added bool `json:"added"`
	Count int  `json:"count"`
}

// GET /api/v1/wishlist
func (h *WishlistHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	h.respondWishlist(w, r, http.StatusOK)
}

// GET /api/v1/wishlist/{key}
func (h *WishlistHandler) Contains(w http.ResponseWriter, r *http.Request) {
	id, ok := identityParam(w, r)
	if !ok {
		return
	}
	s := h.sessions.Get(getSessionID(r.Context()))
	in := domain.StoreItemInput{SteamAppID: id.SteamAppID, Slug: id.Slug}
	respondJSON(w, http.StatusOK, map[string]bool{"wishlisted": s.IsWishlisted(r.Context(), in)})
}

// POST /api/v1/wishlist/toggle
func (h *WishlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req domain.StoreItemInput
	if !decodeJSON(w, r, &req) {
		return
	}

	s := h.sessions.Get(getSessionID(r.Context()))
	added, err := s.ToggleWishlist(r.Context(), req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_item", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, ToggleResponseDTO{
		Added: added,
		Count: s.WishlistCount(r.Context()),
	})
}

// DELETE /api/v1/wishlist/{key}
func (h *WishlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := identityParam(w, r)
	if !ok {
		return
	}
	h.sessions.Get(getSessionID(r.Context())).RemoveWishlist(r.Context(), id)
	h.respondWishlist(w, r, http.StatusOK)
}

// POST /api/v1/wishlist/refresh
func (h *WishlistHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Get(getSessionID(r.Context()))
	if err := s.RefreshWishlist(); err != nil {
		if errors.Is(err, remote.ErrNoToken) {
			respondError(w, http.StatusUnauthorized, "unauthenticated", "sign in to sync your wishlist")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	respondJSON(w, http.StatusAccepted, s.Snapshot(r.Context()))
}

func (h *WishlistHandler) respondWishlist(w http.ResponseWriter, r *http.Request, status int) {
	s := h.sessions.Get(getSessionID(r.Context()))
	respondJSON(w, status, WishlistResponseDTO{
		Items:    s.Wishlist(r.Context()),
		Count:    s.WishlistCount(r.Context()),
		Hydrated: s.WishlistHydrated(),
		Error:    s.WishlistError(),
	})
}
