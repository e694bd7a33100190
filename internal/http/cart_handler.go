package http

import (
	"errors"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/draft"
	"github.com/fjod/go_cart/storefront/internal/promotion"
	"github.com/go-chi/chi/v5"
)

type CartHandler struct {
	sessions Sessions
}

func NewCartHandler(sessions Sessions) *CartHandler {
	return &CartHandler{sessions: sessions}
}

type AddItemRequestDTO struct {
	domain.StoreItemInput
	Quantity int `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartResponseDTO struct {
	Items      []domain.CartLine `json:"items"`
	Count      int               `json:"count"`
	TotalCents int64             `json:"totalCents"`
	Total      string            `json:"total"`
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.respondCart(w, r, http.StatusOK)
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Quantity < 0 || req.Quantity > draft.MaxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	s := h.sessions.Get(getSessionID(r.Context()))
	if _, err := s.AddToCart(r.Context(), req.StoreItemInput, req.Quantity); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_item", err.Error())
		return
	}
	h.respondCart(w, r, http.StatusCreated)
}

// PUT /api/v1/cart/items/{key}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := identityParam(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Quantity < 0 || req.Quantity > draft.MaxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 0 and 99")
		return
	}

	s := h.sessions.Get(getSessionID(r.Context()))
	if err := s.UpdateCartQuantity(r.Context(), id, req.Quantity); err != nil {
		if errors.Is(err, draft.ErrLineNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "item is not in the cart")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	h.respondCart(w, r, http.StatusOK)
}

// DELETE /api/v1/cart/items/{key}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := identityParam(w, r)
	if !ok {
		return
	}

	h.sessions.Get(getSessionID(r.Context())).RemoveFromCart(r.Context(), id)
	h.respondCart(w, r, http.StatusOK)
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.sessions.Get(getSessionID(r.Context())).ClearCart(r.Context())
	h.respondCart(w, r, http.StatusOK)
}

func (h *CartHandler) respondCart(w http.ResponseWriter, r *http.Request, status int) {
	s := h.sessions.Get(getSessionID(r.Context()))
	total := s.CartTotalCents(r.Context())
	respondJSON(w, status, CartResponseDTO{
		Items:      s.CartLines(r.Context()),
		Count:      s.CartCount(r.Context()),
		TotalCents: total,
		Total:      promotion.FormatCents(total),
	})
}

func identityParam(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	id, err := domain.ParseIdentity(chi.URLParam(r, "key"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_identity", "item key must be steam:<id> or slug:<slug>")
		return domain.Identity{}, false
	}
	return id, true
}
