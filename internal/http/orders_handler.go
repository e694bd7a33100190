package http

import (
	"errors"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/orders"
	"github.com/go-chi/chi/v5"
)

type OrdersHandler struct {
	sessions Sessions
}

func NewOrdersHandler(sessions Sessions) *OrdersHandler {
	return &OrdersHandler{sessions: sessions}
}

type PlaceOrderRequestDTO struct {
	Payment domain.PaymentInfo `json:"payment"`
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	list := h.sessions.Get(getSessionID(r.Context())).Orders(r.Context())
	if list == nil {
		list = []domain.OrderRecord{}
	}
	respondJSON(w, http.StatusOK, list)
}

// GET /api/v1/orders/{id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, ok := h.sessions.Get(getSessionID(r.Context())).Order(r.Context(), chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "order not found")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// POST /api/v1/orders
func (h *OrdersHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.sessions.Get(getSessionID(r.Context())).PlaceOrder(r.Context(), req.Payment)
	switch {
	case errors.Is(err, orders.ErrEmptyCart):
		respondError(w, http.StatusConflict, "empty_cart", err.Error())
		return
	case errors.Is(err, orders.ErrInvalidPayment):
		respondError(w, http.StatusBadRequest, "invalid_payment", err.Error())
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	respondJSON(w, http.StatusCreated, order)
}
