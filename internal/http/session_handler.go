package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/store"
)

// Sessions resolves the state container of a browser profile.
type Sessions interface {
	Get(sessionID string) *store.Store
}

type SessionHandler struct {
	sessions Sessions
	timeout  time.Duration
}

func NewSessionHandler(sessions Sessions, timeout time.Duration) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		timeout:  timeout,
	}
}

type LoginRequestDTO struct {
	Token string `json:"token"`
}

// GET /api/v1/store
func (h *SessionHandler) GetStore(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Get(getSessionID(r.Context()))
	respondJSON(w, http.StatusOK, s.Snapshot(r.Context()))
}

// POST /api/v1/session/login
//
// The token comes from the body or a bearer Authorization header. With
// ?wait=true the response is held until the wishlist fetch settles.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" && r.ContentLength != 0 {
		var req LoginRequestDTO
		if !decodeJSON(w, r, &req) {
			return
		}
		token = strings.TrimSpace(req.Token)
	}
	if token == "" {
		respondError(w, http.StatusBadRequest, "missing_token", "customer token is required")
		return
	}

	s := h.sessions.Get(getSessionID(r.Context()))
	s.Login(r.Context(), token)

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()
		if err := s.WaitWishlist(ctx); err != nil {
			respondError(w, http.StatusGatewayTimeout, "timeout", "wishlist is still loading")
			return
		}
	}

	respondJSON(w, http.StatusOK, s.Snapshot(r.Context()))
}

// POST /api/v1/session/logout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Get(getSessionID(r.Context()))
	s.Logout(r.Context())
	respondJSON(w, http.StatusOK, s.Snapshot(r.Context()))
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
