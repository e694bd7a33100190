package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_cart/storefront/internal/search"
)

type Suggester interface {
	Suggest(ctx context.Context, sessionID, query string, limit int) ([]search.Suggestion, error)
}

type SearchHandler struct {
	suggester Suggester
	timeout   time.Duration
}

func NewSearchHandler(suggester Suggester, timeout time.Duration) *SearchHandler {
	return &SearchHandler{
		suggester: suggester,
		timeout:   timeout,
	}
}

// GET /api/v1/search?q=&limit=
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	results, err := h.suggester.Suggest(ctx, getSessionID(r.Context()), r.URL.Query().Get("q"), limit)
	switch {
	case errors.Is(err, search.ErrSuperseded):
		respondError(w, http.StatusConflict, "superseded", "a newer search replaced this one")
		return
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "search timed out")
		return
	case err != nil:
		handleGameStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, results)
}
