package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/gamestore"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
			return false
		}
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// handleGameStoreError converts a backend failure to an HTTP status, carrying
// the user-facing message.
func handleGameStoreError(w http.ResponseWriter, r *http.Request, err error) {
	slog.WarnContext(r.Context(), "game store request failed", "error", err, "request_id", getRequestID(r.Context()))

	var apiErr *gamestore.Error
	if !errors.As(err, &apiErr) {
		respondError(w, http.StatusInternalServerError, "internal_error", gamestore.UserMessage(err))
		return
	}

	var httpStatus int
	var code string

	switch apiErr.Kind {
	case gamestore.KindStatus:
		switch {
		case apiErr.Status == http.StatusUnauthorized:
			httpStatus, code = http.StatusUnauthorized, "unauthenticated"
		case apiErr.Status == http.StatusForbidden:
			httpStatus, code = http.StatusForbidden, "permission_denied"
		case apiErr.Status == http.StatusNotFound:
			httpStatus, code = http.StatusNotFound, "not_found"
		case apiErr.Status >= 400 && apiErr.Status < 500:
			httpStatus, code = http.StatusBadRequest, "invalid_argument"
		default:
			httpStatus, code = http.StatusBadGateway, "upstream_error"
		}
	case gamestore.KindUnavailable:
		httpStatus, code = http.StatusServiceUnavailable, "service_unavailable"
	case gamestore.KindDecode:
		httpStatus, code = http.StatusBadGateway, "upstream_error"
	default:
		httpStatus, code = http.StatusBadGateway, "upstream_unreachable"
	}

	respondError(w, httpStatus, code, apiErr.UserMessage())
}
