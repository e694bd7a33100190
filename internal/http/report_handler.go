package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/gamestore"
)

type ReportSubmitter interface {
	SubmitReport(ctx context.Context, token string, report gamestore.Report) error
}

type ReportHandler struct {
	sessions  Sessions
	submitter ReportSubmitter
	timeout   time.Duration
}

func NewReportHandler(sessions Sessions, submitter ReportSubmitter, timeout time.Duration) *ReportHandler {
	return &ReportHandler{
		sessions:  sessions,
		submitter: submitter,
		timeout:   timeout,
	}
}

// POST /api/v1/reports
func (h *ReportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	token := h.sessions.Get(getSessionID(r.Context())).Token()
	if token == "" {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "sign in to send a report")
		return
	}

	var req gamestore.Report
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if req.Title == "" || req.Description == "" {
		respondError(w, http.StatusBadRequest, "invalid_report", "title and description are required")
		return
	}

	if err := h.submitter.SubmitReport(ctx, token, req); err != nil {
		handleGameStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "submitted"})
}
