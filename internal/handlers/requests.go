package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/vidvault/backend/internal/logging"
	"github.com/vidvault/backend/internal/models"
)

// defaultRequestHistoryLimit bounds how much of the audit log one call returns.
const defaultRequestHistoryLimit = 50

// RequestsHandler exposes the caller's download request history.
type RequestsHandler struct {
	History RequestHistory
}

// List handles GET /api/v1/requests, newest first.
func (h RequestsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultRequestHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	requests, err := h.History.ListForUser(ctx, callerID(ctx), limit)
	if err != nil {
		logging.FromContext(ctx).Error("list download requests", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(ctx, w, http.StatusOK, requestHistoryResponse{Requests: requestViews(requests)})
}

type requestHistoryResponse struct {
	Requests []requestView `json:"requests"`
}

type requestView struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	FormatID   string `json:"formatId,omitempty"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	CreatedAt  string `json:"createdAt"`
	StartedAt  string `json:"startedAt,omitempty"`
	FinishedAt string `json:"finishedAt,omitempty"`
}

func requestViews(requests []models.DownloadRequest) []requestView {
	views := make([]requestView, 0, len(requests))
	for _, req := range requests {
		view := requestView{
			ID:        req.ID,
			URL:       req.URL,
			FormatID:  req.FormatID,
			Status:    req.Status,
			Error:     req.Error,
			CreatedAt: req.CreatedAt.UTC().Format(time.RFC3339),
		}
		if req.StartedAt != nil {
			view.StartedAt = req.StartedAt.UTC().Format(time.RFC3339)
		}
		if req.FinishedAt != nil {
			view.FinishedAt = req.FinishedAt.UTC().Format(time.RFC3339)
		}
		views = append(views, view)
	}
	return views
}
