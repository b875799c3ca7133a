package handlers

import (
	"net/http"

	"github.com/vidvault/backend/internal/logging"
)

// AdminHandler exposes privileged maintenance operations.
type AdminHandler struct {
	Reaper ExpiredReaper
	// Token guards the endpoint; when empty the endpoint is disabled.
	Token      string
	BatchLimit int
}

// Reap handles POST /api/v1/admin/reap, removing assets past their retention
// window.
func (h AdminHandler) Reap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Token == "" || r.Header.Get("X-Admin-Token") != h.Token {
		respondError(ctx, w, http.StatusForbidden, "admin access required")
		return
	}

	removed, err := h.Reaper.Reap(ctx, h.BatchLimit)
	if err != nil {
		logger.Error("reap expired assets", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "cleanup failed")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]int{"cleaned": removed})
}
