package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

// HealthHandler responds with service liveness information.
type HealthHandler struct {
	started time.Time
}

// NewHealthHandler records the process start time for uptime reporting.
func NewHealthHandler() HealthHandler {
	return HealthHandler{started: time.Now()}
}

// Handle implements GET /healthz.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload := map[string]string{
		"status": "ok",
	}
	if !h.started.IsZero() {
		payload["uptime"] = time.Since(h.started).Round(time.Second).String()
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
