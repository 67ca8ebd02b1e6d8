package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/unilost/unilost/internal/store"
)

// HealthHandler reports whether the store is reachable.
type HealthHandler struct {
	Store store.Store
}

// Check handles GET /healthz.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.Store.Ping(ctx); err != nil {
		slog.Warn("health check failed", "error", err)
		jsonResponse(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": "Database unavailable"})
		return
	}
	jsonResponse(w, http.StatusOK, okResponse{OK: true})
}
