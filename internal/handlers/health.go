package handlers

import "net/http"

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, map[string]string{"status": "ok"}, http.StatusOK)
}
