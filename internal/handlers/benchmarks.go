package handlers

import "net/http"

// HandleListBenchmarks handles GET /api/v1/benchmarks.
func (h *Handlers) HandleListBenchmarks(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, h.catalog.List(), http.StatusOK)
}

// HandleGetBenchmark handles GET /api/v1/benchmarks/{name}.
func (h *Handlers) HandleGetBenchmark(w http.ResponseWriter, r *http.Request) {
	benchmark := h.catalog.Get(r.PathValue("name"))
	if benchmark == nil {
		h.errorResponse(w, "benchmark not found", http.StatusNotFound)
		return
	}
	h.successResponse(w, benchmark, http.StatusOK)
}
