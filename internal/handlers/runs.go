package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/openbench/openbench/pkg/api"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// HandleCreateRun handles POST /api/v1/runs. Validation failures surface
// synchronously; everything after admission becomes a terminal run state
// instead of an HTTP error.
func (h *Handlers) HandleCreateRun(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	var create api.RunCreate
	if err := json.Unmarshal(body, &create); err != nil {
		h.errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.StructCtx(r.Context(), &create); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, validationError := range validationErrors {
				h.logger.Info("Validation error", "field", validationError.Field(), "tag", validationError.Tag(), "value", validationError.Value())
			}
		}
		h.errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	run, err := h.engine.Submit(r.Context(), create.Config(), owner(r))
	if err != nil {
		h.storageError(w, err)
		return
	}
	h.successResponse(w, run, http.StatusCreated)
}

// HandleListRuns handles GET /api/v1/runs.
func (h *Handlers) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.errorResponse(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(parsed, maxListLimit)
	}

	runs, err := h.engine.List(r.Context(), owner(r), limit)
	if err != nil {
		h.storageError(w, err)
		return
	}
	if runs == nil {
		runs = []api.RunSummary{}
	}
	h.successResponse(w, runs, http.StatusOK)
}

// HandleGetRun handles GET /api/v1/runs/{run_id}.
func (h *Handlers) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.engine.Get(r.Context(), r.PathValue("run_id"), owner(r))
	if err != nil {
		h.storageError(w, err)
		return
	}
	h.successResponse(w, run, http.StatusOK)
}

// HandleCancelRun handles DELETE /api/v1/runs/{run_id}. Canceling a run with
// no live process reports canceled=false; that is a normal outcome, not an
// error.
func (h *Handlers) HandleCancelRun(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("run_id")
	// scoping check first so one tenant cannot cancel another's run
	if _, err := h.engine.Get(r.Context(), runID, owner(r)); err != nil {
		h.storageError(w, err)
		return
	}

	canceled := h.engine.Cancel(r.Context(), runID)
	h.successResponse(w, map[string]any{
		"run_id":   runID,
		"canceled": canceled,
	}, http.StatusOK)
}

// HandleRunLogs handles GET /api/v1/runs/{run_id}/logs?file=stderr.log&lines=50.
func (h *Handlers) HandleRunLogs(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("run_id")
	if _, err := h.engine.Get(r.Context(), runID, owner(r)); err != nil {
		h.storageError(w, err)
		return
	}

	lines := 0
	if raw := r.URL.Query().Get("lines"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.errorResponse(w, "lines must be a positive integer", http.StatusBadRequest)
			return
		}
		lines = parsed
	}

	tail, err := h.engine.Artifacts().LogTail(runID, r.URL.Query().Get("file"), lines)
	if err != nil {
		h.errorResponse(w, err.Error(), http.StatusNotFound)
		return
	}
	h.successResponse(w, map[string]string{"tail": tail}, http.StatusOK)
}

// HandleRunCommand handles GET /api/v1/runs/{run_id}/command.
func (h *Handlers) HandleRunCommand(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("run_id")
	if _, err := h.engine.Get(r.Context(), runID, owner(r)); err != nil {
		h.storageError(w, err)
		return
	}

	command, err := h.engine.Artifacts().ReadCommand(runID)
	if err != nil {
		h.errorResponse(w, err.Error(), http.StatusNotFound)
		return
	}
	h.successResponse(w, map[string]string{"command": command}, http.StatusOK)
}

// HandleRunArtifacts handles GET /api/v1/runs/{run_id}/artifacts.
func (h *Handlers) HandleRunArtifacts(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("run_id")
	if _, err := h.engine.Get(r.Context(), runID, owner(r)); err != nil {
		h.storageError(w, err)
		return
	}

	paths, err := h.engine.Artifacts().ListArtifacts(runID)
	if err != nil {
		h.errorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if paths == nil {
		paths = []string{}
	}
	h.successResponse(w, map[string][]string{"artifacts": paths}, http.StatusOK)
}

// HandleRunSummary handles GET /api/v1/runs/{run_id}/summary.
func (h *Handlers) HandleRunSummary(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("run_id")
	if _, err := h.engine.Get(r.Context(), runID, owner(r)); err != nil {
		h.storageError(w, err)
		return
	}

	doc, err := h.engine.Artifacts().ReadSummary(runID)
	if err != nil {
		h.errorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if doc == nil {
		h.errorResponse(w, "no summary available for this run", http.StatusNotFound)
		return
	}
	h.successResponse(w, doc, http.StatusOK)
}
