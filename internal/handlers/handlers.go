package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/openbench/openbench/internal/catalog"
	"github.com/openbench/openbench/internal/runner"
	"github.com/openbench/openbench/internal/serviceerrors"
)

type Handlers struct {
	engine   *runner.Engine
	catalog  *catalog.Catalog
	validate *validator.Validate
	logger   *slog.Logger
}

func New(engine *runner.Engine, cat *catalog.Catalog, validate *validator.Validate, logger *slog.Logger) *Handlers {
	return &Handlers{
		engine:   engine,
		catalog:  cat,
		validate: validate,
		logger:   logger,
	}
}

// owner extracts the caller identity used for run scoping. An empty value
// means unscoped access; records without an owner stay visible to everyone.
func owner(r *http.Request) string {
	return r.Header.Get("Remote-User")
}

func (h *Handlers) setApplicationJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
}

func (h *Handlers) errorResponse(w http.ResponseWriter, errorMessage string, code int) {
	h.setApplicationJSON(w)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":%q,"code":%d}`+"\n", errorMessage, code)
	h.logger.Info("Request failed", "error", errorMessage, "code", code)
}

func (h *Handlers) successResponse(w http.ResponseWriter, response any, code int) {
	jsonBytes, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		h.errorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.setApplicationJSON(w)
	w.WriteHeader(code)
	w.Write(jsonBytes)
}

// storageError maps store errors onto HTTP codes; a StorageError carries its
// own code (404 for missing runs).
func (h *Handlers) storageError(w http.ResponseWriter, err error) {
	if se, ok := err.(*serviceerrors.StorageError); ok {
		h.errorResponse(w, se.Message, se.Code)
		return
	}
	h.errorResponse(w, err.Error(), http.StatusInternalServerError)
}
