package handler

import (
	"net/http"

	"parley/internal/catalog"
	"parley/internal/httputil"
)

// ModelsHandler serves the model catalog
type ModelsHandler struct {
	registry *catalog.Registry
}

// NewModelsHandler creates a new models handler
func NewModelsHandler(registry *catalog.Registry) *ModelsHandler {
	return &ModelsHandler{registry: registry}
}

// List returns every model the catalog knows about, for the profile editor's
// model picker.
// GET /api/models
func (h *ModelsHandler) List(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, h.registry.ListModels())
}
