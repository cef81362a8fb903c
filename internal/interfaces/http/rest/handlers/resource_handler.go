package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/nancymuyeh/SafeSpace/internal/domain"
)

// ResourceService is the resource use-case surface the handler depends on.
type ResourceService interface {
	ListResources(ctx context.Context) ([]domain.Resource, error)
}

// ResourceHandler serves the curated support resources.
type ResourceHandler struct {
	resources ResourceService
	errors    ErrorHandler
	logger    *zap.Logger
}

// NewResourceHandler creates a new resource handler
func NewResourceHandler(resources ResourceService, errs ErrorHandler, logger *zap.Logger) *ResourceHandler {
	return &ResourceHandler{resources: resources, errors: errs, logger: logger}
}

// ListResources handles GET /resources
// @Summary List support resources
// @Tags resources
// @Produce json
// @Success 200 {array} domain.Resource
// @Failure 500 {object} apperrors.ErrorResponse "Internal server error"
// @Router /resources [get]
func (h *ResourceHandler) ListResources(w http.ResponseWriter, r *http.Request) {
	resources, err := h.resources.ListResources(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, resources)
}
