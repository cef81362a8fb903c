package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nancymuyeh/SafeSpace/internal/domain"
	apperrors "github.com/nancymuyeh/SafeSpace/internal/errors"
	"github.com/nancymuyeh/SafeSpace/internal/infrastructure/cache"
	"github.com/nancymuyeh/SafeSpace/internal/repository"
)

// CreateResourceInput describes a curated support resource.
type CreateResourceInput struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	URL         string `yaml:"url"`
	Type        string `yaml:"type"`
}

// ResourceService serves the resources collection.
type ResourceService struct {
	resources  repository.ResourceRepository
	collection *Collection[domain.Resource]
	logger     *zap.Logger
	opts       options
}

// NewResourceService wires a ResourceService. cfg.Key defaults to "resources".
func NewResourceService(resources repository.ResourceRepository, c cache.Cache, cfg CollectionConfig, opts ...Option) *ResourceService {
	o := newOptions(opts)
	if cfg.Key == "" {
		cfg.Key = ResourcesKey
	}
	return &ResourceService{
		resources:  resources,
		collection: NewCollection[domain.Resource](cfg, c, resources.ListResources, opts...),
		logger:     o.logger,
		opts:       o,
	}
}

// ListResources returns every resource ordered by title.
func (s *ResourceService) ListResources(ctx context.Context) ([]domain.Resource, error) {
	return s.collection.Read(ctx)
}

// CreateResource stores a resource and invalidates the resources collection.
// It is not exposed over HTTP.
func (s *ResourceService) CreateResource(ctx context.Context, in CreateResourceInput) (*domain.Resource, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperrors.NewValidationError("Invalid resource",
			apperrors.FieldError{Field: "title", Message: "title is required"})
	}

	resource := &domain.Resource{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		URL:         strings.TrimSpace(in.URL),
		Type:        strings.TrimSpace(in.Type),
		CreatedAt:   s.opts.now().UTC(),
	}
	if err := s.resources.CreateResource(ctx, resource); err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}
	// The row is committed; the invalidation must run even if the caller
	// has gone away.
	s.collection.Invalidate(context.WithoutCancel(ctx))

	s.logger.Info("Resource created", zap.String("resource_id", resource.ID), zap.String("title", resource.Title))
	return resource, nil
}
