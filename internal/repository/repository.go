// Package repository declares the store accessors the services depend on.
// Implementations live under internal/infrastructure/persistence.
package repository

import (
	"context"

	"github.com/nancymuyeh/SafeSpace/internal/domain"
)

// StoryRepository reads and writes stories.
type StoryRepository interface {
	// ListStories returns every story, newest first.
	ListStories(ctx context.Context) ([]domain.Story, error)
	CreateStory(ctx context.Context, story *domain.Story) error
	StoryExists(ctx context.Context, id string) (bool, error)
}

// ReactionRepository writes reactions. CreateReaction returns
// domain.ErrStoryNotFound when the referenced story is missing.
type ReactionRepository interface {
	CreateReaction(ctx context.Context, reaction *domain.Reaction) error
}

// ReportRepository writes reports. CreateReport returns
// domain.ErrStoryNotFound when the referenced story is missing.
type ReportRepository interface {
	CreateReport(ctx context.Context, report *domain.Report) error
}

// ResourceRepository reads and writes support resources.
type ResourceRepository interface {
	ListResources(ctx context.Context) ([]domain.Resource, error)
	CreateResource(ctx context.Context, resource *domain.Resource) error
}
