package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nancymuyeh/SafeSpace/internal/domain"
	apperrors "github.com/nancymuyeh/SafeSpace/internal/errors"
	"github.com/nancymuyeh/SafeSpace/internal/filter"
	"github.com/nancymuyeh/SafeSpace/internal/infrastructure/cache"
	"github.com/nancymuyeh/SafeSpace/internal/infrastructure/events"
	"github.com/nancymuyeh/SafeSpace/internal/repository"
)

// CreateStoryInput is an already validated story submission.
type CreateStoryInput struct {
	Content string
	Mood    domain.Mood
	UserID  *string
}

// StoryDeps are the collaborators of StoryService.
type StoryDeps struct {
	Stories   repository.StoryRepository
	Reactions repository.ReactionRepository
	Reports   repository.ReportRepository
	Cache     cache.Cache
	Filter    *filter.Filter
	Publisher events.Publisher
}

// StoryService serves the stories collection and its reactions and reports.
type StoryService struct {
	stories    repository.StoryRepository
	reactions  repository.ReactionRepository
	reports    repository.ReportRepository
	collection *Collection[domain.Story]
	filter     *filter.Filter
	publisher  events.Publisher
	metrics    Metrics
	logger     *zap.Logger
	opts       options
}

// NewStoryService wires a StoryService. cfg.Key defaults to "stories".
func NewStoryService(deps StoryDeps, cfg CollectionConfig, opts ...Option) *StoryService {
	o := newOptions(opts)
	if cfg.Key == "" {
		cfg.Key = StoriesKey
	}
	if deps.Filter == nil {
		deps.Filter = filter.New(filter.DefaultTerms)
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}
	return &StoryService{
		stories:    deps.Stories,
		reactions:  deps.Reactions,
		reports:    deps.Reports,
		collection: NewCollection[domain.Story](cfg, deps.Cache, deps.Stories.ListStories, opts...),
		filter:     deps.Filter,
		publisher:  deps.Publisher,
		metrics:    o.metrics,
		logger:     o.logger,
		opts:       o,
	}
}

// ListStories returns all stories newest first, optionally restricted to one
// mood. The cached collection is always the unfiltered one.
func (s *StoryService) ListStories(ctx context.Context, mood domain.Mood) ([]domain.Story, error) {
	stories, err := s.collection.Read(ctx)
	if err != nil {
		return nil, err
	}
	if mood == "" {
		return stories, nil
	}

	filtered := make([]domain.Story, 0, len(stories))
	for _, story := range stories {
		if story.Mood == mood {
			filtered = append(filtered, story)
		}
	}
	return filtered, nil
}

// CreateStory cleans the content, stores the story and invalidates the
// stories collection.
func (s *StoryService) CreateStory(ctx context.Context, in CreateStoryInput) (*domain.Story, error) {
	cleaned := s.filter.Clean(in.Content)

	story := &domain.Story{
		ID:        uuid.NewString(),
		Content:   cleaned,
		Mood:      in.Mood,
		UserID:    in.UserID,
		CreatedAt: s.opts.now().UTC(),
	}
	if err := s.stories.CreateStory(ctx, story); err != nil {
		return nil, fmt.Errorf("create story: %w", err)
	}
	// The row is committed; the invalidation must run even if the caller
	// has gone away.
	s.collection.Invalidate(context.WithoutCancel(ctx))
	s.metrics.StoryCreated()

	s.publish(ctx, events.StoryCreated{
		StoryID:    story.ID,
		Mood:       string(story.Mood),
		Cleaned:    cleaned != in.Content,
		OccurredAt: story.CreatedAt,
	})
	return story, nil
}

// AddReaction records a reaction on an existing story.
func (s *StoryService) AddReaction(ctx context.Context, storyID, reactionType string) (*domain.Reaction, error) {
	if err := s.requireStory(ctx, storyID); err != nil {
		return nil, err
	}

	reaction := &domain.Reaction{
		ID:        uuid.NewString(),
		StoryID:   storyID,
		Type:      reactionType,
		CreatedAt: s.opts.now().UTC(),
	}
	if err := s.reactions.CreateReaction(ctx, reaction); err != nil {
		if errors.Is(err, domain.ErrStoryNotFound) {
			return nil, apperrors.NewNotFoundError("story").WithCause(err)
		}
		return nil, fmt.Errorf("create reaction: %w", err)
	}
	s.metrics.ReactionCreated()
	return reaction, nil
}

// ReportStory files a moderation report against an existing story.
func (s *StoryService) ReportStory(ctx context.Context, storyID, reason string) (*domain.Report, error) {
	if err := s.requireStory(ctx, storyID); err != nil {
		return nil, err
	}

	report := &domain.Report{
		ID:        uuid.NewString(),
		StoryID:   storyID,
		Reason:    reason,
		CreatedAt: s.opts.now().UTC(),
	}
	if err := s.reports.CreateReport(ctx, report); err != nil {
		if errors.Is(err, domain.ErrStoryNotFound) {
			return nil, apperrors.NewNotFoundError("story").WithCause(err)
		}
		return nil, fmt.Errorf("create report: %w", err)
	}
	s.metrics.ReportCreated()

	s.publish(ctx, events.StoryReported{
		StoryID:    storyID,
		ReportID:   report.ID,
		Reason:     reason,
		OccurredAt: report.CreatedAt,
	})
	return report, nil
}

// requireStory fails fast with a not-found error for unknown stories. The
// store's foreign key remains the final check.
func (s *StoryService) requireStory(ctx context.Context, storyID string) error {
	exists, err := s.stories.StoryExists(ctx, storyID)
	if err != nil {
		return fmt.Errorf("check story: %w", err)
	}
	if !exists {
		return apperrors.NewNotFoundError("story")
	}
	return nil
}

// publish sends an event; failures never fail the write that caused it.
func (s *StoryService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event",
			zap.String("event_type", event.EventType()),
			zap.String("aggregate_id", event.AggregateID()),
			zap.Error(err),
		)
	}
}
