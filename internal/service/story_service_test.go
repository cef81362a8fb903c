package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nancymuyeh/SafeSpace/internal/domain"
	apperrors "github.com/nancymuyeh/SafeSpace/internal/errors"
	"github.com/nancymuyeh/SafeSpace/internal/filter"
	"github.com/nancymuyeh/SafeSpace/internal/infrastructure/cache"
	"github.com/nancymuyeh/SafeSpace/internal/infrastructure/events"
)

type storyFixture struct {
	svc       *StoryService
	store     *memoryStore
	cache     *cache.MemoryCache
	metrics   *countingMetrics
	publisher *recordingPublisher
}

func newStoryFixture(t *testing.T) *storyFixture {
	t.Helper()
	store := &memoryStore{}
	mem := cache.NewMemoryCache(time.Minute)
	t.Cleanup(func() { _ = mem.Close() })

	metrics := newCountingMetrics()
	pub := &recordingPublisher{}

	tick := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	svc := NewStoryService(StoryDeps{
		Stories:   store,
		Reactions: store,
		Reports:   store,
		Cache:     mem,
		Filter:    filter.New(filter.DefaultTerms),
		Publisher: pub,
	}, CollectionConfig{}, WithMetrics(metrics), WithClock(clock))

	return &storyFixture{svc: svc, store: store, cache: mem, metrics: metrics, publisher: pub}
}

func TestStoryService_CreateStoryCleansContent(t *testing.T) {
	f := newStoryFixture(t)

	story, err := f.svc.CreateStory(context.Background(), CreateStoryInput{
		Content: "I felt suicide thoughts today",
		Mood:    domain.MoodAnxious,
	})
	require.NoError(t, err)

	assert.Equal(t, "I felt ******* thoughts today", story.Content)
	assert.Equal(t, "I felt ******* thoughts today", f.store.stories[0].Content)
	_, err = uuid.Parse(story.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, f.metrics.events["story"])

	require.Len(t, f.publisher.events, 1)
	created := f.publisher.events[0].(events.StoryCreated)
	assert.True(t, created.Cleaned)
	assert.Equal(t, story.ID, created.StoryID)
}

func TestStoryService_WriteThenReadSeesTheWrite(t *testing.T) {
	ctx := context.Background()
	f := newStoryFixture(t)

	before, err := f.svc.ListStories(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, before)

	_, found, _ := f.cache.Get(ctx, StoriesKey)
	require.True(t, found, "empty collection is cached")

	first, err := f.svc.CreateStory(ctx, CreateStoryInput{Content: "first", Mood: domain.MoodHopeful})
	require.NoError(t, err)
	second, err := f.svc.CreateStory(ctx, CreateStoryInput{Content: "second", Mood: domain.MoodTired})
	require.NoError(t, err)

	after, err := f.svc.ListStories(ctx, "")
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, second.ID, after[0].ID, "newest first")
	assert.Equal(t, first.ID, after[1].ID)

	// Served from the cache until the next write.
	scans := f.store.scans.Load()
	_, err = f.svc.ListStories(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, scans, f.store.scans.Load())
}

func TestStoryService_ListStoriesByMood(t *testing.T) {
	ctx := context.Background()
	f := newStoryFixture(t)

	for _, mood := range []domain.Mood{domain.MoodHopeful, domain.MoodLonely, domain.MoodHopeful} {
		_, err := f.svc.CreateStory(ctx, CreateStoryInput{Content: "story", Mood: mood})
		require.NoError(t, err)
	}

	hopeful, err := f.svc.ListStories(ctx, domain.MoodHopeful)
	require.NoError(t, err)
	assert.Len(t, hopeful, 2)

	grateful, err := f.svc.ListStories(ctx, domain.MoodGrateful)
	require.NoError(t, err)
	assert.NotNil(t, grateful)
	assert.Empty(t, grateful)

	all, err := f.svc.ListStories(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStoryService_CreateStorySurvivesInvalidationAndPublishFailures(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}
	c := new(mockCache)
	c.On("Delete", mock.Anything, StoriesKey).Return(errors.New("redis down"))

	metrics := newCountingMetrics()
	svc := NewStoryService(StoryDeps{
		Stories:   store,
		Reactions: store,
		Reports:   store,
		Cache:     c,
		Publisher: &recordingPublisher{err: errors.New("throttled")},
	}, CollectionConfig{}, WithMetrics(metrics))

	story, err := svc.CreateStory(ctx, CreateStoryInput{Content: "still saved", Mood: domain.MoodHealing})
	require.NoError(t, err)
	assert.NotEmpty(t, story.ID)
	assert.Len(t, store.stories, 1)
	assert.Equal(t, 1, metrics.errors["delete"])
	c.AssertExpectations(t)
}

func TestStoryService_CreateStoryInvalidatesAfterCallerCancels(t *testing.T) {
	store := &memoryStore{}
	c := new(mockCache)
	c.On("Delete", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil }), StoriesKey).Return(nil)

	svc := NewStoryService(StoryDeps{Stories: store, Reactions: store, Reports: store, Cache: c}, CollectionConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.CreateStory(ctx, CreateStoryInput{Content: "saved before the client left", Mood: domain.MoodLonely})
	require.NoError(t, err)
	assert.Len(t, store.stories, 1)
	c.AssertExpectations(t)
}

func TestStoryService_CreateStoryStoreFailure(t *testing.T) {
	repo := new(mockStoryRepo)
	repo.On("CreateStory", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	c := new(mockCache)

	svc := NewStoryService(StoryDeps{Stories: repo, Reactions: repo, Reports: repo, Cache: c}, CollectionConfig{})

	_, err := svc.CreateStory(context.Background(), CreateStoryInput{Content: "x", Mood: domain.MoodTired})
	require.Error(t, err)
	assert.False(t, apperrors.IsValidation(err))
	c.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestStoryService_AddReaction(t *testing.T) {
	ctx := context.Background()
	f := newStoryFixture(t)

	story, err := f.svc.CreateStory(ctx, CreateStoryInput{Content: "hello", Mood: domain.MoodGrateful})
	require.NoError(t, err)

	reaction, err := f.svc.AddReaction(ctx, story.ID, "hug")
	require.NoError(t, err)
	assert.Equal(t, story.ID, reaction.StoryID)
	assert.Equal(t, "hug", reaction.Type)
	assert.Equal(t, 1, f.metrics.events["reaction"])
}

func TestStoryService_ReactionOnMissingStory(t *testing.T) {
	repo := new(mockStoryRepo)
	repo.On("StoryExists", mock.Anything, "missing").Return(false, nil)

	svc := NewStoryService(StoryDeps{Stories: repo, Reactions: repo, Reports: repo}, CollectionConfig{})

	_, err := svc.AddReaction(context.Background(), "missing", "hug")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	repo.AssertNotCalled(t, "CreateReaction", mock.Anything, mock.Anything)

	_, err = svc.ReportStory(context.Background(), "missing", "spam")
	assert.True(t, apperrors.IsNotFound(err))
	repo.AssertNotCalled(t, "CreateReport", mock.Anything, mock.Anything)
}

func TestStoryService_ForeignKeyViolationIsNotFound(t *testing.T) {
	repo := new(mockStoryRepo)
	repo.On("StoryExists", mock.Anything, "s-1").Return(true, nil)
	repo.On("CreateReaction", mock.Anything, mock.Anything).Return(domain.ErrStoryNotFound)
	repo.On("CreateReport", mock.Anything, mock.Anything).Return(domain.ErrStoryNotFound)

	svc := NewStoryService(StoryDeps{Stories: repo, Reactions: repo, Reports: repo}, CollectionConfig{})

	_, err := svc.AddReaction(context.Background(), "s-1", "hug")
	assert.True(t, apperrors.IsNotFound(err))
	assert.ErrorIs(t, err, domain.ErrStoryNotFound)

	_, err = svc.ReportStory(context.Background(), "s-1", "spam")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestStoryService_ExistenceCheckFailure(t *testing.T) {
	repo := new(mockStoryRepo)
	repo.On("StoryExists", mock.Anything, "s-1").Return(false, errors.New("timeout"))

	svc := NewStoryService(StoryDeps{Stories: repo, Reactions: repo, Reports: repo}, CollectionConfig{})

	_, err := svc.AddReaction(context.Background(), "s-1", "hug")
	require.Error(t, err)
	assert.False(t, apperrors.IsNotFound(err))
}

func TestStoryService_ReportStory(t *testing.T) {
	ctx := context.Background()
	f := newStoryFixture(t)

	story, err := f.svc.CreateStory(ctx, CreateStoryInput{Content: "hello", Mood: domain.MoodLonely})
	require.NoError(t, err)

	report, err := f.svc.ReportStory(ctx, story.ID, "harassment")
	require.NoError(t, err)
	assert.Equal(t, "harassment", report.Reason)
	assert.Len(t, f.store.reports, 1)
	assert.Equal(t, 1, f.metrics.events["report"])

	require.Len(t, f.publisher.events, 2)
	reported := f.publisher.events[1].(events.StoryReported)
	assert.Equal(t, story.ID, reported.StoryID)
	assert.Equal(t, report.ID, reported.ReportID)
}

func TestStoryService_ReactionsDoNotInvalidateStories(t *testing.T) {
	ctx := context.Background()
	f := newStoryFixture(t)

	story, err := f.svc.CreateStory(ctx, CreateStoryInput{Content: "hello", Mood: domain.MoodHopeful})
	require.NoError(t, err)
	_, err = f.svc.ListStories(ctx, "")
	require.NoError(t, err)

	_, err = f.svc.AddReaction(ctx, story.ID, "heart")
	require.NoError(t, err)

	_, found, _ := f.cache.Get(ctx, StoriesKey)
	assert.True(t, found)
}
