package service

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/nancymuyeh/SafeSpace/internal/domain"
	"github.com/nancymuyeh/SafeSpace/internal/infrastructure/events"
)

// mockCache is a testify mock of cache.Cache.
type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	data, _ := args.Get(0).([]byte)
	return data, args.Bool(1), args.Error(2)
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockCache) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// mockStoryRepo is a testify mock of the story, reaction and report repositories.
type mockStoryRepo struct {
	mock.Mock
}

func (m *mockStoryRepo) ListStories(ctx context.Context) ([]domain.Story, error) {
	args := m.Called(ctx)
	stories, _ := args.Get(0).([]domain.Story)
	return stories, args.Error(1)
}

func (m *mockStoryRepo) CreateStory(ctx context.Context, story *domain.Story) error {
	return m.Called(ctx, story).Error(0)
}

func (m *mockStoryRepo) StoryExists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockStoryRepo) CreateReaction(ctx context.Context, reaction *domain.Reaction) error {
	return m.Called(ctx, reaction).Error(0)
}

func (m *mockStoryRepo) CreateReport(ctx context.Context, report *domain.Report) error {
	return m.Called(ctx, report).Error(0)
}

// memoryStore is an in-memory store that counts collection scans.
type memoryStore struct {
	mu        sync.Mutex
	stories   []domain.Story
	reactions []domain.Reaction
	reports   []domain.Report
	resources []domain.Resource
	scans     atomic.Int32
	delay     time.Duration
}

func (s *memoryStore) ListStories(context.Context) ([]domain.Story, error) {
	s.scans.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Story, len(s.stories))
	copy(out, s.stories)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memoryStore) CreateStory(_ context.Context, story *domain.Story) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stories = append(s.stories, *story)
	return nil
}

func (s *memoryStore) StoryExists(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, story := range s.stories {
		if story.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryStore) CreateReaction(_ context.Context, r *domain.Reaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reactions = append(s.reactions, *r)
	return nil
}

func (s *memoryStore) CreateReport(_ context.Context, r *domain.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, *r)
	return nil
}

func (s *memoryStore) ListResources(context.Context) ([]domain.Resource, error) {
	s.scans.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Resource, len(s.resources))
	copy(out, s.resources)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (s *memoryStore) CreateResource(_ context.Context, r *domain.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources = append(s.resources, *r)
	return nil
}

// countingMetrics records every metric call.
type countingMetrics struct {
	mu     sync.Mutex
	hits   int
	misses int
	errors map[string]int
	events map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{errors: map[string]int{}, events: map[string]int{}}
}

func (m *countingMetrics) CacheHit(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hits++
}

func (m *countingMetrics) CacheMiss(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.misses++
}

func (m *countingMetrics) CacheError(_, operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[operation]++
}

func (m *countingMetrics) StoryCreated()    { m.inc("story") }
func (m *countingMetrics) ReactionCreated() { m.inc("reaction") }
func (m *countingMetrics) ReportCreated()   { m.inc("report") }

func (m *countingMetrics) inc(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[name]++
}

// recordingPublisher captures published events and can be made to fail.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evs ...events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evs...)
	return p.err
}
