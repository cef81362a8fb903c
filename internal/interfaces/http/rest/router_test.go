package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	_ "github.com/nancymuyeh/SafeSpace/docs"
	"github.com/nancymuyeh/SafeSpace/internal/auth"
	"github.com/nancymuyeh/SafeSpace/internal/config"
	"github.com/nancymuyeh/SafeSpace/internal/domain"
	apperrors "github.com/nancymuyeh/SafeSpace/internal/errors"
	"github.com/nancymuyeh/SafeSpace/internal/filter"
	"github.com/nancymuyeh/SafeSpace/internal/infrastructure/cache"
	"github.com/nancymuyeh/SafeSpace/internal/infrastructure/observability"
	"github.com/nancymuyeh/SafeSpace/internal/infrastructure/persistence/sqlstore"
	"github.com/nancymuyeh/SafeSpace/internal/interfaces/http/rest/handlers"
	"github.com/nancymuyeh/SafeSpace/internal/interfaces/http/rest/validation"
	"github.com/nancymuyeh/SafeSpace/internal/service"
)

const jwtSecret = "router-test-secret"

type testServer struct {
	handler http.Handler
	cache   *cache.MemoryCache
	store   *sqlstore.Store
}

func newTestServer(t *testing.T, authValidator *auth.Validator) *testServer {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	metrics := observability.NewCollector("safespace")
	store, err := sqlstore.Open(ctx, sqlstore.Options{
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "safespace.db"),
		Recorder: metrics,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	mem := cache.NewMemoryCache(time.Minute)
	t.Cleanup(func() { _ = mem.Close() })

	opts := []service.Option{service.WithLogger(logger), service.WithMetrics(metrics)}
	stories := service.NewStoryService(service.StoryDeps{
		Stories:   store,
		Reactions: store,
		Reports:   store,
		Cache:     mem,
		Filter:    filter.New(filter.DefaultTerms),
	}, service.CollectionConfig{}, opts...)
	resources := service.NewResourceService(store, mem, service.CollectionConfig{}, opts...)

	errs := apperrors.NewErrorHandler(logger, false)
	v := validation.New(domain.DefaultMoods, 0)

	router := NewRouter(RouterDeps{
		Stories:   handlers.NewStoryHandler(stories, v, errs, logger),
		Resources: handlers.NewResourceHandler(resources, errs, logger),
		Health:    handlers.NewHealthHandler(store, mem, "test", logger),
		Errors:    errs,
		Auth:      authValidator,
		Metrics:   metrics,
		CORS: config.CORS{
			AllowedOrigins: []string{"http://localhost:3000"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			MaxAge:         300,
		},
		Logger: logger,
	})

	return &testServer{handler: router.Setup(), cache: mem, store: store}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func TestRouter_StoryLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)
	ctx := context.Background()

	w := srv.do(t, http.MethodGet, "/api/v1/stories", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	cached, found, err := srv.cache.Get(ctx, service.StoriesKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "[]", string(cached))

	w = srv.do(t, http.MethodPost, "/api/v1/stories", `{"content":"I felt suicide thoughts today","mood":"anxious"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var story domain.Story
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &story))
	assert.Equal(t, "I felt ******* thoughts today", story.Content)

	_, found, _ = srv.cache.Get(ctx, service.StoriesKey)
	assert.False(t, found, "write invalidates the stories key")

	w = srv.do(t, http.MethodGet, "/api/v1/stories", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stories []domain.Story
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stories))
	require.Len(t, stories, 1)
	assert.Equal(t, story.ID, stories[0].ID)
	assert.Equal(t, story.Content, stories[0].Content)

	w = srv.do(t, http.MethodGet, "/api/v1/stories?mood=hopeful", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = srv.do(t, http.MethodPost, "/api/v1/stories/"+story.ID+"/reactions", `{"type":"hug"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var reaction domain.Reaction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reaction))
	assert.Equal(t, story.ID, reaction.StoryID)

	w = srv.do(t, http.MethodPost, "/api/v1/stories/"+story.ID+"/report", `{"reason":"spam"}`)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestRouter_ReactionToMissingStory(t *testing.T) {
	srv := newTestServer(t, nil)

	w := srv.do(t, http.MethodPost, "/api/v1/stories/"+uuid.NewString()+"/reactions", `{"type":"hug"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "NOT_FOUND", resp.Type)
	assert.NotEmpty(t, resp.RequestID)
}

func TestRouter_ValidationError(t *testing.T) {
	srv := newTestServer(t, nil)

	w := srv.do(t, http.MethodPost, "/api/v1/stories", `{"content":"","mood":"hopeful"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION", resp.Type)
	require.NotNil(t, resp.Details)
	assert.Equal(t, "content", resp.Details.Fields[0].Field)
}

func TestRouter_Resources(t *testing.T) {
	srv := newTestServer(t, nil)

	w := srv.do(t, http.MethodGet, "/api/v1/resources", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)

	w := srv.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = srv.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"store"`)

	srv.do(t, http.MethodGet, "/api/v1/stories", "")
	w = srv.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `safespace_http_requests_total{method="GET",route="/api/v1/stories",status="200"}`)
	assert.Contains(t, w.Body.String(), `safespace_cache_misses_total{collection="stories"}`)

	w = srv.do(t, http.MethodGet, "/api-docs/doc.json", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"/stories/{id}/reactions"`)
}

func TestRouter_UnknownRoutes(t *testing.T) {
	srv := newTestServer(t, nil)

	w := srv.do(t, http.MethodGet, "/api/v1/nothing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"NOT_FOUND"`)

	w = srv.do(t, http.MethodDelete, "/api/v1/resources", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Body.String(), `"METHOD_NOT_ALLOWED"`)
}

func TestRouter_CORSPreflight(t *testing.T) {
	srv := newTestServer(t, nil)

	w := srv.do(t, http.MethodOptions, "/api/v1/stories", "",
		"Origin", "http://localhost:3000",
		"Access-Control-Request-Method", "POST",
	)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = srv.do(t, http.MethodOptions, "/api/v1/stories", "",
		"Origin", "http://evil.example",
		"Access-Control-Request-Method", "POST",
	)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_OptionalAuth(t *testing.T) {
	v, err := auth.NewValidator(auth.Config{Secret: jwtSecret})
	require.NoError(t, err)
	srv := newTestServer(t, v)

	userID := uuid.NewString()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}).SignedString([]byte(jwtSecret))
	require.NoError(t, err)

	w := srv.do(t, http.MethodPost, "/api/v1/stories", `{"content":"hello","mood":"grateful"}`,
		"Authorization", "Bearer "+token)
	require.Equal(t, http.StatusCreated, w.Code)
	var story domain.Story
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &story))
	require.NotNil(t, story.UserID)
	assert.Equal(t, userID, *story.UserID)

	w = srv.do(t, http.MethodPost, "/api/v1/stories", `{"content":"hello","mood":"grateful"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = srv.do(t, http.MethodGet, "/api/v1/stories", "", "Authorization", "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"UNAUTHORIZED"`)
}

// panickingStories fails every call with a panic.
type panickingStories struct{}

func (panickingStories) ListStories(context.Context, domain.Mood) ([]domain.Story, error) {
	panic("list exploded")
}

func (panickingStories) CreateStory(context.Context, service.CreateStoryInput) (*domain.Story, error) {
	panic("create exploded")
}

func (panickingStories) AddReaction(context.Context, string, string) (*domain.Reaction, error) {
	panic("reaction exploded")
}

func (panickingStories) ReportStory(context.Context, string, string) (*domain.Report, error) {
	panic("report exploded")
}

func TestRouter_PanicIsLoggedAndCounted(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	metrics := observability.NewCollector("safespace")
	errs := apperrors.NewErrorHandler(logger, false)

	router := NewRouter(RouterDeps{
		Stories: handlers.NewStoryHandler(panickingStories{}, validation.New(domain.DefaultMoods, 0), errs, logger),
		Errors:  errs,
		Metrics: metrics,
		Logger:  logger,
	})
	h := router.Setup()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/stories", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"type":"INTERNAL"`)

	assert.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
	access := logs.FilterMessage("HTTP Request").All()
	require.Len(t, access, 1)
	assert.Equal(t, int64(http.StatusInternalServerError), access[0].ContextMap()["status"])

	w = httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), `safespace_http_requests_total{method="GET",route="/api/v1/stories",status="500"} 1`)
}
