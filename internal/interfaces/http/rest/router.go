// Package rest assembles the chi router serving the SafeSpace API.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/swaggo/swag"
	"go.uber.org/zap"

	"github.com/nancymuyeh/SafeSpace/internal/auth"
	"github.com/nancymuyeh/SafeSpace/internal/config"
	apperrors "github.com/nancymuyeh/SafeSpace/internal/errors"
	"github.com/nancymuyeh/SafeSpace/internal/infrastructure/observability"
	"github.com/nancymuyeh/SafeSpace/internal/interfaces/http/rest/handlers"
	"github.com/nancymuyeh/SafeSpace/internal/interfaces/http/rest/middleware"
)

// APIPrefix is the versioned path every API route lives under.
const APIPrefix = "/api/v1"

// RouterDeps are the collaborators of the router. Auth and Metrics are
// optional.
type RouterDeps struct {
	Stories   *handlers.StoryHandler
	Resources *handlers.ResourceHandler
	Health    *handlers.HealthHandler
	Errors    *apperrors.ErrorHandler
	Auth      *auth.Validator
	Metrics   *observability.Collector
	CORS      config.CORS
	Logger    *zap.Logger
}

// Router creates and configures the HTTP router
type Router struct {
	deps RouterDeps
}

// NewRouter creates a new router instance
func NewRouter(deps RouterDeps) *Router {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Router{deps: deps}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Logger(rt.deps.Logger))
	if rt.deps.Metrics != nil {
		router.Use(middleware.Metrics(rt.deps.Metrics))
	}
	// Inside the logger and metrics so recovered panics are logged and counted.
	router.Use(middleware.Recovery(rt.deps.Logger, rt.deps.Errors.Handle))
	router.Use(cors.Handler(corsOptions(rt.deps.CORS)))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rt.deps.Errors.Handle(w, r, apperrors.NewNotFoundError("route"))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		rt.deps.Errors.Handle(w, r, apperrors.NewMethodNotAllowedError(r.Method))
	})

	// Health check
	router.Get("/health", rt.deps.Health.Health)
	router.Get("/ready", rt.deps.Health.Ready)
	if rt.deps.Metrics != nil {
		router.Handle("/metrics", rt.deps.Metrics.Handler())
	}
	router.Get("/api-docs/doc.json", rt.apiDocs)

	router.Route(APIPrefix, func(r chi.Router) {
		if rt.deps.Auth != nil {
			r.Use(auth.OptionalAuth(rt.deps.Auth, rt.deps.Errors.Handle))
		}

		r.Route("/stories", func(r chi.Router) {
			r.Get("/", rt.deps.Stories.ListStories)
			r.Post("/", rt.deps.Stories.CreateStory)
			r.Post("/{id}/reactions", rt.deps.Stories.AddReaction)
			r.Post("/{id}/report", rt.deps.Stories.ReportStory)
		})

		r.Get("/resources", rt.deps.Resources.ListResources)
	})

	return router
}

// apiDocs serves the registered OpenAPI document.
func (rt *Router) apiDocs(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		rt.deps.Errors.Handle(w, r, apperrors.NewNotFoundError("api documentation").WithCause(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

func corsOptions(c config.CORS) cors.Options {
	origins := c.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	methods := c.AllowedMethods
	if len(methods) == 0 {
		methods = []string{"GET", "POST", "OPTIONS"}
	}
	headers := c.AllowedHeaders
	if len(headers) == 0 {
		headers = []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"}
	}

	// Credentials cannot be combined with a wildcard origin.
	credentials := true
	for _, o := range origins {
		if o == "*" {
			credentials = false
			break
		}
	}

	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   methods,
		AllowedHeaders:   headers,
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: credentials,
		MaxAge:           c.MaxAge,
	}
}
