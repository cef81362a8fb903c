package di

import (
	"context"
	"fmt"
	"time"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/nancymuyeh/SafeSpace/internal/auth"
	"github.com/nancymuyeh/SafeSpace/internal/config"
	"github.com/nancymuyeh/SafeSpace/internal/domain"
	apperrors "github.com/nancymuyeh/SafeSpace/internal/errors"
	"github.com/nancymuyeh/SafeSpace/internal/filter"
	"github.com/nancymuyeh/SafeSpace/internal/infrastructure/cache"
	"github.com/nancymuyeh/SafeSpace/internal/infrastructure/events"
	"github.com/nancymuyeh/SafeSpace/internal/infrastructure/observability"
	"github.com/nancymuyeh/SafeSpace/internal/infrastructure/persistence/sqlstore"
	"github.com/nancymuyeh/SafeSpace/internal/interfaces/http/rest"
	"github.com/nancymuyeh/SafeSpace/internal/interfaces/http/rest/handlers"
	"github.com/nancymuyeh/SafeSpace/internal/interfaces/http/rest/validation"
	"github.com/nancymuyeh/SafeSpace/internal/service"
)

// termsReloadDebounce coalesces the burst of events an editor save produces.
const termsReloadDebounce = 250 * time.Millisecond

// InfrastructureSet provides logging, metrics, tracing, storage, caching and
// event publishing.
var InfrastructureSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideTracing,
	ProvideStore,
	ProvideCache,
	ProvideFilter,
	ProvidePublisher,
)

// ServiceSet provides the use-case services.
var ServiceSet = wire.NewSet(
	ProvideServiceOptions,
	ProvideStoryService,
	ProvideResourceService,
)

// HTTPSet provides the router and its handlers.
var HTTPSet = wire.NewSet(
	ProvideErrorHandler,
	ProvideValidator,
	ProvideAuthValidator,
	ProvideRouter,
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	InfrastructureSet,
	ServiceSet,
	HTTPSet,
	wire.Struct(new(Container), "*"),
)

// ProvideLogger creates the zap logger. The cleanup flushes buffered entries.
func ProvideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	logger, err := observability.NewLogger(observability.LoggingConfig{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return nil, nil, err
	}
	logger = logger.With(zap.String("environment", string(cfg.Environment)))
	return logger, func() { _ = logger.Sync() }, nil
}

// ProvideMetrics creates the Prometheus collector. It is always built so the
// store and services can record; /metrics is only mounted when enabled.
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	return observability.NewCollector(cfg.Observability.MetricsNamespace)
}

// ProvideTracing initialises OpenTelemetry.
func ProvideTracing(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, func(), error) {
	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Observability.EnableTracing,
		ServiceName: cfg.Observability.ServiceName,
		Environment: string(cfg.Environment),
		Endpoint:    cfg.Observability.OTLPEndpoint,
		Insecure:    cfg.Observability.OTLPInsecure,
		SampleRate:  cfg.Observability.SampleRate,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	return tp, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Tracer shutdown failed", zap.Error(err))
		}
	}, nil
}

// ProvideStore opens the relational store and applies migrations.
func ProvideStore(ctx context.Context, cfg *config.Config, metrics *observability.Collector, logger *zap.Logger) (*sqlstore.Store, func(), error) {
	store, err := sqlstore.Open(ctx, sqlstore.Options{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DataSourceName(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		Recorder:        metrics,
		Logger:          logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	return store, func() {
		if err := store.Close(); err != nil {
			logger.Warn("Store close failed", zap.Error(err))
		}
	}, nil
}

// ProvideCache builds the configured cache backend, wrapped in a circuit
// breaker when enabled.
func ProvideCache(cfg *config.Config, logger *zap.Logger) (cache.Cache, func(), error) {
	var (
		backend cache.Cache
		cleanup = func() {}
	)

	switch cfg.Cache.Driver {
	case "none":
		logger.Info("Cache disabled")
		return cache.NopCache{}, cleanup, nil
	case "memory":
		mem := cache.NewMemoryCache(cfg.Cache.CleanupInterval)
		backend, cleanup = mem, func() { _ = mem.Close() }
	case "redis":
		rc := cache.NewRedisCache(cache.RedisOptions{
			Addr:         cfg.Cache.Redis.Addr,
			Password:     cfg.Cache.Redis.Password,
			DB:           cfg.Cache.Redis.DB,
			KeyPrefix:    cfg.Cache.Redis.KeyPrefix,
			DialTimeout:  cfg.Cache.Redis.Timeout,
			ReadTimeout:  cfg.Cache.Redis.Timeout,
			WriteTimeout: cfg.Cache.Redis.Timeout,
			PoolSize:     cfg.Cache.Redis.PoolSize,
		})
		backend, cleanup = rc, func() {
			if err := rc.Close(); err != nil {
				logger.Warn("Redis close failed", zap.Error(err))
			}
		}
	default:
		return nil, nil, fmt.Errorf("unsupported cache driver %q", cfg.Cache.Driver)
	}

	logger.Info("Cache ready", zap.String("driver", cfg.Cache.Driver), zap.Duration("ttl", cfg.Cache.TTL))
	if !cfg.Cache.Breaker.Enabled {
		return backend, cleanup, nil
	}

	bc := cache.DefaultBreakerConfig("cache-" + cfg.Cache.Driver)
	if cfg.Cache.Breaker.Timeout > 0 {
		bc.Timeout = cfg.Cache.Breaker.Timeout
	}
	if cfg.Cache.Breaker.FailureThreshold > 0 {
		bc.FailureThreshold = cfg.Cache.Breaker.FailureThreshold
	}
	if cfg.Cache.Breaker.MinRequests > 0 {
		bc.MinRequests = cfg.Cache.Breaker.MinRequests
	}
	return cache.NewBreakerCache(backend, bc, logger), cleanup, nil
}

// ProvideFilter builds the content filter. When a terms file is configured
// it replaces the inline terms and, if watching is on, is hot-reloaded.
func ProvideFilter(cfg *config.Config, logger *zap.Logger) (*filter.Filter, func(), error) {
	terms := cfg.Filter.Terms
	path := cfg.Filter.TermsFile
	if path == "" {
		return filter.New(terms), func() {}, nil
	}

	loaded, err := config.LoadTerms(path)
	if err != nil {
		logger.Warn("Using configured sensitive terms", zap.String("path", path), zap.Error(err))
		return filter.New(terms), func() {}, nil
	}
	f := filter.New(loaded)
	if !cfg.Filter.Watch {
		return f, func() {}, nil
	}

	watcher, err := config.NewTermsWatcher(path, termsReloadDebounce, f.SetTerms, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to watch terms file: %w", err)
	}
	return f, func() { _ = watcher.Close() }, nil
}

// ProvidePublisher returns an EventBridge publisher when events are enabled.
func ProvidePublisher(ctx context.Context, cfg *config.Config, logger *zap.Logger) (events.Publisher, error) {
	if !cfg.Events.Enabled {
		return events.NopPublisher{}, nil
	}
	client, err := events.NewEventBridgeClient(ctx, cfg.Events.Region)
	if err != nil {
		return nil, err
	}
	logger.Info("Publishing domain events", zap.String("event_bus", cfg.Events.EventBusName))
	return events.NewEventBridgePublisher(client, cfg.Events.EventBusName, cfg.Events.Source), nil
}

// ProvideServiceOptions collects the cross-cutting service options.
func ProvideServiceOptions(logger *zap.Logger, metrics *observability.Collector, tp *observability.TracerProvider) []service.Option {
	return []service.Option{
		service.WithLogger(logger),
		service.WithMetrics(metrics),
		service.WithTracer(tp.Tracer()),
	}
}

func collectionConfig(cfg *config.Config) service.CollectionConfig {
	return service.CollectionConfig{TTL: cfg.Cache.TTL, SingleFlight: cfg.Cache.SingleFlight}
}

// ProvideStoryService creates the story service.
func ProvideStoryService(
	cfg *config.Config,
	store *sqlstore.Store,
	c cache.Cache,
	f *filter.Filter,
	publisher events.Publisher,
	opts []service.Option,
) *service.StoryService {
	return service.NewStoryService(service.StoryDeps{
		Stories:   store,
		Reactions: store,
		Reports:   store,
		Cache:     c,
		Filter:    f,
		Publisher: publisher,
	}, collectionConfig(cfg), opts...)
}

// ProvideResourceService creates the resource service.
func ProvideResourceService(cfg *config.Config, store *sqlstore.Store, c cache.Cache, opts []service.Option) *service.ResourceService {
	return service.NewResourceService(store, c, collectionConfig(cfg), opts...)
}

// ProvideErrorHandler creates the HTTP error writer. Internal details are
// only exposed in development.
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *apperrors.ErrorHandler {
	return apperrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideValidator creates the request validator for the configured moods.
func ProvideValidator(cfg *config.Config) *validation.Validator {
	moods := make([]domain.Mood, 0, len(cfg.Stories.Moods))
	for _, m := range cfg.Stories.Moods {
		moods = append(moods, domain.Mood(m))
	}
	return validation.New(moods, cfg.Server.MaxRequestSize)
}

// ProvideAuthValidator returns nil when no token key is configured.
func ProvideAuthValidator(cfg *config.Config) (*auth.Validator, error) {
	if !cfg.Auth.Enabled() {
		return nil, nil
	}
	return auth.NewValidator(auth.Config{
		Secret:    cfg.Auth.JWTSecret,
		PublicKey: cfg.Auth.JWTPublicKey,
		Issuer:    cfg.Auth.Issuer,
	})
}

// ProvideRouter assembles handlers and the router.
func ProvideRouter(
	cfg *config.Config,
	logger *zap.Logger,
	metrics *observability.Collector,
	store *sqlstore.Store,
	c cache.Cache,
	stories *service.StoryService,
	resources *service.ResourceService,
	errs *apperrors.ErrorHandler,
	v *validation.Validator,
	authValidator *auth.Validator,
) *rest.Router {
	var cachePinger handlers.Pinger
	if cfg.Cache.Driver != "none" {
		cachePinger = c
	}
	deps := rest.RouterDeps{
		Stories:   handlers.NewStoryHandler(stories, v, errs, logger),
		Resources: handlers.NewResourceHandler(resources, errs, logger),
		Health:    handlers.NewHealthHandler(store, cachePinger, Version, logger),
		Errors:    errs,
		Auth:      authValidator,
		CORS:      cfg.CORS,
		Logger:    logger,
	}
	if cfg.Observability.EnableMetrics {
		deps.Metrics = metrics
	}
	return rest.NewRouter(deps)
}
