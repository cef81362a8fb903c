// Package di wires the application with google/wire. InitializeContainer in
// wire_gen.go is generated from the injector in wire.go.
package di

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/nancymuyeh/SafeSpace/internal/config"
	"github.com/nancymuyeh/SafeSpace/internal/filter"
	"github.com/nancymuyeh/SafeSpace/internal/infrastructure/cache"
	"github.com/nancymuyeh/SafeSpace/internal/infrastructure/events"
	"github.com/nancymuyeh/SafeSpace/internal/infrastructure/observability"
	"github.com/nancymuyeh/SafeSpace/internal/infrastructure/persistence/sqlstore"
	"github.com/nancymuyeh/SafeSpace/internal/interfaces/http/rest"
	"github.com/nancymuyeh/SafeSpace/internal/service"
)

// Version is reported by the health endpoints. Overridden at build time with
// -ldflags "-X github.com/nancymuyeh/SafeSpace/internal/di.Version=...".
var Version = "dev"

// Container holds all application dependencies
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Metrics   *observability.Collector
	Tracing   *observability.TracerProvider
	Store     *sqlstore.Store
	Cache     cache.Cache
	Filter    *filter.Filter
	Publisher events.Publisher
	Stories   *service.StoryService
	Resources *service.ResourceService
	Router    *rest.Router
}

// Handler builds the HTTP handler serving the API.
func (c *Container) Handler() http.Handler {
	return c.Router.Setup()
}
