// Package config loads the typed configuration for the SafeSpace API.
//
// Values are layered from lowest to highest priority:
//  1. Defaults in code
//  2. config/base.yaml
//  3. config/<environment>.yaml
//  4. config/local.yaml (development only)
//  5. Environment variables
//
// The final result is validated with go-playground/validator before use.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the root configuration.
type Config struct {
	Environment   Environment   `yaml:"environment" validate:"required,oneof=development staging production"`
	Server        Server        `yaml:"server"`
	Database      Database      `yaml:"database"`
	Cache         Cache         `yaml:"cache"`
	Filter        Filter        `yaml:"filter"`
	Stories       Stories       `yaml:"stories"`
	Auth          Auth          `yaml:"auth"`
	Logging       Logging       `yaml:"logging"`
	Observability Observability `yaml:"observability"`
	Events        Events        `yaml:"events"`
	CORS          CORS          `yaml:"cors"`

	// LoadedFrom lists the sources applied, in order.
	LoadedFrom []string `yaml:"-"`
}

// Server configures the HTTP listener.
type Server struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
	MaxRequestSize  int64         `yaml:"max_request_size" validate:"gt=0"`
}

// Addr returns the listen address.
func (s Server) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Database configures the relational store.
type Database struct {
	Driver          string        `yaml:"driver" validate:"oneof=sqlite postgres"`
	DSN             string        `yaml:"dsn"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port" validate:"omitempty,min=1,max=65535"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Name            string        `yaml:"name"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `yaml:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" validate:"gte=0"`
}

// DataSourceName returns the DSN handed to the store. For postgres without
// an explicit DSN it is assembled from the discrete connection fields.
func (d Database) DataSourceName() string {
	if d.DSN != "" || d.Driver != "postgres" {
		return d.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}
	if d.User != "" {
		u.User = url.UserPassword(d.User, d.Password)
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{d.SSLMode}}.Encode()
	}
	return u.String()
}

// Cache configures the cache accessor used by the cache-aside reads.
type Cache struct {
	Driver          string        `yaml:"driver" validate:"oneof=memory redis none"`
	TTL             time.Duration `yaml:"ttl" validate:"gt=0"`
	SingleFlight    bool          `yaml:"single_flight"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" validate:"gt=0"`
	Redis           Redis         `yaml:"redis"`
	Breaker         Breaker       `yaml:"breaker"`
}

// Redis configures the Redis cache backend.
type Redis struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db" validate:"gte=0"`
	PoolSize  int           `yaml:"pool_size" validate:"gte=0"`
	KeyPrefix string        `yaml:"key_prefix"`
	Timeout   time.Duration `yaml:"timeout" validate:"gte=0"`
}

// Breaker configures the circuit breaker placed in front of the cache backend.
type Breaker struct {
	Enabled          bool          `yaml:"enabled"`
	Timeout          time.Duration `yaml:"timeout" validate:"gte=0"`
	FailureThreshold float64       `yaml:"failure_threshold" validate:"gte=0,lte=1"`
	MinRequests      uint32        `yaml:"min_requests"`
}

// Filter configures content cleaning.
type Filter struct {
	Terms     []string `yaml:"terms" validate:"dive,required"`
	TermsFile string   `yaml:"terms_file"`
	Watch     bool     `yaml:"watch"`
}

// Stories holds story rules.
type Stories struct {
	Moods []string `yaml:"moods" validate:"min=1,dive,required"`
}

// Auth configures the optional bearer-token identity. It is active when a
// secret or a public key is present.
type Auth struct {
	JWTSecret    string `yaml:"jwt_secret"`
	JWTPublicKey string `yaml:"jwt_public_key"`
	Issuer       string `yaml:"issuer"`
}

// Enabled reports whether token validation is configured.
func (a Auth) Enabled() bool {
	return a.JWTSecret != "" || a.JWTPublicKey != ""
}

// Logging configures the zap logger.
type Logging struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

// Observability configures metrics and tracing.
type Observability struct {
	EnableMetrics    bool    `yaml:"enable_metrics"`
	MetricsNamespace string  `yaml:"metrics_namespace" validate:"required"`
	EnableTracing    bool    `yaml:"enable_tracing"`
	ServiceName      string  `yaml:"service_name" validate:"required"`
	OTLPEndpoint     string  `yaml:"otlp_endpoint"`
	OTLPInsecure     bool    `yaml:"otlp_insecure"`
	SampleRate       float64 `yaml:"sample_rate" validate:"gte=0,lte=1"`
}

// Events configures the outbound domain event publisher.
type Events struct {
	Enabled      bool   `yaml:"enabled"`
	EventBusName string `yaml:"event_bus_name"`
	Source       string `yaml:"source"`
	Region       string `yaml:"region"`
}

// CORS configures cross-origin access for the browser frontend.
type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	MaxAge         int      `yaml:"max_age" validate:"gte=0"`
}

// IsDevelopment reports whether the configuration targets local development.
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// Validate checks field rules and cross-field requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return err
	}

	if c.Cache.Driver == "redis" && c.Cache.Redis.Addr == "" {
		return errors.New("invalid configuration: cache.redis.addr is required for the redis driver")
	}
	if c.Database.Driver == "sqlite" && c.Database.DSN == "" {
		return errors.New("invalid configuration: database.dsn is required for the sqlite driver")
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" && c.Database.Name == "" {
		return errors.New("invalid configuration: database.name or database.dsn is required for postgres")
	}
	if c.Events.Enabled && c.Events.EventBusName == "" {
		return errors.New("invalid configuration: events.event_bus_name is required when events are enabled")
	}
	if c.Environment == Production && c.Logging.Development {
		return errors.New("invalid configuration: development logging is not allowed in production")
	}
	return nil
}
