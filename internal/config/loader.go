package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader layers configuration from files and the environment.
type Loader struct {
	basePath    string
	environment Environment
	sources     []string
}

// NewLoader creates a loader reading files from basePath.
func NewLoader(basePath string, env Environment) *Loader {
	if basePath == "" {
		basePath = "config"
	}
	if env == "" {
		env = Development
	}
	return &Loader{basePath: basePath, environment: env}
}

// Load builds the configuration from defaults, YAML files and environment
// variables, then validates it.
func (l *Loader) Load() (*Config, error) {
	cfg := l.defaultConfig()
	l.sources = append(l.sources[:0], "defaults")

	if err := l.loadFile("base", cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load base config: %w", err)
	}

	envFile := strings.ToLower(string(l.environment))
	if err := l.loadFile(envFile, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s config: %w", envFile, err)
	}

	if l.environment == Development {
		if err := l.loadFile("local", cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load local config: %w", err)
		}
	}

	if err := l.loadEnvironmentVariables(cfg); err != nil {
		return nil, err
	}
	l.sources = append(l.sources, "environment")

	// The environment chosen by the loader wins over any file value.
	cfg.Environment = l.environment
	cfg.LoadedFrom = append([]string(nil), l.sources...)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes <name>.yaml or <name>.yml over cfg.
func (l *Loader) loadFile(name string, cfg *Config) error {
	for _, ext := range []string{"yaml", "yml"} {
		path := filepath.Join(l.basePath, name+"."+ext)

		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		l.sources = append(l.sources, path)
		return nil
	}
	return fs.ErrNotExist
}

// loadEnvironmentVariables overlays environment variables on cfg.
func (l *Loader) loadEnvironmentVariables(cfg *Config) error {
	var errs []error
	setInt := func(key string, dst *int) {
		if val := os.Getenv(key); val != "" {
			n, err := strconv.Atoi(val)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	setBool := func(key string, dst *bool) {
		if val := os.Getenv(key); val != "" {
			b, err := strconv.ParseBool(val)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	setString := func(key string, dst *string) {
		if val := os.Getenv(key); val != "" {
			*dst = val
		}
	}
	setList := func(key string, dst *[]string) {
		if val := os.Getenv(key); val != "" {
			*dst = splitList(val)
		}
	}

	// Server
	setString("SERVER_HOST", &cfg.Server.Host)
	setInt("SERVER_PORT", &cfg.Server.Port)

	// Database
	setString("DB_DRIVER", &cfg.Database.Driver)
	setString("DB_DSN", &cfg.Database.DSN)
	setString("DB_HOST", &cfg.Database.Host)
	setInt("DB_PORT", &cfg.Database.Port)
	setString("DB_USER", &cfg.Database.User)
	setString("DB_PASSWORD", &cfg.Database.Password)
	setString("DB_NAME", &cfg.Database.Name)
	setString("DB_SSLMODE", &cfg.Database.SSLMode)

	// Cache
	setString("CACHE_DRIVER", &cfg.Cache.Driver)
	if val := os.Getenv("CACHE_TTL"); val != "" {
		ttl, err := parseTTL(val)
		if err != nil {
			errs = append(errs, fmt.Errorf("CACHE_TTL: %w", err))
		} else {
			cfg.Cache.TTL = ttl
		}
	}
	setBool("CACHE_SINGLE_FLIGHT", &cfg.Cache.SingleFlight)
	setString("REDIS_ADDR", &cfg.Cache.Redis.Addr)
	setString("REDIS_PASSWORD", &cfg.Cache.Redis.Password)
	setInt("REDIS_DB", &cfg.Cache.Redis.DB)

	// Filter
	setString("FILTER_TERMS_FILE", &cfg.Filter.TermsFile)

	// Logging
	setString("LOG_LEVEL", &cfg.Logging.Level)

	// Observability
	setBool("ENABLE_METRICS", &cfg.Observability.EnableMetrics)
	setBool("ENABLE_TRACING", &cfg.Observability.EnableTracing)
	setString("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.Observability.OTLPEndpoint)

	// Auth
	setString("JWT_SECRET", &cfg.Auth.JWTSecret)
	setString("JWT_PUBLIC_KEY", &cfg.Auth.JWTPublicKey)
	setString("JWT_ISSUER", &cfg.Auth.Issuer)

	// Events
	setBool("EVENTS_ENABLED", &cfg.Events.Enabled)
	setString("EVENT_BUS_NAME", &cfg.Events.EventBusName)
	setString("AWS_REGION", &cfg.Events.Region)

	// CORS
	setList("CORS_ALLOWED_ORIGINS", &cfg.CORS.AllowedOrigins)

	return errors.Join(errs...)
}

// defaultConfig returns a configuration that runs locally without any files.
func (l *Loader) defaultConfig() *Config {
	return &Config{
		Environment: l.environment,
		Server: Server{
			Host:            "0.0.0.0",
			Port:            5000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxRequestSize:  1 << 20,
		},
		Database: Database{
			Driver:          "sqlite",
			DSN:             "safespace.db",
			Host:            "localhost",
			Port:            5433,
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Cache: Cache{
			Driver:          "memory",
			TTL:             time.Hour,
			CleanupInterval: time.Minute,
			Redis: Redis{
				Addr:      "localhost:6379",
				PoolSize:  10,
				KeyPrefix: "safespace:",
				Timeout:   2 * time.Second,
			},
			Breaker: Breaker{
				Enabled:          true,
				Timeout:          15 * time.Second,
				FailureThreshold: 0.5,
				MinRequests:      5,
			},
		},
		Filter: Filter{
			Terms: []string{"abused", "killed", "murdered", "suicide", "die", "death"},
		},
		Stories: Stories{
			Moods: []string{"hopeful", "anxious", "healing", "lonely", "grateful", "tired"},
		},
		Logging: Logging{
			Level:       "info",
			Development: l.environment == Development,
		},
		Observability: Observability{
			EnableMetrics:    true,
			MetricsNamespace: "safespace",
			ServiceName:      "safespace-api",
			SampleRate:       0.1,
		},
		Events: Events{
			EventBusName: "default",
			Source:       "safespace.api",
			Region:       "us-east-1",
		},
		CORS: CORS{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			MaxAge:         300,
		},
	}
}

// parseTTL accepts a Go duration ("1h") or a bare number of seconds ("3600").
func parseTTL(s string) (time.Duration, error) {
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(s)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// EnvironmentFromEnv reads ENVIRONMENT, defaulting to development.
func EnvironmentFromEnv() Environment {
	switch strings.ToLower(os.Getenv("ENVIRONMENT")) {
	case "production", "prod":
		return Production
	case "staging":
		return Staging
	default:
		return Development
	}
}

// Load loads configuration from CONFIG_DIR (default "config") for the
// environment named by ENVIRONMENT.
func Load() (*Config, error) {
	dir := os.Getenv("CONFIG_DIR")
	if dir == "" {
		dir = "config"
	}
	return NewLoader(dir, EnvironmentFromEnv()).Load()
}
