package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusDegraded  = "degraded"
)

// Pinger is a dependency that can report its reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse represents the health check response structure.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
	Checks    map[string]HealthCheck `json:"checks,omitempty"`
}

// HealthCheck represents an individual component health check.
type HealthCheck struct {
	Status   string `json:"status"`
	Duration string `json:"duration"`
	Error    string `json:"error,omitempty"`
}

// HealthHandler provides liveness and readiness endpoints.
type HealthHandler struct {
	store   Pinger
	cache   Pinger
	version string
	timeout time.Duration
	logger  *zap.Logger
}

// NewHealthHandler creates a health handler. cache may be nil.
func NewHealthHandler(store, cache Pinger, version string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		store:   store,
		cache:   cache,
		version: version,
		timeout: 5 * time.Second,
		logger:  logger,
	}
}

// Health handles GET /health
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, HealthResponse{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	})
}

// Ready handles GET /ready. The store must answer; an unreachable cache only
// degrades the status because reads fall back to the store.
// @Summary Readiness check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse "Ready or degraded"
// @Failure 503 {object} HealthResponse "Store unreachable"
// @Router /ready [get]
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp := HealthResponse{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC(),
		Version:   h.version,
		Checks:    map[string]HealthCheck{},
	}

	store := check(ctx, h.store)
	resp.Checks["store"] = store
	if store.Status != StatusHealthy {
		resp.Status = StatusUnhealthy
	}

	if h.cache != nil {
		c := check(ctx, h.cache)
		resp.Checks["cache"] = c
		if c.Status != StatusHealthy && resp.Status == StatusHealthy {
			resp.Status = StatusDegraded
		}
	}

	status := http.StatusOK
	if resp.Status == StatusUnhealthy {
		status = http.StatusServiceUnavailable
		h.logger.Warn("Readiness check failed", zap.Any("checks", resp.Checks))
	}
	respondJSON(w, h.logger, status, resp)
}

func check(ctx context.Context, p Pinger) HealthCheck {
	start := time.Now()
	err := p.Ping(ctx)
	hc := HealthCheck{Status: StatusHealthy, Duration: time.Since(start).String()}
	if err != nil {
		hc.Status = StatusUnhealthy
		hc.Error = err.Error()
	}
	return hc
}
