package cache

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig holds configuration for the cache circuit breaker.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns the breaker settings used in front of Redis.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      1,
		Interval:         30 * time.Second,
		Timeout:          15 * time.Second,
		FailureThreshold: 0.5,
		MinRequests:      5,
	}
}

// BreakerCache wraps a Cache so that a failing backend is short-circuited.
// While the breaker is open every call fails immediately with
// gobreaker.ErrOpenState, which callers treat like any other cache error.
type BreakerCache struct {
	inner Cache
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerCache wraps inner with a circuit breaker.
func NewBreakerCache(inner Cache, cfg BreakerConfig, logger *zap.Logger) *BreakerCache {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Cache circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up is not a backend failure.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &BreakerCache{inner: inner, cb: cb}
}

// State reports the breaker state.
func (c *BreakerCache) State() gobreaker.State {
	return c.cb.State()
}

func (c *BreakerCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		value []byte
		found bool
	)
	_, err := c.cb.Execute(func() (interface{}, error) {
		var err error
		value, found, err = c.inner.Get(ctx, key)
		return nil, err
	})
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}

func (c *BreakerCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.inner.Set(ctx, key, value, ttl)
	})
	return err
}

func (c *BreakerCache) Delete(ctx context.Context, key string) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.inner.Delete(ctx, key)
	})
	return err
}

// Ping bypasses the breaker so readiness checks see the real backend state.
func (c *BreakerCache) Ping(ctx context.Context) error {
	return c.inner.Ping(ctx)
}
