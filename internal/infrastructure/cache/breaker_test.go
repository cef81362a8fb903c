package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// flakyCache fails every call while down is set and counts backend calls.
type flakyCache struct {
	down  bool
	calls int
}

var errBackendDown = errors.New("connection refused")

func (f *flakyCache) Get(context.Context, string) ([]byte, bool, error) {
	f.calls++
	if f.down {
		return nil, false, errBackendDown
	}
	return nil, false, nil
}

func (f *flakyCache) Set(context.Context, string, []byte, time.Duration) error {
	f.calls++
	if f.down {
		return errBackendDown
	}
	return nil
}

func (f *flakyCache) Delete(context.Context, string) error {
	f.calls++
	if f.down {
		return errBackendDown
	}
	return nil
}

func (f *flakyCache) Ping(context.Context) error {
	if f.down {
		return errBackendDown
	}
	return nil
}

func TestBreakerCache_MissIsNotAFailure(t *testing.T) {
	ctx := context.Background()
	inner := &flakyCache{}
	c := NewBreakerCache(inner, DefaultBreakerConfig("test"), zap.NewNop())

	for i := 0; i < 20; i++ {
		_, found, err := c.Get(ctx, "stories")
		require.NoError(t, err)
		assert.False(t, found)
	}
	assert.Equal(t, gobreaker.StateClosed, c.State())
}

func TestBreakerCache_OpensOnFailures(t *testing.T) {
	ctx := context.Background()
	inner := &flakyCache{down: true}
	cfg := DefaultBreakerConfig("test")
	cfg.Timeout = time.Hour
	c := NewBreakerCache(inner, cfg, zap.NewNop())

	for i := 0; i < int(cfg.MinRequests); i++ {
		_, _, err := c.Get(ctx, "stories")
		assert.ErrorIs(t, err, errBackendDown)
	}
	assert.Equal(t, gobreaker.StateOpen, c.State())

	callsBefore := inner.calls
	_, _, err := c.Get(ctx, "stories")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.ErrorIs(t, c.Delete(ctx, "stories"), gobreaker.ErrOpenState)
	assert.Equal(t, callsBefore, inner.calls, "open breaker must not reach the backend")

	assert.Error(t, c.Ping(ctx))
}

func TestBreakerCache_CanceledContextDoesNotTrip(t *testing.T) {
	ctx := context.Background()
	c := NewBreakerCache(&canceledCache{}, DefaultBreakerConfig("test"), zap.NewNop())

	for i := 0; i < 10; i++ {
		_, _, err := c.Get(ctx, "stories")
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, gobreaker.StateClosed, c.State())
}

type canceledCache struct{ NopCache }

func (canceledCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, context.Canceled
}
