package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lockplane/passkeyd/internal/rp/domain"
	"github.com/lockplane/passkeyd/internal/rp/store/drivers/sqlite"
)

func newRateLimiter(t *testing.T) *RateLimiter {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	return &RateLimiter{Store: st, Window: time.Minute}
}

func TestRateLimiterCeiling(t *testing.T) {
	limiter := newRateLimiter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := limiter.Check(ctx, "203.0.113.7", domain.IdentifierIP, domain.EndpointLoginStart, 5)
		require.NoError(t, err)
	}
	err := limiter.Check(ctx, "203.0.113.7", domain.IdentifierIP, domain.EndpointLoginStart, 5)
	require.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestRateLimiterConcurrentExactlyCeiling(t *testing.T) {
	limiter := newRateLimiter(t)
	ctx := context.Background()

	const (
		attempts = 20
		ceiling  = 5
	)

	var allowed atomic.Int64
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := limiter.Check(ctx, "203.0.113.7", domain.IdentifierIP, domain.EndpointLoginStart, ceiling)
			if err == nil {
				allowed.Add(1)
				return
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.ErrorIs(t, err, domain.ErrRateLimited)
	}
	require.Equal(t, int64(ceiling), allowed.Load())
}

func TestRateLimiterScopes(t *testing.T) {
	limiter := newRateLimiter(t)
	ctx := context.Background()

	require.ErrorIs(t,
		exhaust(ctx, limiter, "203.0.113.7", domain.IdentifierIP, domain.EndpointLoginStart, 2),
		domain.ErrRateLimited)

	// Same identifier, different endpoint: fresh window.
	require.NoError(t, limiter.Check(ctx, "203.0.113.7", domain.IdentifierIP, domain.EndpointRegisterStart, 2))

	// Same endpoint, different identifier kind: fresh window.
	require.NoError(t, limiter.Check(ctx, "203.0.113.7", domain.IdentifierEmail, domain.EndpointLoginStart, 2))
}

func TestRateLimiterWindowRollover(t *testing.T) {
	limiter := newRateLimiter(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 30, 0, time.UTC)
	limiter.Clock = func() time.Time { return base }

	require.ErrorIs(t,
		exhaust(ctx, limiter, "dana@example.com", domain.IdentifierEmail, domain.EndpointLoginStart, 2),
		domain.ErrRateLimited)

	// Next minute, the window starts over.
	limiter.Clock = func() time.Time { return base.Add(time.Minute) }
	require.NoError(t, limiter.Check(ctx, "dana@example.com", domain.IdentifierEmail, domain.EndpointLoginStart, 2))
}

// exhaust checks until the limiter trips or gives up.
func exhaust(ctx context.Context, limiter *RateLimiter, identifier string, kind domain.IdentifierKind, endpoint string, ceiling int64) error {
	for i := int64(0); i <= ceiling+1; i++ {
		if err := limiter.Check(ctx, identifier, kind, endpoint, ceiling); err != nil {
			return err
		}
	}
	return nil
}
