package service

import (
	"context"
	"fmt"
	"time"

	"github.com/lockplane/passkeyd/internal/rp/domain"
	"github.com/lockplane/passkeyd/internal/rp/store"
)

// RateLimiter enforces durable fixed-window ceilings on ceremony entry
// points. Windows are aligned to wall-clock boundaries so every node in a
// deployment truncates to the same window start, and the count-then-compare
// happens in a single store statement so concurrent requests over the ceiling
// cannot all slip through.
type RateLimiter struct {
	Store  store.Store
	Window time.Duration

	// Clock is overridable in tests. Nil means time.Now.
	Clock func() time.Time
}

func (l *RateLimiter) now() time.Time {
	if l.Clock != nil {
		return l.Clock()
	}
	return time.Now()
}

// Check records one attempt for the identifier on the given endpoint and
// returns domain.ErrRateLimited once the window ceiling is exceeded. The
// attempt is counted even when the limit trips, so hammering a blocked
// identifier never lets it back in early.
func (l *RateLimiter) Check(ctx context.Context, identifier string, kind domain.IdentifierKind, endpoint string, ceiling int64) error {
	if identifier == "" || ceiling <= 0 {
		return nil
	}
	windowStart := l.now().Truncate(l.Window)
	attempts, err := l.Store.RateLimits().IncrementWindow(ctx, identifier, kind, endpoint, windowStart)
	if err != nil {
		return fmt.Errorf("increment rate window: %w", err)
	}
	if attempts > ceiling {
		return domain.ErrRateLimited
	}
	return nil
}
