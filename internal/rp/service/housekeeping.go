package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/lockplane/passkeyd/internal/rp/store"
)

// HousekeepingService periodically cleans up expired database records
// to prevent unbounded growth of challenges, login_tokens, and
// rate_limit_windows. Audit events are never touched.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// WindowRetention is how long closed rate-limit windows are kept before
	// deletion. Defaults to 24 hours.
	WindowRetention time.Duration

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}

	// Clock is overridable in tests. Nil means time.Now.
	Clock func() time.Time
}

// NewHousekeepingService creates a new housekeeping service with the given
// interval. If interval is 0 or negative, defaults to 5 minutes.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &HousekeepingService{
		Store:           st,
		Logger:          logger,
		Interval:        interval,
		WindowRetention: 24 * time.Hour,
		stopCh:          make(chan struct{}),
		doneCh:          make(chan struct{}),
	}
}

func (s *HousekeepingService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// Start begins the background worker that periodically runs cleanup.
// This is non-blocking and should be called after the database is ready.
// Call Stop() to gracefully shutdown the worker.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker.
// Blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.Cleanup()

	for {
		select {
		case <-ticker.C:
			s.Cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup performs the actual deletion of expired records.
// Each deletion is independent, failures in one won't stop the others.
func (s *HousekeepingService) Cleanup() {
	ctx := context.Background()
	now := s.now()
	s.Logger.Debug("starting housekeeping cleanup")

	if err := s.Store.Challenges().DeleteExpiredChallenges(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired challenges", "error", err)
	}

	if err := s.Store.LoginTokens().DeleteExpiredLoginTokens(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired login tokens", "error", err)
	}

	if err := s.Store.RateLimits().DeleteWindowsBefore(ctx, now.Add(-s.WindowRetention)); err != nil {
		s.Logger.Error("failed to delete stale rate-limit windows", "error", err)
	}

	s.Logger.Debug("housekeeping cleanup completed")
}
