package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/cpf-camaras/market/internal/market/store"
)

// DefaultAttemptRetention is how long reset attempt log entries are kept.
const DefaultAttemptRetention = 90 * 24 * time.Hour

// DefaultTokenGrace is how long a used or expired reset code row outlives
// its use or expiry. Until then verification still reports AlreadyUsed or
// Expired rather than NotFound.
const DefaultTokenGrace = 24 * time.Hour

// HousekeepingService periodically deletes spent reset codes and old reset
// attempt log entries.
type HousekeepingService struct {
	Store      store.Store
	Logger     *slog.Logger
	Interval   time.Duration
	Retention  time.Duration
	TokenGrace time.Duration
	Now        func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to 1 hour and a non-positive retention to
// DefaultAttemptRetention.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval, retention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = DefaultAttemptRetention
	}

	return &HousekeepingService{
		Store:      store,
		Logger:     logger,
		Interval:   interval,
		Retention:  retention,
		TokenGrace: DefaultTokenGrace,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start runs cleanup now and then on every tick until Stop is called.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until an in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup deletes expired records. Each deletion is independent.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}

	grace := s.TokenGrace
	if grace <= 0 {
		grace = DefaultTokenGrace
	}

	var successful int

	if n, err := s.Store.ResetTokens().DeleteStaleResetTokens(ctx, now.Add(-grace)); err != nil {
		s.Logger.Error("failed to delete stale reset tokens", "error", err)
	} else {
		s.Logger.Debug("deleted stale reset tokens", "count", n)
		successful++
	}

	if n, err := s.Store.ResetAttempts().DeleteResetAttemptsBefore(ctx, now.Add(-s.Retention)); err != nil {
		s.Logger.Error("failed to delete old reset attempts", "error", err)
	} else {
		s.Logger.Debug("deleted old reset attempts", "count", n)
		successful++
	}

	s.Logger.Info("housekeeping cleanup completed", "successful_cleanups", successful)
}
