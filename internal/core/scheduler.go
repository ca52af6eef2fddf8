package core

// scheduler.go runs background maintenance for the session store.
//
// Sessions live in memory only. The sweeper evicts sessions that have been
// idle for longer than the configured TTL so abandoned sheets do not pile up.

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is how often idle sessions are evicted.
const DefaultSweepInterval = 5 * time.Minute

// StartSweeper evicts idle sessions every interval until ctx is cancelled.
// It blocks; run it in its own goroutine.
func (s *Service) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	slog.Info("session sweeper started", "interval", interval, "ttl", s.ttl)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			s.runSweep()
		}
	}
}

func (s *Service) runSweep() {
	start := time.Now()
	removed := s.Sweep()
	if removed == 0 {
		slog.Debug("session sweep found nothing to evict")
		return
	}
	slog.Info("evicted idle sessions",
		"sessions_removed", removed,
		"sessions_live", s.Count(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
