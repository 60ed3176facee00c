package jobs

import (
	"context"
	"log/slog"
	"time"
)

// DefaultInterval is used when no positive refresh interval is configured.
const DefaultInterval = time.Minute

// Warmer is the part of the dashboard service the refresher drives.
type Warmer interface {
	// Prewarm starts loads for configured keys that are not cached.
	Prewarm() int
	// Warm starts refreshes for configured keys that are missing or stale.
	Warm() int
}

// Refresher keeps the configured dashboard datasets warm in the background.
type Refresher struct {
	warmer   Warmer
	interval time.Duration
	logger   *slog.Logger
}

// NewRefresher creates a new refresher. A non-positive interval falls back
// to DefaultInterval.
func NewRefresher(warmer Warmer, interval time.Duration, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Refresher{
		warmer:   warmer,
		interval: interval,
		logger:   logger.With("component", "refresher"),
	}
}

// Start begins the background refresh loop. It blocks until ctx is done.
func (r *Refresher) Start(ctx context.Context) {
	r.logger.Info("refresher started", "interval", r.interval)

	// Run immediately on start
	if n := r.warmer.Prewarm(); n > 0 {
		r.logger.Info("prewarming cache", "keys", n)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresher stopped")
			return
		case <-ticker.C:
			if n := r.warmer.Warm(); n > 0 {
				r.logger.Debug("refreshing cache", "keys", n)
			}
		}
	}
}
