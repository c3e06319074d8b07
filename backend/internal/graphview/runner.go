package graphview

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"diarygraph/backend/internal/constants"
)

// Runner drives a controller's frame loop from a goroutine. Each tick runs
// under mu so it never interleaves with input handlers holding the same lock.
type Runner struct {
	ctrl     *Controller
	mu       sync.Locker
	interval time.Duration
	logger   *zap.Logger
}

// NewRunner creates a runner ticking ctrl every interval
func NewRunner(ctrl *Controller, mu sync.Locker, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = constants.DefaultTickIntervalMS * time.Millisecond
	}
	return &Runner{
		ctrl:     ctrl,
		mu:       mu,
		interval: interval,
		logger:   ctrl.logger.Named("runner"),
	}
}

// Run ticks until ctx is done. Empty graphs are skipped without stopping the
// loop so a later regeneration resumes animation.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Debug("Frame loop started", zap.Duration("interval", r.interval))
	defer r.logger.Debug("Frame loop stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.mu.Lock()
			r.ctrl.Tick()
			r.mu.Unlock()
		}
	}
}
