package session

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/logging"
)

// Sweeper periodically reclaims terminal sessions past their
// retention window so completed/failed/cancelled sessions don't
// accumulate in memory forever.
type Sweeper struct {
	coordinator *Coordinator
	logger      *logging.Logger
	cron        *cron.Cron
}

// NewSweeper wires a cron-scheduled sweep of c using the "@every 1h"
// expression; callers needing a different cadence pass their own.
func NewSweeper(c *Coordinator, logger *logging.Logger, spec string) *Sweeper {
	if spec == "" {
		spec = "@every 1h"
	}
	sw := &Sweeper{
		coordinator: c,
		logger:      logger,
		cron:        cron.New(),
	}
	_, err := sw.cron.AddFunc(spec, sw.sweepOnce)
	if err != nil {
		logger.WithContext(context.Background()).WithError(err).Error("sweeper: invalid cron spec, TTL sweep disabled")
	}
	return sw
}

// Start begins the cron scheduler in the background.
func (sw *Sweeper) Start() {
	sw.cron.Start()
}

// Stop halts the scheduler and waits for any in-flight sweep to finish.
func (sw *Sweeper) Stop() {
	ctx := sw.cron.Stop()
	<-ctx.Done()
}

func (sw *Sweeper) sweepOnce() {
	removed := sw.coordinator.sweep(time.Now())
	if removed > 0 {
		sw.logger.WithContext(context.Background()).WithField("removed", removed).Info("sweeper: reclaimed expired sessions")
	}
}
