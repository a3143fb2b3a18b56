// Package gate implements the Request Gate (C9): a process-wide
// serialization point ensuring only one optimization run drives the
// Calculation Oracle at a time, since the embedded engine is not
// safe for concurrent invocation.
package gate

import (
	"context"
	"time"

	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/apperrors"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/metrics"
)

// DefaultAcquireTimeout is the maximum time Acquire waits for the
// gate before giving up.
const DefaultAcquireTimeout = time.Second

// Gate is a single-slot semaphore. The zero value is not usable; use New.
type Gate struct {
	slot    chan struct{}
	timeout time.Duration
	metrics *metrics.Metrics
}

// SetMetrics attaches a Metrics collector so every timed-out Acquire is
// counted. Optional; a nil or never-set collector means Acquire simply
// skips recording.
func (g *Gate) SetMetrics(m *metrics.Metrics) {
	g.metrics = m
}

// New returns a Gate with a single slot and the given acquire timeout.
// A non-positive timeout falls back to DefaultAcquireTimeout.
func New(timeout time.Duration) *Gate {
	if timeout <= 0 {
		timeout = DefaultAcquireTimeout
	}
	g := &Gate{
		slot:    make(chan struct{}, 1),
		timeout: timeout,
	}
	g.slot <- struct{}{}
	return g
}

// Release is returned by Acquire; the caller must invoke it exactly
// once, regardless of how the guarded work concludes.
type Release func()

// Acquire blocks until the gate's single slot is free, ctx is
// cancelled, or the configured acquire timeout elapses — whichever
// comes first. On success it returns a Release the caller must defer.
// On failure it returns apperrors.OptimizerBusy.
func (g *Gate) Acquire(ctx context.Context) (Release, error) {
	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	select {
	case <-g.slot:
		released := false
		return func() {
			if released {
				return
			}
			released = true
			g.slot <- struct{}{}
		}, nil
	case <-ctx.Done():
		return nil, apperrors.OptimizerBusy().WithDetails("request cancelled while waiting for the optimizer gate")
	case <-timer.C:
		if g.metrics != nil {
			g.metrics.RecordGateTimeout()
		}
		return nil, apperrors.OptimizerBusy().WithDetails("another optimization is already running")
	}
}

// TryAcquire attempts to take the slot without blocking. ok is false
// if the gate is currently held.
func (g *Gate) TryAcquire() (release Release, ok bool) {
	select {
	case <-g.slot:
		released := false
		return func() {
			if released {
				return
			}
			released = true
			g.slot <- struct{}{}
		}, true
	default:
		return nil, false
	}
}
