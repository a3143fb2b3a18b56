package session

import (
	"context"
	"time"

	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/hillclimb"
)

// defaultProgressEvery/defaultProgressInterval are the defaults applied
// to a session's hillclimb.Config if the caller left them unset: fire
// every N iterations or every T seconds, whichever is coarser. These
// match the documented defaults; config.Config.ProgressEvery/
// ProgressInterval let an operator override them without a code change.
const (
	defaultProgressEvery    = 100
	defaultProgressInterval = 5 * time.Second
)

// run drives one session end to end: acquire the gate, execute the
// hill climb, and publish the terminal event; on the way out it forces
// an oracle GC pass and then releases the gate. It always closes s.done
// exactly once.
func (c *Coordinator) run(s *Session) {
	defer close(s.done)

	st, _ := c.Stream(s.ID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.cancel:
			cancel()
		case <-ctx.Done():
		}
	}()

	if s.Cancelled() {
		c.finish(s, st, StatusCancelled, nil, nil)
		return
	}

	release, err := c.gate.Acquire(ctx)
	if err != nil {
		if ctx.Err() != nil {
			c.finish(s, st, StatusCancelled, nil, nil)
			return
		}
		c.finish(s, st, StatusFailed, nil, err)
		return
	}
	defer release()
	defer c.oracle.CollectGarbage()

	if c.metrics != nil {
		c.metrics.IncOptimizationsInFlight()
		defer c.metrics.DecOptimizationsInFlight()
	}

	c.setStatus(s, StatusRunning)

	cfg := s.Request.Config
	cfg.Cancel = s.Cancelled
	if cfg.ProgressEvery == 0 && cfg.ProgressInterval == 0 {
		cfg.ProgressEvery = defaultProgressEvery
		cfg.ProgressInterval = defaultProgressInterval
	}
	userProgress := cfg.Progress
	cfg.Progress = func(snap hillclimb.Snapshot) {
		if userProgress != nil {
			userProgress(snap)
		}
		if st != nil {
			st.Publish(Event{Type: EventProgress, Data: snap})
		}
	}

	result, runErr := hillclimb.Run(ctx, s.Request.Baseline, c.graph, c.oracle, cfg)
	if runErr != nil {
		c.finish(s, st, StatusFailed, nil, runErr)
		return
	}

	status := StatusCompleted
	if result.ConvergenceReason == hillclimb.ReasonCancelled {
		status = StatusCancelled
	}
	c.finish(s, st, status, &result, nil)
}

func (c *Coordinator) finish(s *Session, st *Stream, status Status, result *hillclimb.Result, err error) {
	c.mu.Lock()
	s.Status = status
	s.Result = result
	s.Err = err
	s.UpdatedAt = time.Now()
	c.mu.Unlock()

	if st == nil {
		return
	}
	switch {
	case err != nil:
		st.Publish(Event{Type: EventError, Data: err})
	default:
		st.Publish(Event{Type: EventComplete, Data: result})
	}
	st.Close()
}
