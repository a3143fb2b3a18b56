package session

import (
	"context"
	"sync"
	"time"

	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/apperrors"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/gate"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/logging"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/metrics"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/oracle"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/treegraph"
)

// Coordinator owns every in-flight and recently-finished Session, the
// single Request Gate guarding the Calculation Oracle, and each
// session's progress Stream.
type Coordinator struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	streams  map[string]*Stream

	graph   *treegraph.Graph
	oracle  *oracle.Oracle
	gate    *gate.Gate
	logger  *logging.Logger
	metrics *metrics.Metrics

	retention time.Duration
}

// SetMetrics attaches a Metrics collector so sessions started/finished and
// TTL sweeps are counted. Optional; a nil or never-set collector means
// these events simply go unrecorded.
func (c *Coordinator) SetMetrics(m *metrics.Metrics) {
	c.metrics = m
}

// New builds a Coordinator. retention controls how long a session in a
// terminal state (completed/failed/cancelled) is kept queryable before
// the TTL sweeper reclaims it.
func New(graph *treegraph.Graph, o *oracle.Oracle, g *gate.Gate, logger *logging.Logger, retention time.Duration) *Coordinator {
	return &Coordinator{
		sessions:  make(map[string]*Session),
		streams:   make(map[string]*Stream),
		graph:     graph,
		oracle:    o,
		gate:      g,
		logger:    logger,
		retention: retention,
	}
}

// Submit registers a new session and starts its background worker.
// It returns immediately with the session in StatusPending; the
// caller polls Get or subscribes to Stream for progress.
func (c *Coordinator) Submit(req Request) *Session {
	s := newSession(req)

	c.mu.Lock()
	c.sessions[s.ID] = s
	c.streams[s.ID] = newStream()
	c.mu.Unlock()

	go c.run(s)
	return s
}

// Get returns the session with the given id.
func (c *Coordinator) Get(id string) (*Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sessions[id]
	return s, ok
}

// Stream returns the progress stream for id. For an unknown (or
// already swept) session it returns nil and false.
func (c *Coordinator) Stream(id string) (*Stream, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.streams[id]
	return st, ok
}

// Cancel signals the session's worker to stop at its next cancellation
// check point. It is a no-op (returning SessionNotFound) for unknown
// ids and idempotent for sessions already in a terminal state.
func (c *Coordinator) Cancel(id string) error {
	c.mu.RLock()
	s, ok := c.sessions[id]
	c.mu.RUnlock()
	if !ok {
		return apperrors.SessionNotFound(id)
	}

	c.mu.Lock()
	isTerminal := s.Status == StatusCompleted || s.Status == StatusFailed || s.Status == StatusCancelled
	c.mu.Unlock()
	if isTerminal {
		return nil
	}

	select {
	case <-s.cancel:
	default:
		close(s.cancel)
	}
	return nil
}

// Wait blocks until the session reaches a terminal state or ctx is
// done, whichever comes first. It exists mainly for tests; the HTTP
// surface polls Get instead.
func (c *Coordinator) Wait(ctx context.Context, id string) error {
	s, ok := c.Get(id)
	if !ok {
		return apperrors.SessionNotFound(id)
	}
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sweep removes terminal sessions whose last update is older than
// retention, along with their closed streams.
func (c *Coordinator) sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for id, s := range c.sessions {
		terminal := s.Status == StatusCompleted || s.Status == StatusFailed || s.Status == StatusCancelled
		if terminal && now.Sub(s.UpdatedAt) > c.retention {
			delete(c.sessions, id)
			if st, ok := c.streams[id]; ok {
				st.Close()
				delete(c.streams, id)
			}
			removed++
		}
	}
	if removed > 0 && c.metrics != nil {
		c.metrics.RecordSessionsSwept(removed)
	}
	return removed
}

func (c *Coordinator) setStatus(s *Session, status Status) {
	c.mu.Lock()
	s.Status = status
	s.UpdatedAt = time.Now()
	c.mu.Unlock()
}
