// Package session implements the Session Coordinator (C7) and Progress
// Stream (C8): it tracks optimization runs from submission through
// completion, drives the background worker that holds the Request
// Gate while the Hill-Climbing Engine runs, and fans out progress
// events to subscribers over Server-Sent Events.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/build"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/buildcode"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/hillclimb"
)

// Status is the lifecycle state of a Session.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Request bundles everything a caller submits to start an optimization.
type Request struct {
	Baseline build.Build
	Envelope *buildcode.Envelope // original wire envelope, for re-encoding the result
	Config   hillclimb.Config
}

// Session is the coordinator's unit of work and its result.
type Session struct {
	ID        string
	Status    Status
	Request   Request
	Result    *hillclimb.Result
	Err       error
	CreatedAt time.Time
	UpdatedAt time.Time

	cancel chan struct{}
	done   chan struct{}
}

// newSession allocates a Session in StatusPending with a fresh id.
func newSession(req Request) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		Status:    StatusPending,
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
		cancel:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Cancelled reports whether Cancel has been called on this session.
// It is safe to call from the worker goroutine; closing a channel is
// the one-shot broadcast idiom for this.
func (s *Session) Cancelled() bool {
	select {
	case <-s.cancel:
		return true
	default:
		return false
	}
}
