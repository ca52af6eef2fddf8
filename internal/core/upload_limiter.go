package core

// upload_limiter.go bounds how many pipeline runs (uploads, stage runs,
// joins, exports) execute at once across all sessions.
//
// The limiter is a semaphore. When every slot is taken a caller waits up to
// maxWait before failing with ErrTooManyRuns. WaitForDrain lets shutdown
// block until in-flight runs finish.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTooManyRuns is returned when no run slot frees up within the wait time.
var ErrTooManyRuns = errors.New("too many concurrent pipeline runs, please try again later")

// DefaultMaxConcurrentRuns is the default limit for parallel runs.
const DefaultMaxConcurrentRuns = 5

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// RunLimiter caps concurrent pipeline runs.
type RunLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration
	active    atomic.Int64
}

// NewRunLimiter allows at most maxConcurrent simultaneous runs. Callers that
// cannot get a slot within maxWait receive ErrTooManyRuns.
func NewRunLimiter(maxConcurrent int, maxWait time.Duration) *RunLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentRuns
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &RunLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire takes a slot. The caller must Release it when done.
func (l *RunLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.semaphore <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyRuns
	}
}

// TryAcquire takes a slot without waiting.
func (l *RunLimiter) TryAcquire() bool {
	select {
	case l.semaphore <- struct{}{}:
		l.active.Add(1)
		return true
	default:
		return false
	}
}

// Release frees a slot taken by Acquire or TryAcquire.
func (l *RunLimiter) Release() {
	l.active.Add(-1)
	<-l.semaphore
}

// ActiveCount returns the number of runs holding a slot.
func (l *RunLimiter) ActiveCount() int { return int(l.active.Load()) }

// MaxConcurrent returns the slot count.
func (l *RunLimiter) MaxConcurrent() int { return cap(l.semaphore) }

// Available returns the number of free slots.
func (l *RunLimiter) Available() int { return cap(l.semaphore) - len(l.semaphore) }

// WaitForDrain blocks until no run holds a slot or ctx ends.
func (l *RunLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunLimiterStatus is a snapshot of the limiter.
type RunLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the limiter state for health reporting.
func (l *RunLimiter) Status() RunLimiterStatus {
	return RunLimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: l.MaxConcurrent(),
	}
}
