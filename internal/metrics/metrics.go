// Package metrics records operational metrics for the load-sheet pipeline
// behind a pluggable Backend. The default backend discards everything, so
// instrumented code never needs to check whether metrics are configured.
//
// Concrete backends live in subpackages (prom, datadog) and are installed at
// startup with SetBackend.
package metrics

import (
	"sync"
	"time"
)

// Metric names emitted by this package.
const (
	StageTotal    = "loadsheet_stage_total"
	StageDuration = "loadsheet_stage_duration_seconds"
	RecordsTotal  = "loadsheet_records_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a duration style observation.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes buffered metrics, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b. A nil b keeps the current backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

// Reset restores the no-op backend.
func Reset() {
	mu.Lock()
	backend = nopBackend{}
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordStep counts one execution of a pipeline step and observes its
// duration, labelled by outcome.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": job, "step": step, "status": status}
	b := current()
	b.IncCounter(StageTotal, 1, lbls)
	b.ObserveHistogram(StageDuration, d.Seconds(), lbls)
}

// RecordRow adds n to the record counter of kind. Typical kinds are
// "uploaded", "normalized", "dropped" and "exported". Non-positive n is
// ignored.
func RecordRow(job, kind string, n int) {
	if n <= 0 {
		return
	}
	current().IncCounter(RecordsTotal, float64(n), Labels{"job": job, "kind": kind})
}
