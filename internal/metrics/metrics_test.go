package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeBackend struct {
	mu         sync.Mutex
	counters   []call
	histograms []call
	flushes    int
}

type call struct {
	name   string
	value  float64
	labels Labels
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters = append(f.counters, call{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histograms = append(f.histograms, call{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
	return nil
}

func install(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{}
	SetBackend(fb)
	t.Cleanup(Reset)
	return fb
}

func TestRecordStep(t *testing.T) {
	fb := install(t)

	RecordStep("loadsheet", "structural", nil, 2*time.Second)
	RecordStep("loadsheet", "ontology", errors.New("boom"), 500*time.Millisecond)

	if len(fb.counters) != 2 || len(fb.histograms) != 2 {
		t.Fatalf("calls = %d counters, %d histograms; want 2, 2", len(fb.counters), len(fb.histograms))
	}

	tests := []struct {
		idx        int
		wantStep   string
		wantStatus string
		wantSecs   float64
	}{
		{0, "structural", "success", 2},
		{1, "ontology", "failure", 0.5},
	}
	for _, tt := range tests {
		c := fb.counters[tt.idx]
		if c.name != StageTotal || c.value != 1 {
			t.Errorf("counter[%d] = %s/%v, want %s/1", tt.idx, c.name, c.value, StageTotal)
		}
		if c.labels["step"] != tt.wantStep || c.labels["status"] != tt.wantStatus {
			t.Errorf("counter[%d] labels = %v", tt.idx, c.labels)
		}
		h := fb.histograms[tt.idx]
		if h.name != StageDuration || h.value != tt.wantSecs {
			t.Errorf("histogram[%d] = %s/%v, want %s/%v", tt.idx, h.name, h.value, StageDuration, tt.wantSecs)
		}
	}
}

func TestRecordRow(t *testing.T) {
	fb := install(t)

	RecordRow("loadsheet", "uploaded", 12)
	RecordRow("loadsheet", "dropped", 0)
	RecordRow("loadsheet", "dropped", -3)

	if len(fb.counters) != 1 {
		t.Fatalf("got %d counter calls, want 1", len(fb.counters))
	}
	c := fb.counters[0]
	if c.name != RecordsTotal || c.value != 12 || c.labels["kind"] != "uploaded" {
		t.Errorf("counter = %+v", c)
	}
}

func TestSetBackendNilKeepsCurrent(t *testing.T) {
	fb := install(t)
	SetBackend(nil)
	if err := Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if fb.flushes != 1 {
		t.Errorf("flushes = %d, want 1", fb.flushes)
	}
}

func TestNopBackend(t *testing.T) {
	Reset()
	RecordStep("loadsheet", "structural", nil, time.Second)
	RecordRow("loadsheet", "uploaded", 1)
	if err := Flush(); err != nil {
		t.Errorf("Flush() error = %v", err)
	}
}
