package analyzer

import (
	"sync"
	"time"
)

// DegradationTracker remembers when each collector first left the
// healthy state, so reports can show how long an outage has lasted.
type DegradationTracker struct {
	since map[string]time.Time
	mu    sync.RWMutex
}

func NewDegradationTracker() *DegradationTracker {
	return &DegradationTracker{
		since: make(map[string]time.Time),
	}
}

func (t *DegradationTracker) Update(collector string, report *Report) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if report.Status == StatusDegraded || report.Status == StatusFailing {
		if _, exists := t.since[collector]; !exists {
			t.since[collector] = time.Now()
		}
	} else {
		delete(t.since, collector)
	}

	if start, exists := t.since[collector]; exists {
		report.DegradedSince = &start
	}
}

func (t *DegradationTracker) DegradedDuration(collector string) time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if start, exists := t.since[collector]; exists {
		return time.Since(start)
	}
	return 0
}

func (t *DegradationTracker) Reset(collector string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.since, collector)
}
