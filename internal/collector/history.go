package collector

import (
	"sync"

	"github.com/energydatahub/energyhub/pkg/models"
)

const defaultHistorySize = 100

// history is a bounded ring of collection metrics. The collector appends,
// the API reads; oldest entries are evicted on overflow.
type history struct {
	mu   sync.RWMutex
	buf  []models.CollectionMetric
	next int
	full bool
}

func newHistory(size int) *history {
	if size <= 0 {
		size = defaultHistorySize
	}
	return &history{buf: make([]models.CollectionMetric, size)}
}

func (h *history) append(m models.CollectionMetric) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf[h.next] = m
	h.next = (h.next + 1) % len(h.buf)
	if h.next == 0 {
		h.full = true
	}
}

// recent returns up to limit metrics, most recent first. limit <= 0
// returns the whole retained window.
func (h *history) recent(limit int) []models.CollectionMetric {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := h.next
	if h.full {
		n = len(h.buf)
	}
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]models.CollectionMetric, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (h.next - i + len(h.buf)) % len(h.buf)
		out = append(out, h.buf[idx])
	}
	return out
}

// successRate is the fraction of retained metrics with a success outcome.
func (h *history) successRate() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := h.next
	if h.full {
		n = len(h.buf)
	}
	if n == 0 {
		return 0
	}

	succeeded := 0
	for i := 0; i < n; i++ {
		if h.buf[i].Outcome == models.OutcomeSuccess {
			succeeded++
		}
	}
	return float64(succeeded) / float64(n)
}
