package metrics

import (
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/energydatahub/energyhub/pkg/models"
)

type outcomeKey struct {
	collector string
	outcome   string
}

type reasonKey struct {
	collector string
	reason    string
}

// Metrics is a process-wide registry exposed in Prometheus text format.
// Collectors record every collection here in addition to their own ring
// buffers.
type Metrics struct {
	mu sync.RWMutex

	// Counters
	collectionsTotal map[outcomeKey]int64
	failuresTotal    map[reasonKey]int64
	pointsTotal      map[string]int64

	// Gauges
	breakerState    map[string]int // 0=closed, 1=open, 2=half-open
	lastPointCount  map[string]int
	lastAttempts    map[string]int
	lastLatency     map[string]time.Duration
	lastCollectedAt map[string]time.Time
}

var (
	instance *Metrics
	once     sync.Once
)

func Get() *Metrics {
	once.Do(func() {
		instance = newMetrics()
	})
	return instance
}

func newMetrics() *Metrics {
	return &Metrics{
		collectionsTotal: make(map[outcomeKey]int64),
		failuresTotal:    make(map[reasonKey]int64),
		pointsTotal:      make(map[string]int64),
		breakerState:     make(map[string]int),
		lastPointCount:   make(map[string]int),
		lastAttempts:     make(map[string]int),
		lastLatency:      make(map[string]time.Duration),
		lastCollectedAt:  make(map[string]time.Time),
	}
}

// Record updates all per-collector series from one collection metric.
func (m *Metrics) Record(metric *models.CollectionMetric) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := metric.CollectorName
	m.collectionsTotal[outcomeKey{name, string(metric.Outcome)}]++
	if metric.Reason != "" {
		m.failuresTotal[reasonKey{name, string(metric.Reason)}]++
	}
	m.pointsTotal[name] += int64(metric.PointCount)
	m.lastPointCount[name] = metric.PointCount
	m.lastAttempts[name] = metric.AttemptCount
	m.lastLatency[name] = metric.Duration
	m.lastCollectedAt[name] = metric.EndedAt
}

func (m *Metrics) SetBreakerState(collector string, state int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breakerState[collector] = state
}

func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.RLock()
		defer m.mu.RUnlock()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		for _, key := range sortedOutcomeKeys(m.collectionsTotal) {
			writeMetric(w, "energyhub_collections_total",
				map[string]string{"collector": key.collector, "outcome": key.outcome},
				float64(m.collectionsTotal[key]))
		}

		for _, key := range sortedReasonKeys(m.failuresTotal) {
			writeMetric(w, "energyhub_collection_failures_total",
				map[string]string{"collector": key.collector, "reason": key.reason},
				float64(m.failuresTotal[key]))
		}

		for _, name := range sortedNames(m.pointsTotal) {
			writeMetric(w, "energyhub_data_points_total",
				map[string]string{"collector": name}, float64(m.pointsTotal[name]))
		}

		for _, name := range sortedNames(m.breakerState) {
			writeMetric(w, "energyhub_circuit_breaker_state",
				map[string]string{"collector": name}, float64(m.breakerState[name]))
		}

		for _, name := range sortedNames(m.lastPointCount) {
			writeMetric(w, "energyhub_last_collection_points",
				map[string]string{"collector": name}, float64(m.lastPointCount[name]))
		}

		for _, name := range sortedNames(m.lastAttempts) {
			writeMetric(w, "energyhub_last_collection_attempts",
				map[string]string{"collector": name}, float64(m.lastAttempts[name]))
		}

		for _, name := range sortedNames(m.lastLatency) {
			writeMetric(w, "energyhub_last_collection_latency_ms",
				map[string]string{"collector": name}, float64(m.lastLatency[name].Milliseconds()))
		}

		for _, name := range sortedNames(m.lastCollectedAt) {
			writeMetric(w, "energyhub_last_collection_timestamp_seconds",
				map[string]string{"collector": name}, float64(m.lastCollectedAt[name].Unix()))
		}
	})
}

func writeMetric(w http.ResponseWriter, name string, labels map[string]string, value float64) {
	labelStr := ""
	if len(labels) > 0 {
		keys := make([]string, 0, len(labels))
		for k := range labels {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		labelStr = "{"
		for i, k := range keys {
			if i > 0 {
				labelStr += ","
			}
			labelStr += k + `="` + labels[k] + `"`
		}
		labelStr += "}"
	}
	w.Write([]byte(name + labelStr + " " + strconv.FormatFloat(value, 'f', -1, 64) + "\n"))
}

func sortedOutcomeKeys(m map[outcomeKey]int64) []outcomeKey {
	keys := make([]outcomeKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].collector != keys[j].collector {
			return keys[i].collector < keys[j].collector
		}
		return keys[i].outcome < keys[j].outcome
	})
	return keys
}

func sortedReasonKeys(m map[reasonKey]int64) []reasonKey {
	keys := make([]reasonKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].collector != keys[j].collector {
			return keys[i].collector < keys[j].collector
		}
		return keys[i].reason < keys[j].reason
	})
	return keys
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
