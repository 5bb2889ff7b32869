package collector

import (
	"context"
	"sync"
	"time"

	"github.com/energydatahub/energyhub/pkg/models"
)

// MockSource is a scriptable source used in tests and demo runs. The
// default behavior returns one point per hour in the requested range.
type MockSource struct {
	mu         sync.Mutex
	fetchFunc  func(ctx context.Context, start, end time.Time, params map[string]string) (RawPayload, error)
	parseFunc  func(raw RawPayload, start, end time.Time) (models.ParsedSeries, error)
	fetchCalls int
}

func NewMockSource() *MockSource {
	return &MockSource{}
}

// SetFetch replaces the fetch behavior.
func (m *MockSource) SetFetch(fn func(ctx context.Context, start, end time.Time, params map[string]string) (RawPayload, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchFunc = fn
}

// SetParse replaces the parse behavior.
func (m *MockSource) SetParse(fn func(raw RawPayload, start, end time.Time) (models.ParsedSeries, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parseFunc = fn
}

// FetchCalls reports how many times FetchRaw was invoked.
func (m *MockSource) FetchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetchCalls
}

func (m *MockSource) FetchRaw(ctx context.Context, start, end time.Time, params map[string]string) (RawPayload, error) {
	m.mu.Lock()
	fn := m.fetchFunc
	m.fetchCalls++
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, start, end, params)
	}
	return hourlySeries(start, end, 42.0), nil
}

func (m *MockSource) Parse(raw RawPayload, start, end time.Time) (models.ParsedSeries, error) {
	m.mu.Lock()
	fn := m.parseFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(raw, start, end)
	}
	if series, ok := raw.(models.ParsedSeries); ok {
		return series, nil
	}
	return models.ParsedSeries{}, nil
}

func hourlySeries(start, end time.Time, base float64) models.ParsedSeries {
	series := models.ParsedSeries{}
	for t := start; t.Before(end); t = t.Add(time.Hour) {
		series[t] = models.NewPoint("value", base+float64(t.Hour()))
	}
	return series
}
