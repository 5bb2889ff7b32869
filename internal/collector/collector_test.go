package collector_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/energydatahub/energyhub/internal/collector"
	"github.com/energydatahub/energyhub/internal/resilience"
	"github.com/energydatahub/energyhub/pkg/models"
)

func testConfig() collector.Config {
	return collector.Config{
		Name:       "test",
		DataType:   "energy_price",
		SourceName: "Mock API",
		Units:      "EUR/kWh",
		Retry: resilience.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 0,
			BackoffBase:  2.0,
		},
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Timeout:          time.Minute,
		},
	}
}

func window() (time.Time, time.Time) {
	start := time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

func TestNew_Validation(t *testing.T) {
	_, err := collector.New(testConfig(), nil)
	assert.ErrorIs(t, err, collector.ErrNilSource)

	cfg := testConfig()
	cfg.Name = "Bad Name"
	_, err = collector.New(cfg, collector.NewMockSource())
	assert.Error(t, err)

	cfg.Name = ""
	_, err = collector.New(cfg, collector.NewMockSource())
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Timezone = "Not/AZone"
	_, err = collector.New(cfg, collector.NewMockSource())
	assert.Error(t, err)
}

func TestCollect_InvalidRange(t *testing.T) {
	c, err := collector.New(testConfig(), collector.NewMockSource())
	require.NoError(t, err)

	start, _ := window()
	_, err = c.Collect(context.Background(), start, start, nil)
	assert.ErrorIs(t, err, collector.ErrInvalidRange)

	_, err = c.Collect(context.Background(), start, start.Add(-time.Hour), nil)
	assert.ErrorIs(t, err, collector.ErrInvalidRange)
}

func TestCollect_SuccessfulDay(t *testing.T) {
	src := collector.NewMockSource()
	c, err := collector.New(testConfig(), src)
	require.NoError(t, err)

	start, end := window()
	result, err := c.Collect(context.Background(), start, end, nil)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeSuccess, result.Outcome)
	assert.True(t, result.Succeeded())
	require.NotNil(t, result.Dataset)
	assert.Len(t, result.Dataset.Series, 24)

	require.NotNil(t, result.Metric)
	assert.Equal(t, 1, result.Metric.AttemptCount)
	assert.Equal(t, 24, result.Metric.PointCount)
	assert.Empty(t, result.Metric.Warnings)
	assert.Equal(t, 1, src.FetchCalls())

	// Series keys are normalized to the collector's zone.
	for ts := range result.Dataset.Series {
		assert.Equal(t, c.Location(), ts.Location())
	}

	md := result.Dataset.Metadata
	assert.Equal(t, "test", md.Collector)
	assert.Equal(t, "energy_price", md.DataType)
	assert.Equal(t, 24, md.PointCount)

	assert.Equal(t, 1.0, c.SuccessRate())
}

func TestCollect_FetchRetriesExhausted(t *testing.T) {
	src := collector.NewMockSource()
	src.SetFetch(func(ctx context.Context, start, end time.Time, params map[string]string) (collector.RawPayload, error) {
		return nil, errors.New("connection refused")
	})

	c, err := collector.New(testConfig(), src)
	require.NoError(t, err)

	start, end := window()
	result, err := c.Collect(context.Background(), start, end, nil)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeFailed, result.Outcome)
	assert.Equal(t, models.ReasonFetchExhausted, result.Reason)
	assert.Nil(t, result.Dataset)
	assert.Equal(t, 3, src.FetchCalls(), "exactly max_attempts fetches")
	assert.Equal(t, 3, result.Metric.AttemptCount)
	assert.NotEmpty(t, result.Metric.Errors)

	assert.Equal(t, 1, c.BreakerStats().Failures, "one breaker failure per collection, not per attempt")
}

func TestCollect_ParseErrorNotRetried(t *testing.T) {
	src := collector.NewMockSource()
	src.SetParse(func(raw collector.RawPayload, start, end time.Time) (models.ParsedSeries, error) {
		return nil, errors.New("unexpected payload shape")
	})

	c, err := collector.New(testConfig(), src)
	require.NoError(t, err)

	start, end := window()
	result, err := c.Collect(context.Background(), start, end, nil)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeFailed, result.Outcome)
	assert.Equal(t, models.ReasonParseError, result.Reason)
	assert.Equal(t, 1, src.FetchCalls(), "parse failures must not trigger refetching")
	assert.Equal(t, 1, c.BreakerStats().Failures)
}

func TestCollect_EmptySeriesFails(t *testing.T) {
	src := collector.NewMockSource()
	src.SetParse(func(raw collector.RawPayload, start, end time.Time) (models.ParsedSeries, error) {
		return models.ParsedSeries{}, nil
	})

	c, err := collector.New(testConfig(), src)
	require.NoError(t, err)

	start, end := window()
	result, err := c.Collect(context.Background(), start, end, nil)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeFailed, result.Outcome)
	assert.Equal(t, models.ReasonEmptySeries, result.Reason)
	assert.Equal(t, 1, c.BreakerStats().Failures)
}

func TestCollect_PartialOnNullValues(t *testing.T) {
	src := collector.NewMockSource()
	src.SetParse(func(raw collector.RawPayload, start, end time.Time) (models.ParsedSeries, error) {
		series := models.ParsedSeries{}
		for i := 0; i < 4; i++ {
			series[start.Add(time.Duration(i)*time.Hour)] = models.NewPoint("price", 0.25)
		}
		series[start.Add(4*time.Hour)] = models.NullPoint("price")
		return series, nil
	})

	c, err := collector.New(testConfig(), src)
	require.NoError(t, err)

	start, end := window()
	result, err := c.Collect(context.Background(), start, end, nil)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomePartial, result.Outcome)
	assert.True(t, result.Succeeded())
	require.NotNil(t, result.Dataset)
	assert.Len(t, result.Dataset.Series, 5)
	assert.NotEmpty(t, result.Metric.Warnings)

	// The null survives into the dataset instead of being dropped.
	_, nulls := result.Dataset.Series.ValueCounts()
	assert.Equal(t, 1, nulls)

	// Partial still counts as success for the breaker.
	assert.Equal(t, resilience.StateClosed, c.BreakerStats().State)
	assert.Zero(t, c.BreakerStats().Failures)
}

func TestCollect_BreakerOpenShortCircuits(t *testing.T) {
	src := collector.NewMockSource()
	src.SetFetch(func(ctx context.Context, start, end time.Time, params map[string]string) (collector.RawPayload, error) {
		return nil, errors.New("down")
	})

	cfg := testConfig()
	cfg.CircuitBreaker.FailureThreshold = 2
	c, err := collector.New(cfg, src)
	require.NoError(t, err)

	start, end := window()
	for i := 0; i < 2; i++ {
		result, err := c.Collect(context.Background(), start, end, nil)
		require.NoError(t, err)
		assert.Equal(t, models.ReasonFetchExhausted, result.Reason)
	}
	assert.Equal(t, resilience.StateOpen, c.BreakerStats().State)

	fetchesSoFar := src.FetchCalls()
	result, err := c.Collect(context.Background(), start, end, nil)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeFailed, result.Outcome)
	assert.Equal(t, models.ReasonCircuitOpen, result.Reason)
	assert.Equal(t, fetchesSoFar, src.FetchCalls(), "no adapter call while the breaker is open")
	assert.Zero(t, result.Metric.AttemptCount)
}

func TestCollect_BreakerRecovery(t *testing.T) {
	healthy := false
	src := collector.NewMockSource()
	src.SetFetch(func(ctx context.Context, start, end time.Time, params map[string]string) (collector.RawPayload, error) {
		if !healthy {
			return nil, errors.New("down")
		}
		series := models.ParsedSeries{}
		for i := 0; i < 3; i++ {
			series[start.Add(time.Duration(i)*time.Hour)] = models.NewPoint("price", 0.25)
		}
		return series, nil
	})

	cfg := testConfig()
	cfg.Retry.MaxAttempts = 1
	cfg.CircuitBreaker.FailureThreshold = 1
	cfg.CircuitBreaker.SuccessThreshold = 2
	cfg.CircuitBreaker.Timeout = 20 * time.Millisecond
	c, err := collector.New(cfg, src)
	require.NoError(t, err)

	start, end := window()

	result, _ := c.Collect(context.Background(), start, end, nil)
	assert.Equal(t, models.ReasonFetchExhausted, result.Reason)
	assert.Equal(t, resilience.StateOpen, c.BreakerStats().State)

	result, _ = c.Collect(context.Background(), start, end, nil)
	assert.Equal(t, models.ReasonCircuitOpen, result.Reason)

	time.Sleep(30 * time.Millisecond)
	healthy = true

	// First probe succeeds, breaker stays half-open until the success
	// threshold is met.
	result, _ = c.Collect(context.Background(), start, end, nil)
	assert.Equal(t, models.OutcomeSuccess, result.Outcome)
	assert.Equal(t, resilience.StateHalfOpen, c.BreakerStats().State)

	result, _ = c.Collect(context.Background(), start, end, nil)
	assert.Equal(t, models.OutcomeSuccess, result.Outcome)
	assert.Equal(t, resilience.StateClosed, c.BreakerStats().State)
}

func TestCollect_CancellationIsNotABreakerFailure(t *testing.T) {
	src := collector.NewMockSource()
	src.SetFetch(func(ctx context.Context, start, end time.Time, params map[string]string) (collector.RawPayload, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	c, err := collector.New(testConfig(), src)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start, end := window()
	result, err := c.Collect(ctx, start, end, nil)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeFailed, result.Outcome)
	assert.Equal(t, models.ReasonCancelled, result.Reason)
	assert.Zero(t, c.BreakerStats().Failures, "cancellation says nothing about source health")
	assert.Equal(t, resilience.StateClosed, c.BreakerStats().State)
}

func TestCollect_MetadataOverrides(t *testing.T) {
	src := &stationSource{MockSource: collector.NewMockSource()}

	c, err := collector.New(testConfig(), src)
	require.NoError(t, err)

	start, end := window()
	result, err := c.Collect(context.Background(), start, end, nil)
	require.NoError(t, err)

	require.NotNil(t, result.Dataset)
	assert.Equal(t, "NL01494", result.Dataset.Metadata.Extra["station"])
}

type stationSource struct {
	*collector.MockSource
}

func (s *stationSource) MetadataOverrides(start, end time.Time) map[string]string {
	return map[string]string{"station": "NL01494"}
}

func TestMetricsHistory_EvictionAndOrder(t *testing.T) {
	src := collector.NewMockSource()
	cfg := testConfig()
	cfg.HistorySize = 5
	c, err := collector.New(cfg, src)
	require.NoError(t, err)

	start, end := window()
	for i := 0; i < 7; i++ {
		_, err := c.Collect(context.Background(), start, end, nil)
		require.NoError(t, err)
	}

	metrics := c.Metrics(0)
	require.Len(t, metrics, 5, "ring evicts oldest entries")

	for i := 1; i < len(metrics); i++ {
		assert.False(t, metrics[i].StartedAt.After(metrics[i-1].StartedAt), "newest first")
	}

	assert.Len(t, c.Metrics(2), 2)
}

func TestSuccessRate_CountsOnlyFullSuccess(t *testing.T) {
	failNext := true
	src := collector.NewMockSource()
	src.SetFetch(func(ctx context.Context, start, end time.Time, params map[string]string) (collector.RawPayload, error) {
		if failNext {
			return nil, errors.New("down")
		}
		series := models.ParsedSeries{}
		for i := 0; i < 3; i++ {
			series[start.Add(time.Duration(i)*time.Hour)] = models.NewPoint("price", 0.25)
		}
		return series, nil
	})

	cfg := testConfig()
	cfg.Retry.MaxAttempts = 1
	c, err := collector.New(cfg, src)
	require.NoError(t, err)

	start, end := window()
	_, err = c.Collect(context.Background(), start, end, nil)
	require.NoError(t, err)

	failNext = false
	for i := 0; i < 3; i++ {
		_, err = c.Collect(context.Background(), start, end, nil)
		require.NoError(t, err)
	}

	assert.InDelta(t, 0.75, c.SuccessRate(), 1e-9)
}

func TestCollect_EventsPublished(t *testing.T) {
	sink := &captureSink{}
	cfg := testConfig()
	cfg.Events = sink
	c, err := collector.New(cfg, collector.NewMockSource())
	require.NoError(t, err)

	start, end := window()
	_, err = c.Collect(context.Background(), start, end, nil)
	require.NoError(t, err)

	types := sink.types()
	assert.Contains(t, types, models.EventTypeCollectionStarted)
	assert.Contains(t, types, models.EventTypeCollectionComplete)
}

type captureSink struct {
	mu     sync.Mutex
	events []*models.Event
}

func (s *captureSink) Publish(event *models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *captureSink) types() []models.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.EventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}
