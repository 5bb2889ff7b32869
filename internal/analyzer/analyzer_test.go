package analyzer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/energydatahub/energyhub/internal/analyzer"
	"github.com/energydatahub/energyhub/pkg/models"
)

// newest-first, like the collector ring buffer returns them
func metricsWith(outcomes ...models.Outcome) []models.CollectionMetric {
	out := make([]models.CollectionMetric, 0, len(outcomes))
	for i, o := range outcomes {
		m := models.CollectionMetric{
			CollectorName: "test",
			Outcome:       o,
			Duration:      time.Second,
			PointCount:    24,
		}
		if o == models.OutcomeFailed {
			m.Reason = models.ReasonFetchExhausted
			m.PointCount = 0
		}
		m.StartedAt = time.Now().Add(-time.Duration(i) * time.Hour)
		out = append(out, m)
	}
	return out
}

func TestAnalyze_NoHistory(t *testing.T) {
	a := analyzer.New(analyzer.Config{})

	report := a.Analyze("test", nil)

	assert.Equal(t, analyzer.StatusUnknown, report.Status)
	assert.Zero(t, report.WindowSize)
	assert.NotEmpty(t, report.Recommendation)
}

func TestAnalyze_Healthy(t *testing.T) {
	a := analyzer.New(analyzer.Config{})

	report := a.Analyze("test", metricsWith(
		models.OutcomeSuccess, models.OutcomeSuccess, models.OutcomePartial, models.OutcomeSuccess,
	))

	assert.Equal(t, analyzer.StatusHealthy, report.Status)
	assert.Equal(t, 3, report.Succeeded)
	assert.Equal(t, 1, report.Partial)
	assert.Zero(t, report.Failed)
	assert.Equal(t, 1.0, report.SuccessRatio)
	assert.Zero(t, report.ConsecutiveFailures)
	assert.Nil(t, report.DegradedSince)
}

func TestAnalyze_DegradedBelowThreshold(t *testing.T) {
	a := analyzer.New(analyzer.Config{DegradedThreshold: 0.8, FailingStreak: 5})

	report := a.Analyze("test", metricsWith(
		models.OutcomeSuccess,
		models.OutcomeFailed,
		models.OutcomeSuccess,
		models.OutcomeFailed,
	))

	assert.Equal(t, analyzer.StatusDegraded, report.Status)
	assert.InDelta(t, 0.5, report.SuccessRatio, 1e-9)
	require.NotNil(t, report.DegradedSince)
}

func TestAnalyze_FailingStreak(t *testing.T) {
	a := analyzer.New(analyzer.Config{FailingStreak: 3})

	report := a.Analyze("test", metricsWith(
		models.OutcomeFailed, models.OutcomeFailed, models.OutcomeFailed,
		models.OutcomeSuccess, models.OutcomeSuccess,
	))

	assert.Equal(t, analyzer.StatusFailing, report.Status)
	assert.Equal(t, 3, report.ConsecutiveFailures)
	assert.Equal(t, string(models.OutcomeFailed), report.LastOutcome)
}

func TestAnalyze_StreakBrokenByOldSuccess(t *testing.T) {
	a := analyzer.New(analyzer.Config{FailingStreak: 3})

	report := a.Analyze("test", metricsWith(
		models.OutcomeFailed, models.OutcomeSuccess, models.OutcomeFailed, models.OutcomeFailed,
	))

	assert.Equal(t, 1, report.ConsecutiveFailures)
	assert.NotEqual(t, analyzer.StatusFailing, report.Status)
}

func TestAnalyze_RecoveryClearsDegradedSince(t *testing.T) {
	a := analyzer.New(analyzer.Config{FailingStreak: 2})

	report := a.Analyze("test", metricsWith(models.OutcomeFailed, models.OutcomeFailed))
	require.Equal(t, analyzer.StatusFailing, report.Status)
	require.NotNil(t, report.DegradedSince)

	report = a.Analyze("test", metricsWith(
		models.OutcomeSuccess, models.OutcomeSuccess, models.OutcomeSuccess, models.OutcomeSuccess,
	))
	assert.Equal(t, analyzer.StatusHealthy, report.Status)
	assert.Nil(t, report.DegradedSince)
}

func TestAnalyze_WindowTruncation(t *testing.T) {
	a := analyzer.New(analyzer.Config{Window: 3})

	report := a.Analyze("test", metricsWith(
		models.OutcomeSuccess, models.OutcomeSuccess, models.OutcomeSuccess,
		models.OutcomeFailed, models.OutcomeFailed, models.OutcomeFailed,
	))

	assert.Equal(t, 3, report.WindowSize)
	assert.Equal(t, analyzer.StatusHealthy, report.Status, "old failures outside the window are ignored")
}

func TestAnalyze_CircuitOpenRecommendation(t *testing.T) {
	a := analyzer.New(analyzer.Config{FailingStreak: 2})

	metrics := metricsWith(models.OutcomeFailed, models.OutcomeFailed, models.OutcomeFailed)
	for i := range metrics {
		metrics[i].Reason = models.ReasonCircuitOpen
	}

	report := a.Analyze("test", metrics)

	assert.Equal(t, analyzer.StatusFailing, report.Status)
	assert.Contains(t, report.Recommendation, "circuit")
}
