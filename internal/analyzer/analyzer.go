package analyzer

import (
	"time"

	"github.com/energydatahub/energyhub/internal/logger"
	"github.com/energydatahub/energyhub/pkg/models"
)

type Config struct {
	// Window is the number of recent collections considered per report.
	Window int
	// DegradedThreshold marks a collector degraded when its success ratio
	// over the window drops below it.
	DegradedThreshold float64
	// FailingStreak marks a collector failing after this many consecutive
	// failed collections.
	FailingStreak int
	// SlowThreshold flags collections whose average duration exceeds it.
	SlowThreshold time.Duration
}

type HealthStatus string

const (
	StatusHealthy  HealthStatus = "healthy"
	StatusDegraded HealthStatus = "degraded"
	StatusFailing  HealthStatus = "failing"
	StatusUnknown  HealthStatus = "unknown"
)

// Report summarizes a collector's recent behavior for operators.
type Report struct {
	Collector           string        `json:"collector"`
	Status              HealthStatus  `json:"status"`
	WindowSize          int           `json:"window_size"`
	Succeeded           int           `json:"succeeded"`
	Partial             int           `json:"partial"`
	Failed              int           `json:"failed"`
	SuccessRatio        float64       `json:"success_ratio"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	AvgDuration         time.Duration `json:"avg_duration_ms"`
	AvgPointCount       float64       `json:"avg_point_count"`
	LastOutcome         string        `json:"last_outcome,omitempty"`
	LastReason          string        `json:"last_reason,omitempty"`
	DegradedSince       *time.Time    `json:"degraded_since,omitempty"`
	Recommendation      string        `json:"recommendation"`
}

// Analyzer derives health reports from collection metric history.
type Analyzer struct {
	config  Config
	tracker *DegradationTracker
}

func New(cfg Config) *Analyzer {
	if cfg.Window == 0 {
		cfg.Window = 20
	}
	if cfg.DegradedThreshold == 0 {
		cfg.DegradedThreshold = 0.8
	}
	if cfg.FailingStreak == 0 {
		cfg.FailingStreak = 3
	}
	if cfg.SlowThreshold == 0 {
		cfg.SlowThreshold = 30 * time.Second
	}

	return &Analyzer{
		config:  cfg,
		tracker: NewDegradationTracker(),
	}
}

// Analyze expects metrics ordered newest first, as the collector's ring
// buffer returns them.
func (a *Analyzer) Analyze(collector string, metrics []models.CollectionMetric) *Report {
	if len(metrics) > a.config.Window {
		metrics = metrics[:a.config.Window]
	}

	report := &Report{
		Collector:  collector,
		Status:     StatusUnknown,
		WindowSize: len(metrics),
	}

	if len(metrics) == 0 {
		report.Recommendation = "no collections recorded yet"
		return report
	}

	var totalDuration time.Duration
	var totalPoints int
	streakBroken := false
	for _, m := range metrics {
		switch m.Outcome {
		case models.OutcomeSuccess:
			report.Succeeded++
		case models.OutcomePartial:
			report.Partial++
		default:
			report.Failed++
		}
		if m.Outcome == models.OutcomeFailed && !streakBroken {
			report.ConsecutiveFailures++
		} else {
			streakBroken = true
		}
		totalDuration += m.Duration
		totalPoints += m.PointCount
	}

	report.SuccessRatio = float64(report.Succeeded+report.Partial) / float64(len(metrics))
	report.AvgDuration = totalDuration / time.Duration(len(metrics))
	report.AvgPointCount = float64(totalPoints) / float64(len(metrics))
	report.LastOutcome = string(metrics[0].Outcome)
	report.LastReason = string(metrics[0].Reason)

	report.Status = a.evaluate(report)
	report.Recommendation = a.recommend(report)

	a.tracker.Update(collector, report)

	logger.WithCollector(collector).Debugf(
		"Health: %s (ratio=%.2f, streak=%d)", report.Status, report.SuccessRatio, report.ConsecutiveFailures)

	return report
}

func (a *Analyzer) evaluate(r *Report) HealthStatus {
	switch {
	case r.ConsecutiveFailures >= a.config.FailingStreak:
		return StatusFailing
	case r.SuccessRatio < a.config.DegradedThreshold:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}

func (a *Analyzer) recommend(r *Report) string {
	switch {
	case r.Status == StatusFailing && r.LastReason == string(models.ReasonCircuitOpen):
		return "source unavailable, circuit open; verify the upstream API before resetting the breaker"
	case r.Status == StatusFailing:
		return "check source connectivity and credentials"
	case r.Status == StatusDegraded && r.Partial > r.Succeeded:
		return "source returns incomplete data; inspect validation warnings"
	case r.Status == StatusDegraded:
		return "monitor closely"
	case r.AvgDuration > a.config.SlowThreshold:
		return "collections are slow; consider lowering the fetch timeout"
	default:
		return "no action needed"
	}
}
