package models

import "time"

// Outcome classifies one collection attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailed  Outcome = "failed"
)

// FailureReason distinguishes the expected ways a collection can fail so
// dashboards can tell "source unreachable" apart from "breaker rejected".
type FailureReason string

const (
	ReasonNone           FailureReason = ""
	ReasonFetchExhausted FailureReason = "fetch_retries_exhausted"
	ReasonParseError     FailureReason = "parse_error"
	ReasonEmptySeries    FailureReason = "empty_series"
	ReasonCircuitOpen    FailureReason = "circuit_open"
	ReasonCancelled      FailureReason = "cancelled"
)

// CollectionMetric records the outcome of one collect call. Created once,
// never mutated, retained in a bounded per-collector history.
type CollectionMetric struct {
	ID            string        `json:"id"`
	CollectorName string        `json:"collector_name"`
	RangeStart    time.Time     `json:"range_start"`
	RangeEnd      time.Time     `json:"range_end"`
	StartedAt     time.Time     `json:"started_at"`
	EndedAt       time.Time     `json:"ended_at"`
	Duration      time.Duration `json:"duration"`
	Outcome       Outcome       `json:"outcome"`
	Reason        FailureReason `json:"reason,omitempty"`
	AttemptCount  int           `json:"attempt_count"`
	PointCount    int           `json:"point_count"`
	Errors        []string      `json:"errors,omitempty"`
	Warnings      []string      `json:"warnings,omitempty"`
}

// CollectionResult is what a collect call hands back. Expected failure
// modes live in Outcome/Reason, not in Go errors; Dataset is nil when
// Outcome is OutcomeFailed.
type CollectionResult struct {
	Outcome Outcome           `json:"outcome"`
	Reason  FailureReason     `json:"reason,omitempty"`
	Dataset *Dataset          `json:"dataset,omitempty"`
	Metric  *CollectionMetric `json:"metric"`
}

// Succeeded reports whether the result carries a usable dataset.
func (r *CollectionResult) Succeeded() bool {
	return r.Outcome == OutcomeSuccess || r.Outcome == OutcomePartial
}
