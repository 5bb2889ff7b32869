package models

import "time"

// RunSummary aggregates one scheduled multi-source collection run.
type RunSummary struct {
	ID          string        `json:"id"`
	StartedAt   time.Time     `json:"started_at"`
	EndedAt     time.Time     `json:"ended_at"`
	Duration    time.Duration `json:"duration"`
	SourceCount int           `json:"source_count"`
	Succeeded   int           `json:"succeeded"`
	Partial     int           `json:"partial"`
	Failed      int           `json:"failed"`
	TotalPoints int           `json:"total_points"`
}

// SuccessRatio returns the fraction of sources that produced a dataset.
func (r *RunSummary) SuccessRatio() float64 {
	if r.SourceCount == 0 {
		return 0
	}
	return float64(r.Succeeded+r.Partial) / float64(r.SourceCount)
}
