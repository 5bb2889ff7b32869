package timeutil

import (
	"fmt"
	"time"

	"github.com/energydatahub/energyhub/pkg/models"
)

const maxReportedOffsets = 3

// Validate inspects a normalized series and returns whether it is usable
// plus advisory warnings. Only an empty series makes ok false; every
// other finding is a warning the caller may downgrade an outcome on.
// The input is never mutated and Validate never panics.
func Validate(series models.ParsedSeries, loc *time.Location) (bool, []string) {
	var warnings []string

	if len(series) == 0 {
		return false, []string{"no data points collected"}
	}

	malformed := malformedOffsets(series, loc)
	if len(malformed) > 0 {
		warnings = append(warnings, fmt.Sprintf("found %d timestamps with malformed offsets", len(malformed)))
		for i, ts := range malformed {
			if i >= maxReportedOffsets {
				break
			}
			warnings = append(warnings, fmt.Sprintf("malformed offset at %s", ts))
		}
	}

	total, nulls := series.ValueCounts()
	if nulls > 0 {
		warnings = append(warnings, fmt.Sprintf("%d null values out of %d", nulls, total))
	}

	if len(series) < 2 {
		warnings = append(warnings, fmt.Sprintf("insufficient data density: only %d data point collected", len(series)))
	}

	return len(warnings) == 0, warnings
}

// malformedOffsets returns the RFC3339 rendering of every timestamp whose
// offset is not one of the zone's standard or daylight offsets for its
// year. This is the regression guard for the +00:09 offset bug.
func malformedOffsets(series models.ParsedSeries, loc *time.Location) []string {
	var bad []string
	for _, ts := range series.Timestamps() {
		_, off := ts.Zone()
		if !containsOffset(ValidOffsets(loc, ts.Year()), off) {
			bad = append(bad, ts.Format(time.RFC3339))
		}
	}
	return bad
}

func containsOffset(offsets []int, off int) bool {
	for _, o := range offsets {
		if o == off {
			return true
		}
	}
	return false
}
