package timeutil

import (
	"fmt"
	"strings"
	"time"

	"github.com/energydatahub/energyhub/pkg/models"
)

// DefaultZone is the canonical zone all series are normalized to.
const DefaultZone = "Europe/Amsterdam"

// naiveLayouts are the wall-clock formats sources emit without any zone
// designator. They are interpreted in the target zone, never in UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// awareLayouts carry an explicit offset or zone designator.
var awareLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z07:00",
}

// Normalize converts an already zone-aware timestamp into the target
// zone. Idempotent: normalizing a normalized timestamp is a no-op.
func Normalize(t time.Time, loc *time.Location) time.Time {
	return t.In(loc)
}

// ParseTimestamp parses a source timestamp string into a zone-aware time
// in the target zone. Strings with an offset are converted; strings
// without one are localized with ParseInLocation, which resolves the wall
// clock against the zone's rules. An offset label is never attached to a
// wall clock by hand: that shortcut is what produced +00:09-style offsets
// in production.
func ParseTimestamp(value string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	for _, layout := range awareLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(loc), nil
		}
	}

	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized timestamp format %q", value)
}

// NormalizeSeries returns a copy of the series with every key converted
// to the target zone. The input is never mutated.
func NormalizeSeries(series models.ParsedSeries, loc *time.Location) models.ParsedSeries {
	normalized := make(models.ParsedSeries, len(series))
	for ts, point := range series {
		normalized[Normalize(ts, loc)] = point
	}
	return normalized
}

// ValidOffsets returns the UTC offsets (in seconds) the zone uses during
// the given year: the standard offset and, where observed, the daylight
// offset.
func ValidOffsets(loc *time.Location, year int) []int {
	jan := time.Date(year, time.January, 15, 12, 0, 0, 0, loc)
	jul := time.Date(year, time.July, 15, 12, 0, 0, 0, loc)

	_, janOff := jan.Zone()
	_, julOff := jul.Zone()

	if janOff == julOff {
		return []int{janOff}
	}
	return []int{janOff, julOff}
}
