package timeutil_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/energydatahub/energyhub/internal/timeutil"
	"github.com/energydatahub/energyhub/pkg/models"
)

func amsterdam(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(timeutil.DefaultZone)
	require.NoError(t, err)
	return loc
}

func TestParseTimestamp_NaiveWinterGetsStandardOffset(t *testing.T) {
	loc := amsterdam(t)

	ts, err := timeutil.ParseTimestamp("2024-01-15 12:00:00", loc)
	require.NoError(t, err)

	_, offset := ts.Zone()
	assert.Equal(t, 3600, offset, "CET is UTC+1")
	assert.Equal(t, 12, ts.Hour(), "wall clock must be preserved for naive input")
}

func TestParseTimestamp_NaiveSummerGetsDaylightOffset(t *testing.T) {
	loc := amsterdam(t)

	ts, err := timeutil.ParseTimestamp("2024-07-15T12:00:00", loc)
	require.NoError(t, err)

	_, offset := ts.Zone()
	assert.Equal(t, 7200, offset, "CEST is UTC+2")
	assert.Equal(t, 12, ts.Hour())
}

func TestParseTimestamp_AwareInputIsConverted(t *testing.T) {
	loc := amsterdam(t)

	ts, err := timeutil.ParseTimestamp("2024-07-15T12:00:00Z", loc)
	require.NoError(t, err)

	// Same instant, different wall clock.
	assert.Equal(t, 14, ts.Hour())
	assert.True(t, ts.Equal(time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)))
}

func TestParseTimestamp_OffsetInputKeepsInstant(t *testing.T) {
	loc := amsterdam(t)

	ts, err := timeutil.ParseTimestamp("2024-07-15T14:00:00+02:00", loc)
	require.NoError(t, err)

	assert.True(t, ts.Equal(time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)))
}

func TestParseTimestamp_Formats(t *testing.T) {
	loc := amsterdam(t)

	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"date only", "2024-03-01", true},
		{"minute precision", "2024-03-01 10:30", true},
		{"t separator minute precision", "2024-03-01T10:30", true},
		{"rfc3339 nano", "2024-03-01T10:30:00.123456789Z", true},
		{"empty", "", false},
		{"whitespace", "   ", false},
		{"garbage", "not-a-timestamp", false},
		{"slashes", "2024/03/01 10:30", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := timeutil.ParseTimestamp(tt.input, loc)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	loc := amsterdam(t)

	utc := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	once := timeutil.Normalize(utc, loc)
	twice := timeutil.Normalize(once, loc)

	assert.True(t, once.Equal(utc))
	assert.Equal(t, once, twice)
}

func TestNormalize_SpringForwardGap(t *testing.T) {
	loc := amsterdam(t)

	// 2024-03-31 02:30 does not exist in Amsterdam; the zone database
	// resolves it rather than panicking.
	ts, err := timeutil.ParseTimestamp("2024-03-31 02:30:00", loc)
	require.NoError(t, err)

	_, offset := ts.Zone()
	assert.Contains(t, []int{3600, 7200}, offset)
}

func TestNormalizeSeries_PreservesInstantsAndValues(t *testing.T) {
	loc := amsterdam(t)

	utc1 := time.Date(2024, 7, 15, 10, 0, 0, 0, time.UTC)
	utc2 := time.Date(2024, 7, 15, 11, 0, 0, 0, time.UTC)
	series := models.ParsedSeries{
		utc1: models.NewPoint("price", 0.25),
		utc2: models.NullPoint("price"),
	}

	normalized := timeutil.NormalizeSeries(series, loc)

	require.Len(t, normalized, 2)
	for ts := range normalized {
		assert.Equal(t, loc, ts.Location())
	}
	assert.Equal(t, series[utc1], normalized[utc1.In(loc)])
	assert.Equal(t, series[utc2], normalized[utc2.In(loc)])

	// Input untouched.
	assert.Equal(t, time.UTC, series.Timestamps()[0].Location())
}

func TestValidOffsets_Amsterdam(t *testing.T) {
	loc := amsterdam(t)

	offsets := timeutil.ValidOffsets(loc, 2024)
	assert.ElementsMatch(t, []int{3600, 7200}, offsets)
}

func TestValidOffsets_ZoneWithoutDST(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	offsets := timeutil.ValidOffsets(loc, 2024)
	assert.Equal(t, []int{9 * 3600}, offsets)
}
