package models

import (
	"sort"
	"time"
)

// Point holds the named scalar values observed at one timestamp.
// A nil value means the source reported the field as null; nulls are
// preserved, never dropped.
type Point map[string]*float64

// NewPoint builds a single-field point, the common case for price series.
func NewPoint(field string, value float64) Point {
	return Point{field: &value}
}

// NullPoint builds a single-field point with a null value.
func NullPoint(field string) Point {
	return Point{field: nil}
}

// NullCount returns how many fields in the point are null.
func (p Point) NullCount() int {
	n := 0
	for _, v := range p {
		if v == nil {
			n++
		}
	}
	return n
}

// ParsedSeries maps a timestamp to the values observed at that instant.
// Keys are not required to be sorted; adapters produce it, the collector
// normalizes and validates it.
type ParsedSeries map[time.Time]Point

// Timestamps returns the series keys in ascending order.
func (s ParsedSeries) Timestamps() []time.Time {
	ts := make([]time.Time, 0, len(s))
	for t := range s {
		ts = append(ts, t)
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i].Before(ts[j]) })
	return ts
}

// ValueCounts returns (total, null) value counts across all points.
func (s ParsedSeries) ValueCounts() (total, nulls int) {
	for _, p := range s {
		total += len(p)
		nulls += p.NullCount()
	}
	return total, nulls
}
