package models

import "time"

// DatasetMetadata is the closed set of fields every dataset carries.
// Source-specific additions go in Extra, not into new dynamic keys.
type DatasetMetadata struct {
	Collector   string            `json:"collector"`
	DataType    string            `json:"data_type"`
	Source      string            `json:"source"`
	Units       string            `json:"units"`
	RangeStart  time.Time         `json:"range_start"`
	RangeEnd    time.Time         `json:"range_end"`
	PointCount  int               `json:"point_count"`
	GeneratedAt time.Time         `json:"generated_at"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// Dataset is the canonical output of one successful (or partial)
// collection. Immutable after creation; ownership passes to the caller.
type Dataset struct {
	Metadata DatasetMetadata `json:"metadata"`
	Series   ParsedSeries    `json:"series"`
}
