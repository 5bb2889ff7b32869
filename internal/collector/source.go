package collector

import (
	"context"
	"time"

	"github.com/energydatahub/energyhub/pkg/models"
)

// RawPayload is whatever a source's fetch step returns. There is no
// shared shape across sources; it lives only within one attempt.
type RawPayload interface{}

// Source is the pair of operations an external API adapter implements.
// The orchestrator owns everything else: retry, breaker, normalization,
// validation, metrics.
type Source interface {
	// FetchRaw retrieves the raw payload for [start, end). Any error is
	// treated as transient and retried; adapters with genuinely
	// non-retryable conditions return a sentinel payload instead and let
	// Parse reject it.
	FetchRaw(ctx context.Context, start, end time.Time, params map[string]string) (RawPayload, error)

	// Parse converts the raw payload into a timestamp-to-values mapping.
	// Must be pure: no I/O. An error here is not retried.
	Parse(raw RawPayload, start, end time.Time) (models.ParsedSeries, error)
}

// MetadataProvider is optionally implemented by sources that enrich the
// dataset metadata (station IDs, resolved coordinates, ...).
type MetadataProvider interface {
	MetadataOverrides(start, end time.Time) map[string]string
}
