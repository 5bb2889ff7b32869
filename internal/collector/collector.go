package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/energydatahub/energyhub/internal/logger"
	"github.com/energydatahub/energyhub/internal/metrics"
	"github.com/energydatahub/energyhub/internal/resilience"
	"github.com/energydatahub/energyhub/internal/timeutil"
	"github.com/energydatahub/energyhub/pkg/models"
	"github.com/energydatahub/energyhub/pkg/validation"
)

// EventSink receives collection lifecycle events. Satisfied by
// events.Publisher; nil disables publishing.
type EventSink interface {
	Publish(event *models.Event)
}

type Config struct {
	// Name identifies the collector in logs, metrics and the API.
	Name string
	// DataType, SourceName and Units describe the data for dataset
	// metadata (e.g. "energy_price", "EnergyZero API v3.0", "EUR/kWh").
	DataType   string
	SourceName string
	Units      string
	// Timezone is the canonical zone series are normalized to. Defaults
	// to Europe/Amsterdam.
	Timezone string

	Retry          resilience.RetryConfig
	CircuitBreaker resilience.CircuitBreakerConfig
	HistorySize    int

	Events EventSink
}

// Collector wraps one source adapter with the uniform collection
// workflow: breaker gate, fetch with retry, parse, normalize, validate,
// record. One instance per external source; instances share nothing.
type Collector struct {
	name       string
	dataType   string
	sourceName string
	units      string
	loc        *time.Location

	source  Source
	retrier *resilience.Retrier
	breaker *resilience.CircuitBreaker
	history *history
	events  EventSink

	// mu serializes collect calls so the gate-check-then-record sequence
	// on the breaker stays totally ordered per instance.
	mu sync.Mutex
}

func New(cfg Config, source Source) (*Collector, error) {
	if source == nil {
		return nil, ErrNilSource
	}
	if err := validation.ValidateCollectorName(cfg.Name); err != nil {
		return nil, err
	}

	tz := cfg.Timezone
	if tz == "" {
		tz = timeutil.DefaultZone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = resilience.DefaultRetryConfig()
	}

	cbCfg := cfg.CircuitBreaker
	cbCfg.Name = cfg.Name
	events := cfg.Events
	userCallback := cbCfg.OnStateChange
	cbCfg.OnStateChange = func(name string, from, to resilience.State) {
		logger.WithCollector(name).Warnf("Circuit breaker %s -> %s", from, to)
		metrics.Get().SetBreakerState(name, int(to))
		if events != nil {
			events.Publish(models.NewEvent(
				models.EventTypeBreakerStateChange,
				name,
				fmt.Sprintf("circuit breaker transitioned from %s to %s", from, to),
			).WithSeverity(models.SeverityWarning))
		}
		if userCallback != nil {
			userCallback(name, from, to)
		}
	}

	return &Collector{
		name:       cfg.Name,
		dataType:   cfg.DataType,
		sourceName: cfg.SourceName,
		units:      cfg.Units,
		loc:        loc,
		source:     source,
		retrier:    resilience.NewRetrier(cfg.Retry),
		breaker:    resilience.NewCircuitBreaker(cbCfg),
		history:    newHistory(cfg.HistorySize),
		events:     events,
	}, nil
}

func (c *Collector) Name() string { return c.name }

func (c *Collector) DataType() string { return c.dataType }

func (c *Collector) SourceName() string { return c.sourceName }

// Location returns the canonical zone this collector normalizes to.
func (c *Collector) Location() *time.Location { return c.loc }

// Collect runs the full workflow for [start, end). Expected failures
// (unreachable API, empty data, open breaker, cancellation) come back in
// the result's outcome; the error return is reserved for contract
// violations.
func (c *Collector) Collect(ctx context.Context, start, end time.Time, params map[string]string) (*models.CollectionResult, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: start=%s end=%s", ErrInvalidRange, start, end)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	id := models.NewCorrelationID()
	startedAt := time.Now()
	log := logger.WithCollection(c.name, id)

	log.Infof("Starting collection: %s to %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	c.publish(models.NewEvent(models.EventTypeCollectionStarted, c.name, "collection started").WithTraceID(id))

	metric := models.CollectionMetric{
		ID:            id,
		CollectorName: c.name,
		RangeStart:    start,
		RangeEnd:      end,
		StartedAt:     startedAt,
		Outcome:       models.OutcomeFailed,
	}

	// Step 1: breaker gate. No adapter call is made when blocked.
	if !c.breaker.Allow() {
		log.Warn("Collection blocked: circuit breaker is open")
		return c.fail(metric, models.ReasonCircuitOpen, resilience.ErrCircuitOpen), nil
	}

	// Step 2: fetch with retry. Every fetch error is retryable.
	var raw RawPayload
	attempts, err := c.retrier.Do(ctx, c.name, func(ctx context.Context) error {
		var fetchErr error
		raw, fetchErr = c.source.FetchRaw(ctx, start, end, params)
		return fetchErr
	})
	metric.AttemptCount = attempts

	if err != nil {
		if isCancellation(err) {
			// Not evidence the source is unhealthy; the breaker does not
			// hear about it.
			log.Warnf("Collection cancelled after %d attempts", attempts)
			return c.fail(metric, models.ReasonCancelled, err), nil
		}
		c.breaker.RecordFailure()
		return c.fail(metric, models.ReasonFetchExhausted, fmt.Errorf("%w: %v", ErrFetchFailed, err)), nil
	}

	// Step 3: parse. Retrying a malformed payload reproduces the same
	// error, so parse failures spend no further attempt budget.
	series, err := c.source.Parse(raw, start, end)
	if err != nil {
		c.breaker.RecordFailure()
		return c.fail(metric, models.ReasonParseError, fmt.Errorf("%w: %v", ErrParseFailed, err)), nil
	}

	// Steps 4-5: normalize to the canonical zone, then validate.
	normalized := timeutil.NormalizeSeries(series, c.loc)
	ok, warnings := timeutil.Validate(normalized, c.loc)
	for _, w := range warnings {
		log.Warn(w)
	}
	metric.Warnings = warnings

	if !ok && len(normalized) == 0 {
		c.breaker.RecordFailure()
		return c.fail(metric, models.ReasonEmptySeries, errors.New("no data points collected")), nil
	}

	// Step 6: build the dataset.
	dataset := &models.Dataset{
		Metadata: c.metadata(start, end, len(normalized)),
		Series:   normalized,
	}

	// Step 7: record outcome.
	c.breaker.RecordSuccess()

	outcome := models.OutcomeSuccess
	eventType := models.EventTypeCollectionComplete
	if len(warnings) > 0 {
		outcome = models.OutcomePartial
		eventType = models.EventTypeCollectionPartial
	}

	metric.Outcome = outcome
	metric.PointCount = len(normalized)
	metric.EndedAt = time.Now()
	metric.Duration = metric.EndedAt.Sub(metric.StartedAt)
	c.history.append(metric)
	metrics.Get().Record(&metric)

	log.Infof("Collection complete: %d data points in %s (outcome: %s)",
		metric.PointCount, metric.Duration.Round(time.Millisecond), outcome)
	c.publish(models.NewEvent(eventType, c.name,
		fmt.Sprintf("collected %d data points", metric.PointCount)).WithTraceID(id).WithData(metric))

	return &models.CollectionResult{
		Outcome: outcome,
		Dataset: dataset,
		Metric:  &metric,
	}, nil
}

// fail finalizes a failed collection: one metric record, one event, no
// dataset.
func (c *Collector) fail(metric models.CollectionMetric, reason models.FailureReason, err error) *models.CollectionResult {
	metric.Outcome = models.OutcomeFailed
	metric.Reason = reason
	metric.EndedAt = time.Now()
	metric.Duration = metric.EndedAt.Sub(metric.StartedAt)
	if err != nil {
		metric.Errors = append(metric.Errors, err.Error())
	}
	c.history.append(metric)
	metrics.Get().Record(&metric)

	logger.WithCollection(c.name, metric.ID).Errorf(
		"Collection failed after %s (reason: %s): %v", metric.Duration.Round(time.Millisecond), reason, err)
	c.publish(models.NewEvent(models.EventTypeCollectionFailed, c.name,
		fmt.Sprintf("collection failed: %s", reason)).WithSeverity(models.SeverityWarning).WithTraceID(metric.ID).WithData(metric))

	return &models.CollectionResult{
		Outcome: models.OutcomeFailed,
		Reason:  reason,
		Metric:  &metric,
	}
}

func (c *Collector) metadata(start, end time.Time, points int) models.DatasetMetadata {
	md := models.DatasetMetadata{
		Collector:   c.name,
		DataType:    c.dataType,
		Source:      c.sourceName,
		Units:       c.units,
		RangeStart:  start,
		RangeEnd:    end,
		PointCount:  points,
		GeneratedAt: time.Now(),
	}
	if provider, ok := c.source.(MetadataProvider); ok {
		md.Extra = provider.MetadataOverrides(start, end)
	}
	return md
}

func (c *Collector) publish(event *models.Event) {
	if c.events != nil {
		c.events.Publish(event)
	}
}

// Metrics returns up to limit recent collection metrics, newest first.
func (c *Collector) Metrics(limit int) []models.CollectionMetric {
	return c.history.recent(limit)
}

// SuccessRate is computed over the retained metrics window; partial
// collections do not count as successes.
func (c *Collector) SuccessRate() float64 {
	return c.history.successRate()
}

func (c *Collector) BreakerStats() resilience.Snapshot {
	return c.breaker.Stats()
}

func (c *Collector) ResetBreaker() {
	c.breaker.Reset()
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
