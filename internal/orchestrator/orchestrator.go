package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/energydatahub/energyhub/internal/collector"
	"github.com/energydatahub/energyhub/internal/events"
	"github.com/energydatahub/energyhub/internal/logger"
	"github.com/energydatahub/energyhub/pkg/database/queries"
	"github.com/energydatahub/energyhub/pkg/models"
)

type Config struct {
	// Interval between scheduled runs.
	Interval time.Duration
	// WindowBehind/WindowAhead define the collected range relative to the
	// run's start: [now-WindowBehind, now+WindowAhead).
	WindowBehind time.Duration
	WindowAhead  time.Duration
	// RunTimeout bounds one multi-source run.
	RunTimeout time.Duration
}

// DatasetHandler receives every collected dataset. The publishing layer
// plugs in here; the orchestrator itself never inspects dataset contents.
type DatasetHandler func(dataset *models.Dataset)

// Orchestrator owns the registry of collectors and runs them together.
// Sources are independent: one source's outage never aborts a run.
type Orchestrator struct {
	cfg        Config
	publisher  *events.Publisher
	metricRepo *queries.MetricRepository
	runRepo    *queries.RunRepository
	onDataset  DatasetHandler

	mu         sync.RWMutex
	collectors map[string]*collector.Collector
}

func New(cfg Config, publisher *events.Publisher) *Orchestrator {
	if cfg.Interval <= 0 {
		cfg.Interval = 1 * time.Hour
	}
	if cfg.WindowAhead <= 0 {
		cfg.WindowAhead = 24 * time.Hour
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 10 * time.Minute
	}

	return &Orchestrator{
		cfg:        cfg,
		publisher:  publisher,
		collectors: make(map[string]*collector.Collector),
	}
}

// SetRepositories wires the optional Postgres persistence for metrics and
// run summaries.
func (o *Orchestrator) SetRepositories(metrics *queries.MetricRepository, runs *queries.RunRepository) {
	o.metricRepo = metrics
	o.runRepo = runs
}

// SetDatasetHandler wires the downstream consumer of collected datasets.
func (o *Orchestrator) SetDatasetHandler(h DatasetHandler) {
	o.onDataset = h
}

func (o *Orchestrator) Register(c *collector.Collector) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.collectors[c.Name()]; exists {
		return fmt.Errorf("collector %s already registered", c.Name())
	}
	o.collectors[c.Name()] = c
	logger.WithCollector(c.Name()).Info("Collector registered")
	return nil
}

func (o *Orchestrator) Get(name string) (*collector.Collector, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	c, ok := o.collectors[name]
	return c, ok
}

// Collectors returns the registered collectors sorted by name.
func (o *Orchestrator) Collectors() []*collector.Collector {
	o.mu.RLock()
	defer o.mu.RUnlock()

	names := make([]string, 0, len(o.collectors))
	for name := range o.collectors {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*collector.Collector, 0, len(names))
	for _, name := range names {
		out = append(out, o.collectors[name])
	}
	return out
}

// RunAll collects the configured window from every registered source
// concurrently and returns the aggregated summary. Failed sources are
// reflected in the summary, never in an error: a scheduled run degrades
// gracefully.
func (o *Orchestrator) RunAll(ctx context.Context) (*models.RunSummary, []*models.CollectionResult) {
	collectors := o.Collectors()

	now := time.Now()
	start := now.Add(-o.cfg.WindowBehind).Truncate(time.Hour)
	end := now.Add(o.cfg.WindowAhead).Truncate(time.Hour)

	runID := models.NewCorrelationID()
	summary := &models.RunSummary{
		ID:          runID,
		StartedAt:   now,
		SourceCount: len(collectors),
	}

	logger.WithField("run_id", runID).Infof("Starting collection run for %d sources: %s to %s",
		len(collectors), start.Format(time.RFC3339), end.Format(time.RFC3339))
	if o.publisher != nil {
		o.publisher.RunStarted(runID, len(collectors))
	}

	runCtx, cancel := context.WithTimeout(ctx, o.cfg.RunTimeout)
	defer cancel()

	results := make([]*models.CollectionResult, len(collectors))
	var wg sync.WaitGroup
	for i, c := range collectors {
		wg.Add(1)
		go func(i int, c *collector.Collector) {
			defer wg.Done()

			result, err := c.Collect(runCtx, start, end, nil)
			if err != nil {
				// Contract violations only; report and move on.
				logger.WithCollector(c.Name()).Errorf("Collect rejected: %v", err)
				if o.publisher != nil {
					o.publisher.Error(c.Name(), "collect rejected", err)
				}
				return
			}
			results[i] = result
		}(i, c)
	}
	wg.Wait()

	for _, result := range results {
		if result == nil {
			summary.Failed++
			continue
		}
		switch result.Outcome {
		case models.OutcomeSuccess:
			summary.Succeeded++
		case models.OutcomePartial:
			summary.Partial++
		default:
			summary.Failed++
		}
		if result.Dataset != nil {
			summary.TotalPoints += result.Dataset.Metadata.PointCount
			if o.onDataset != nil {
				o.onDataset(result.Dataset)
			}
		}
	}

	summary.EndedAt = time.Now()
	summary.Duration = summary.EndedAt.Sub(summary.StartedAt)

	logger.WithField("run_id", runID).Infof(
		"Collection run complete in %s: %d succeeded, %d partial, %d failed, %d points",
		summary.Duration.Round(time.Millisecond),
		summary.Succeeded, summary.Partial, summary.Failed, summary.TotalPoints)
	if o.publisher != nil {
		o.publisher.RunComplete(summary)
	}

	o.persist(ctx, summary, results)
	return summary, results
}

func (o *Orchestrator) persist(ctx context.Context, summary *models.RunSummary, results []*models.CollectionResult) {
	if o.runRepo == nil && o.metricRepo == nil {
		return
	}

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if o.runRepo != nil {
		if err := o.runRepo.Insert(persistCtx, summary); err != nil {
			logger.Errorf("Failed to persist run summary %s: %v", summary.ID, err)
		}
	}
	if o.metricRepo != nil {
		for _, result := range results {
			if result == nil {
				continue
			}
			if err := o.metricRepo.Insert(persistCtx, result.Metric); err != nil {
				logger.Errorf("Failed to persist metric %s: %v", result.Metric.ID, err)
			}
		}
	}
}
