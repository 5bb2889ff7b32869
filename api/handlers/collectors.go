package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/energydatahub/energyhub/internal/analyzer"
	"github.com/energydatahub/energyhub/internal/collector"
	"github.com/energydatahub/energyhub/internal/resilience"
	"github.com/energydatahub/energyhub/pkg/database/queries"
)

// CollectorDirectory is the read side of the orchestrator the handlers
// need: listing registered collectors and looking one up by name.
type CollectorDirectory interface {
	Collectors() []*collector.Collector
	Get(name string) (*collector.Collector, bool)
}

type CollectorHandler struct {
	directory    CollectorDirectory
	metricRepo   *queries.MetricRepository
	health       *analyzer.Analyzer
	defaultLimit int
	maxLimit     int
}

// NewCollectorHandler accepts a nil metricRepo when persistence is
// disabled; history endpoints then return 503.
func NewCollectorHandler(directory CollectorDirectory, metricRepo *queries.MetricRepository, defaultLimit, maxLimit int) *CollectorHandler {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	if maxLimit <= 0 {
		maxLimit = 500
	}
	return &CollectorHandler{
		directory:    directory,
		metricRepo:   metricRepo,
		health:       analyzer.New(analyzer.Config{}),
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

type CollectorSummary struct {
	Name        string              `json:"name"`
	DataType    string              `json:"data_type"`
	Source      string              `json:"source"`
	Timezone    string              `json:"timezone"`
	SuccessRate float64             `json:"success_rate"`
	Breaker     resilience.Snapshot `json:"circuit_breaker"`
}

func (h *CollectorHandler) List(c *gin.Context) {
	collectors := h.directory.Collectors()

	summaries := make([]CollectorSummary, 0, len(collectors))
	for _, col := range collectors {
		summaries = append(summaries, summarize(col))
	}

	c.JSON(http.StatusOK, gin.H{
		"collectors": summaries,
		"count":      len(summaries),
	})
}

func (h *CollectorHandler) Get(c *gin.Context) {
	col, ok := h.directory.Get(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "collector not found"})
		return
	}

	c.JSON(http.StatusOK, summarize(col))
}

// Metrics returns recent collection metrics from the in-memory ring
// buffer, newest first.
func (h *CollectorHandler) Metrics(c *gin.Context) {
	col, ok := h.directory.Get(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "collector not found"})
		return
	}

	limit := h.parseLimit(c)
	metrics := col.Metrics(limit)

	c.JSON(http.StatusOK, gin.H{
		"collector": col.Name(),
		"metrics":   metrics,
		"count":     len(metrics),
	})
}

// MetricsHistory returns persisted metrics from the database, which
// survive restarts unlike the ring buffer.
func (h *CollectorHandler) MetricsHistory(c *gin.Context) {
	if h.metricRepo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence is disabled"})
		return
	}

	col, ok := h.directory.Get(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "collector not found"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	metrics, err := h.metricRepo.Recent(ctx, col.Name(), h.parseLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query metrics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"collector": col.Name(),
		"metrics":   metrics,
		"count":     len(metrics),
	})
}

// Health reports the collector's recent behavior: success ratio,
// failure streaks and a suggested action.
func (h *CollectorHandler) Health(c *gin.Context) {
	col, ok := h.directory.Get(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "collector not found"})
		return
	}

	report := h.health.Analyze(col.Name(), col.Metrics(0))

	c.JSON(http.StatusOK, report)
}

// ResetBreaker force-closes the collector's circuit breaker. Admin only.
func (h *CollectorHandler) ResetBreaker(c *gin.Context) {
	col, ok := h.directory.Get(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "collector not found"})
		return
	}

	col.ResetBreaker()

	c.JSON(http.StatusOK, gin.H{
		"collector":       col.Name(),
		"circuit_breaker": col.BreakerStats(),
	})
}

func (h *CollectorHandler) parseLimit(c *gin.Context) int {
	limit := h.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}
	return limit
}

func summarize(col *collector.Collector) CollectorSummary {
	return CollectorSummary{
		Name:        col.Name(),
		DataType:    col.DataType(),
		Source:      col.SourceName(),
		Timezone:    col.Location().String(),
		SuccessRate: col.SuccessRate(),
		Breaker:     col.BreakerStats(),
	}
}
