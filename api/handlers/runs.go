package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/energydatahub/energyhub/internal/logger"
	"github.com/energydatahub/energyhub/pkg/database/queries"
	"github.com/energydatahub/energyhub/pkg/models"
)

// RunTrigger starts a collection run across every registered collector.
// Satisfied by the orchestrator.
type RunTrigger interface {
	RunAll(ctx context.Context) (*models.RunSummary, []*models.CollectionResult)
}

type RunHandler struct {
	trigger      RunTrigger
	runRepo      *queries.RunRepository
	eventRepo    *queries.EventRepository
	defaultLimit int
	maxLimit     int
}

func NewRunHandler(trigger RunTrigger, runRepo *queries.RunRepository, eventRepo *queries.EventRepository, defaultLimit, maxLimit int) *RunHandler {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	if maxLimit <= 0 {
		maxLimit = 500
	}
	return &RunHandler{
		trigger:      trigger,
		runRepo:      runRepo,
		eventRepo:    eventRepo,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// Trigger starts a run in the background and returns immediately. The
// run's own timeout bounds its duration. Admin only.
func (h *RunHandler) Trigger(c *gin.Context) {
	go func() {
		summary, _ := h.trigger.RunAll(context.Background())
		logger.WithField("run_id", summary.ID).Info("Manually triggered run finished")
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "run started"})
}

func (h *RunHandler) ListRuns(c *gin.Context) {
	if h.runRepo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence is disabled"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	runs, err := h.runRepo.Recent(ctx, h.parseLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query runs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"count": len(runs),
	})
}

func (h *RunHandler) ListEvents(c *gin.Context) {
	if h.eventRepo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence is disabled"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	events, err := h.eventRepo.Recent(ctx, h.parseLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}

func (h *RunHandler) parseLimit(c *gin.Context) int {
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
