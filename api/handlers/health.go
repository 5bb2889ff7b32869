package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/energydatahub/energyhub/pkg/database"
)

type HealthHandler struct {
	db *database.DB
}

// NewHealthHandler accepts a nil db when persistence is disabled; the
// database check is then skipped.
func NewHealthHandler(db *database.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

type HealthResponse struct {
	Status    string              `json:"status"`
	Timestamp string              `json:"timestamp"`
	Checks    map[string]string   `json:"checks,omitempty"`
	Pool      *database.PoolStats `json:"pool,omitempty"`
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	status := "healthy"

	if h.db != nil {
		if err := h.db.HealthCheck(ctx); err != nil {
			checks["database"] = "unhealthy: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "healthy"
		}
	} else {
		checks["database"] = "disabled"
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}

func (h *HealthHandler) Ready(c *gin.Context) {
	resp := HealthResponse{
		Status:    "ready",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := h.db.HealthCheck(ctx); err != nil {
			resp.Status = "not ready"
			resp.Checks = map[string]string{"database": "unreachable: " + err.Error()}
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}

		// A reachable database without the schema is still not ready;
		// -migrate has to run first.
		if ok, err := h.db.SchemaReady(ctx); err != nil || !ok {
			resp.Status = "not ready"
			resp.Checks = map[string]string{"schema": "migrations not applied"}
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}

		stats := h.db.PoolStats()
		resp.Pool = &stats
	}

	c.JSON(http.StatusOK, resp)
}

func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
