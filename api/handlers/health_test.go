package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/energydatahub/energyhub/api/handlers"
)

func healthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := handlers.NewHealthHandler(nil)

	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/health/ready", h.Ready)
	r.GET("/health/live", h.Live)
	return r
}

func getJSON(t *testing.T, r *gin.Engine, path string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestHealth_WithoutDatabase(t *testing.T) {
	code, body := getJSON(t, healthRouter(), "/health")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])

	checks, ok := body["checks"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "disabled", checks["database"])
}

func TestReady_WithoutDatabase(t *testing.T) {
	code, body := getJSON(t, healthRouter(), "/health/ready")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", body["status"])

	// Pool stats only appear when persistence is enabled.
	_, hasPool := body["pool"]
	assert.False(t, hasPool)
}

func TestLive(t *testing.T) {
	code, body := getJSON(t, healthRouter(), "/health/live")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alive", body["status"])
}
