package logger_test

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/energydatahub/energyhub/internal/logger"
)

// capture redirects log output into a buffer for the duration of a test.
func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() {
		logger.SetOutput(os.Stdout)
		logger.Setup("info", "production")
	})
	return &buf
}

func TestSetup_LevelFiltering(t *testing.T) {
	buf := capture(t)
	logger.Setup("warn", "production")

	logger.Info("below threshold")
	logger.Warn("at threshold")

	out := buf.String()
	assert.NotContains(t, out, "below threshold")
	assert.Contains(t, out, "at threshold")
}

func TestSetup_BadLevelFallsBackToInfo(t *testing.T) {
	buf := capture(t)
	logger.Setup("shouting", "production")

	logger.Debug("too fine")
	logger.Info("visible")

	out := buf.String()
	assert.NotContains(t, out, "too fine")
	assert.Contains(t, out, "visible")
}

func TestWithCollectionFields(t *testing.T) {
	buf := capture(t)
	logger.Setup("info", "production")

	logger.WithCollection("energyzero", "abc123").Info("collected")

	out := buf.String()
	assert.Contains(t, out, `"collector":"energyzero"`)
	assert.Contains(t, out, `"collection_id":"abc123"`)
}

func TestTraceIDContext(t *testing.T) {
	ctx := logger.WithTraceID(context.Background(), "trace-7")
	assert.Equal(t, "trace-7", logger.TraceIDFromContext(ctx))
	assert.Empty(t, logger.TraceIDFromContext(context.Background()))

	buf := capture(t)
	logger.Setup("info", "production")

	logger.InfoCtx(ctx, "with trace")
	assert.Contains(t, buf.String(), `"trace_id":"trace-7"`)
}
