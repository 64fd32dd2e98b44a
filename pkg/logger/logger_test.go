package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}

func TestFromContext_AttachesFields(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "debug", "json")
	t.Cleanup(func() { InitWithWriter(&bytes.Buffer{}, "info", "text") })

	ctx := WithContext(context.Background(), RequestIDKey, "req-1")
	ctx = WithContext(ctx, HistoryIDKey, "h-1")
	Warn(ctx, "history write slow", "backend", "redis")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "history write slow", line["msg"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "h-1", line["history_id"])
	assert.Equal(t, "redis", line["backend"])
	assert.NotContains(t, line, "trace_id")
}

func TestError_AppendsErrorField(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "info", "json")
	t.Cleanup(func() { InitWithWriter(&bytes.Buffer{}, "info", "text") })

	Error(context.Background(), "failed", assert.AnError)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, assert.AnError.Error(), line["error"])
	assert.Equal(t, "ERROR", line["level"])
}
