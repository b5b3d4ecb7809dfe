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
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info")

	log.Debug("hidden")
	log.Warn("No file name found", Context("ObjectService", "findAll"))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "No file name found", rec["msg"])
	assert.Equal(t, []any{"ObjectService", "findAll"}, rec["context"])
}

func TestNop(t *testing.T) {
	assert.False(t, Nop().Enabled(context.Background(), slog.LevelError))
}

func TestRequestIDFromContext(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug").With("component", "test")

	ctx := WithRequestID(context.Background(), "rid-1")
	assert.Equal(t, "rid-1", RequestID(ctx))
	assert.Empty(t, RequestID(context.Background()))

	log.InfoContext(ctx, "with id")
	log.Info("without id")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first, second map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	require.NoError(t, json.Unmarshal(lines[1], &second))
	assert.Equal(t, "rid-1", first["request_id"])
	assert.Equal(t, "test", first["component"])
	assert.NotContains(t, second, "request_id")
}
