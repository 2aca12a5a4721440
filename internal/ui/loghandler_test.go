package ui_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/burn/internal/ui"
)

// sessionLogger mirrors the CLI setup: terse text on the terminal and a
// full JSON log file.
func sessionLogger(stderr, file *bytes.Buffer) *slog.Logger {
	return slog.New(ui.NewMultiHandler(
		slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)).With("session", "3f1c")
}

func decodeLines(t *testing.T, b *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	dec := json.NewDecoder(b)
	for dec.More() {
		var rec map[string]any
		require.NoError(t, dec.Decode(&rec))
		out = append(out, rec)
	}
	return out
}

func TestMultiHandler_SplitsByLevel(t *testing.T) {
	t.Parallel()

	var stderr, file bytes.Buffer
	logger := sessionLogger(&stderr, &file)
	logger.Debug("chunk written", "device", "/dev/sdb")
	logger.Warn("device retired", "device", "/dev/sdc", "error", "input/output error")

	assert.NotContains(t, stderr.String(), "chunk written")
	assert.Contains(t, stderr.String(), "device retired")
	assert.Contains(t, stderr.String(), "session=3f1c")

	recs := decodeLines(t, &file)
	require.Len(t, recs, 2)
	assert.Equal(t, "chunk written", recs[0]["msg"])
	assert.Equal(t, "/dev/sdc", recs[1]["device"])
	assert.Equal(t, "3f1c", recs[1]["session"])
}

func TestMultiHandler_Enabled(t *testing.T) {
	t.Parallel()

	m := ui.NewMultiHandler(
		slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	ctx := context.Background()

	assert.False(t, m.Enabled(ctx, slog.LevelInfo))
	assert.True(t, m.Enabled(ctx, slog.LevelWarn))
	assert.True(t, m.Enabled(ctx, slog.LevelError))
	assert.False(t, ui.NewMultiHandler().Enabled(ctx, slog.LevelError))
}

func TestMultiHandler_WithGroup(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	m := ui.NewMultiHandler(slog.NewJSONHandler(&buf, nil))
	slog.New(m.WithGroup("burn")).Info("event", "type", "DeviceFinished")

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 1)
	group, ok := recs[0]["burn"].(map[string]any)
	require.True(t, ok, "expected group burn in %v", recs[0])
	assert.Equal(t, "DeviceFinished", group["type"])
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error {
	return errors.New("disk full")
}

func TestMultiHandler_JoinsErrorsAndKeepsWriting(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	text := slog.NewTextHandler(&buf, nil)
	m := ui.NewMultiHandler(failingHandler{text}, text)

	rec := slog.NewRecord(time.Now(), slog.LevelInfo, "session summary", 0)
	err := m.Handle(context.Background(), rec)

	assert.ErrorContains(t, err, "disk full")
	assert.Contains(t, buf.String(), "session summary")
}
