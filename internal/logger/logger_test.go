package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melnicenkovadik/my-tax-calculator/internal/calculation"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in    string
		level slog.Level
		ok    bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"", slog.LevelInfo, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"loud", slog.LevelInfo, false},
	}
	for _, tt := range tests {
		level, ok := ParseLevel(tt.in)
		assert.Equal(t, tt.level, level, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestNew_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New("info", &buf)
	l.Debug("hidden")
	l.Info("year saved", "year", 2025)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "year saved", entry["msg"])
	assert.Equal(t, float64(2025), entry["year"])
	assert.NotEmpty(t, entry["time"])
}

func TestNew_InvalidLevelWarns(t *testing.T) {
	var buf bytes.Buffer
	New("loud", &buf)
	assert.Contains(t, buf.String(), "invalid LOG_LEVEL")
}

func TestContext(t *testing.T) {
	var buf bytes.Buffer
	l := New("debug", &buf)

	assert.Same(t, slog.Default(), FromContext(context.Background()))
	assert.Same(t, l, FromContext(ToContext(context.Background(), l)))
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	var adapter calculation.Logger = NewSlogAdapter(New("warn", &buf))

	adapter.Debugf("cache hit for %s", "x")
	adapter.Infof("ignored")
	adapter.Warnf("falling back to defaults for %d", 2025)
	adapter.Errorf("boom")

	out := buf.String()
	assert.NotContains(t, out, "cache hit")
	assert.NotContains(t, out, "ignored")
	assert.Contains(t, out, "falling back to defaults for 2025")
	assert.Contains(t, out, "boom")
}
