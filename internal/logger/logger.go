// Package logger builds the structured slog logger used across the tool.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

type contextKey string

const loggerKey contextKey = "logger"

// ParseLevel maps a LOG_LEVEL value to a slog level. Unknown values map to
// info and report false.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// New returns a JSON logger writing to w at the given level.
func New(levelStr string, w io.Writer) *slog.Logger {
	level, ok := ParseLevel(levelStr)

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format(time.RFC3339))
				}
			}
			return a
		},
	}

	l := slog.New(slog.NewJSONHandler(w, opts))
	if !ok {
		l.Warn("invalid LOG_LEVEL, defaulting to info", "configuredLevel", levelStr)
	}
	return l
}

// FromContext retrieves a logger from ctx, or slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// ToContext embeds l into ctx.
func ToContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// SlogAdapter exposes a slog logger through the printf-style interface the
// calculation engine expects.
type SlogAdapter struct {
	L *slog.Logger
}

// NewSlogAdapter wraps l. Nil wraps slog.Default.
func NewSlogAdapter(l *slog.Logger) SlogAdapter {
	if l == nil {
		l = slog.Default()
	}
	return SlogAdapter{L: l}
}

func (a SlogAdapter) Debugf(format string, args ...any) { a.log(slog.LevelDebug, format, args) }
func (a SlogAdapter) Infof(format string, args ...any)  { a.log(slog.LevelInfo, format, args) }
func (a SlogAdapter) Warnf(format string, args ...any)  { a.log(slog.LevelWarn, format, args) }
func (a SlogAdapter) Errorf(format string, args ...any) { a.log(slog.LevelError, format, args) }

func (a SlogAdapter) log(level slog.Level, format string, args []any) {
	ctx := context.Background()
	if !a.L.Enabled(ctx, level) {
		return
	}
	a.L.Log(ctx, level, fmt.Sprintf(format, args...))
}
