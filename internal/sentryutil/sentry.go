// Package sentryutil reports command failures to Sentry. With an empty DSN
// every call is a no-op.
package sentryutil

import (
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/melnicenkovadik/my-tax-calculator/internal/config"
)

// Init configures the global Sentry hub. Errors are logged, never returned.
func Init(cfg config.SentryConfig, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			event.User = sentry.User{}
			event.ServerName = ""
			return event
		},
	})
	if err != nil {
		logger.Warn("sentry init failed", "error", err)
		return
	}
	if cfg.DSN == "" {
		logger.Debug("SENTRY_DSN empty, error reporting disabled")
	}
}

func Flush() { sentry.Flush(2 * time.Second) }

// CaptureError reports err tagged with tags. Nil is ignored.
func CaptureError(err error, tags map[string]string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}
