// Package report forwards worker and upstream failures to Sentry.
package report

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// Reporter captures errors when a DSN is configured and is a no-op otherwise,
// so callers never have to branch on whether error reporting is enabled.
type Reporter struct {
	enabled bool
}

// New initializes Sentry with the given DSN. An empty DSN returns a disabled
// reporter and no error.
func New(dsn string) (*Reporter, error) {
	if dsn == "" {
		return &Reporter{}, nil
	}
	err := sentry.Init(sentry.ClientOptions{Dsn: dsn})
	if err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}
	return &Reporter{enabled: true}, nil
}

// Capture reports err. Nil errors and disabled reporters are ignored.
func (r *Reporter) Capture(err error) {
	if r == nil || !r.enabled || err == nil {
		return
	}
	sentry.CaptureException(err)
}

// Flush waits for buffered events to be sent; call it on shutdown.
func (r *Reporter) Flush(timeout time.Duration) {
	if r == nil || !r.enabled {
		return
	}
	sentry.Flush(timeout)
}
