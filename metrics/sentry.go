package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryMetrics handles custom metrics for Sentry
type SentryMetrics struct {
	enabled bool
}

// Init configures the Sentry SDK. An empty DSN disables reporting and
// returns a disabled metrics client.
func Init(dsn string) (*SentryMetrics, error) {
	if dsn == "" {
		return &SentryMetrics{enabled: false}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		EnableTracing:    true,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}
	return &SentryMetrics{enabled: true}, nil
}

// Flush drains pending Sentry events before process exit.
func (m *SentryMetrics) Flush() {
	if !m.enabled {
		return
	}
	sentry.Flush(2 * time.Second)
}

// CaptureError reports a compile failure to Sentry.
func (m *SentryMetrics) CaptureError(err error) {
	if !m.enabled || err == nil {
		return
	}
	sentry.CaptureException(err)
}

// RecordCompile records one grammar compilation: duration, emitted event
// count and outcome.
func (m *SentryMetrics) RecordCompile(ctx context.Context, startSymbol string, duration time.Duration, eventCount int, success bool) {
	if !m.enabled {
		return
	}

	if transaction := sentry.TransactionFromContext(ctx); transaction != nil {
		transaction.SetTag("compile.start_symbol", startSymbol)
		transaction.SetTag("compile.events", fmt.Sprintf("%d", eventCount))
		transaction.SetData("compile.events", eventCount)
		transaction.SetData("compile.duration_ms", duration.Milliseconds())
	}

	span := sentry.StartSpan(ctx, "grammar.compile")
	defer span.Finish()

	span.SetTag("start_symbol", startSymbol)
	span.SetTag("success", fmt.Sprintf("%t", success))
	span.SetData("events", eventCount)
	span.SetData("duration_ms", duration.Milliseconds())

	if success {
		span.Status = sentry.SpanStatusOK
	} else {
		span.Status = sentry.SpanStatusInternalError
	}
	span.Description = fmt.Sprintf("Compile: %s", startSymbol)
}

// RecordRender records one piano-roll render of a compiled timeline.
func (m *SentryMetrics) RecordRender(ctx context.Context, path string, duration time.Duration, success bool) {
	if !m.enabled {
		return
	}

	span := sentry.StartSpan(ctx, "timeline.render")
	defer span.Finish()

	span.SetTag("success", fmt.Sprintf("%t", success))
	span.SetData("path", path)
	span.SetData("duration_ms", duration.Milliseconds())

	if success {
		span.Status = sentry.SpanStatusOK
	} else {
		span.Status = sentry.SpanStatusInternalError
	}
	span.Description = fmt.Sprintf("Render: %s", path)
}
