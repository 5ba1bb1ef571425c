// Package observe provides observability primitives for Calliope:
// OpenTelemetry metrics with a Prometheus exporter bridge so that metrics can
// be scraped via the standard /metrics endpoint.
//
// A package-level default [Metrics] instance ([DefaultMetrics]) is provided
// for convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Calliope metrics.
const meterName = "github.com/calliope-bot/calliope"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// TranscribeDuration tracks end-to-end transcription latency, including
	// retries and queueing on the concurrency semaphore.
	TranscribeDuration metric.Float64Histogram

	// TranscribeRetries counts retry attempts. Use with attribute:
	//   attribute.String("operation", ...)
	TranscribeRetries metric.Int64Counter

	// TranscribeErrors counts failed API attempts. Use with attributes:
	//   attribute.String("operation", ...), attribute.String("kind", ...)
	TranscribeErrors metric.Int64Counter

	// ActiveSessions tracks the number of live recording sessions.
	ActiveSessions metric.Int64UpDownCounter

	// CapturedBytes counts raw PCM bytes captured from voice channels.
	CapturedBytes metric.Int64Counter

	// PublishFailures counts transcripts that could not be delivered to their
	// result channel.
	PublishFailures metric.Int64Counter
}

// transcribeBuckets defines histogram bucket boundaries (in seconds) sized
// for long-running transcription calls.
var transcribeBuckets = []float64{
	0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TranscribeDuration, err = m.Float64Histogram("calliope.transcribe.duration",
		metric.WithDescription("End-to-end transcription latency including retries."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(transcribeBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranscribeRetries, err = m.Int64Counter("calliope.transcribe.retries",
		metric.WithDescription("Total transcription retry attempts by operation."),
	); err != nil {
		return nil, err
	}
	if met.TranscribeErrors, err = m.Int64Counter("calliope.transcribe.errors",
		metric.WithDescription("Total failed transcription attempts by operation and error kind."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("calliope.active_sessions",
		metric.WithDescription("Number of live recording sessions."),
	); err != nil {
		return nil, err
	}
	if met.CapturedBytes, err = m.Int64Counter("calliope.captured_bytes",
		metric.WithDescription("Raw PCM bytes captured from voice channels."),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	if met.PublishFailures, err = m.Int64Counter("calliope.publish.failures",
		metric.WithDescription("Transcripts that could not be posted to their result channel."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordPublishFailure records one undeliverable transcript.
func (m *Metrics) RecordPublishFailure(ctx context.Context, communityID string) {
	m.PublishFailures.Add(ctx, 1,
		metric.WithAttributes(attribute.String("community_id", communityID)),
	)
}
