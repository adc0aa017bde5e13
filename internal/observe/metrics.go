// Package observe provides application-wide observability primitives for
// callaudit: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is wired in by [Setup] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all callaudit metrics.
const meterName = "github.com/hotelcx/callaudit"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// RedactionDuration tracks PII masking latency per transcript.
	RedactionDuration metric.Float64Histogram

	// ScoringDuration tracks rubric evaluation latency per transcript.
	ScoringDuration metric.Float64Histogram

	// CoachDuration tracks AI coaching feedback latency.
	CoachDuration metric.Float64Histogram

	// TranscribeDuration tracks speech-to-text transcription latency.
	TranscribeDuration metric.Float64Histogram

	// --- Counters ---

	// Reviews counts completed reviews. Use with attributes:
	//   attribute.String("outcome", "pass"|"fail"), attribute.String("status", ...)
	Reviews metric.Int64Counter

	// CoachRequests counts coach provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("status", ...)
	CoachRequests metric.Int64Counter

	// --- Error counters ---

	// CoachErrors counts coach provider errors. Use with attribute:
	//   attribute.String("provider", ...)
	CoachErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveReviews tracks the number of reviews currently in flight.
	ActiveReviews metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. [Middleware]
	// records it with method, route and status attributes, where route is the
	// bounded [RouteLabel] of the request path.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Redaction
// and scoring complete in milliseconds while coach calls can take several
// seconds, so the buckets span both regimes.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.RedactionDuration, err = m.Float64Histogram("callaudit.redaction.duration",
		metric.WithDescription("Latency of transcript PII masking."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ScoringDuration, err = m.Float64Histogram("callaudit.scoring.duration",
		metric.WithDescription("Latency of rubric evaluation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CoachDuration, err = m.Float64Histogram("callaudit.coach.duration",
		metric.WithDescription("Latency of AI coaching feedback generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranscribeDuration, err = m.Float64Histogram("callaudit.transcribe.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Reviews, err = m.Int64Counter("callaudit.reviews",
		metric.WithDescription("Total completed reviews by outcome and status."),
	); err != nil {
		return nil, err
	}
	if met.CoachRequests, err = m.Int64Counter("callaudit.coach.requests",
		metric.WithDescription("Total coach provider requests by provider and status."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.CoachErrors, err = m.Int64Counter("callaudit.coach.errors",
		metric.WithDescription("Total coach provider errors by provider."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveReviews, err = m.Int64UpDownCounter("callaudit.active_reviews",
		metric.WithDescription("Number of reviews currently in flight."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("callaudit.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
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

// RecordReview is a convenience method that records a completed review with
// the standard attribute set.
func (m *Metrics) RecordReview(ctx context.Context, outcome, status string) {
	m.Reviews.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("outcome", outcome),
			attribute.String("status", status),
		),
	)
}

// RecordCoachRequest is a convenience method that records a coach provider
// request counter increment with the standard attribute set.
func (m *Metrics) RecordCoachRequest(ctx context.Context, provider, status string) {
	m.CoachRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("status", status),
		),
	)
}

// RecordCoachError is a convenience method that records a coach provider
// error counter increment.
func (m *Metrics) RecordCoachError(ctx context.Context, provider string) {
	m.CoachErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}
