// Package observe provides application-wide observability primitives for
// FieldVoice: OpenTelemetry metrics, distributed tracing, and structured
// logging helpers.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
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

// meterName is the instrumentation scope name used for all FieldVoice metrics.
const meterName = "github.com/crewtrack/fieldvoice"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// InterpretDuration tracks end-to-end transcript interpretation latency.
	// Use with attribute: attribute.String("command_type", ...)
	InterpretDuration metric.Float64Histogram

	// Classifications counts classifier decisions. Use with attribute:
	//   attribute.String("command_type", ...)
	Classifications metric.Int64Counter

	// ParseOutcomes counts parse results. Use with attributes:
	//   attribute.String("command_type", ...), attribute.String("status", ...)
	ParseOutcomes metric.Int64Counter

	// CaptureErrors counts capture failures. Use with attribute:
	//   attribute.String("code", ...)
	CaptureErrors metric.Int64Counter

	// MatchConfidence tracks entity-match confidence scores. Use with
	// attribute: attribute.String("kind", ...) ("project", "task", "activity").
	MatchConfidence metric.Float64Histogram

	// ActiveCaptures tracks the number of in-flight voice captures.
	ActiveCaptures metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds). The
// interpretation pipeline is pure in-memory string work, so the buckets skew
// well below typical RPC latencies.
var latencyBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1,
}

// confidenceBuckets covers the [0, 1] confidence range reported by the
// entity matchers.
var confidenceBuckets = []float64{
	0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.85, 0.9, 0.95, 1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.InterpretDuration, err = m.Float64Histogram("fieldvoice.interpret.duration",
		metric.WithDescription("Latency of transcript interpretation by command type."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Classifications, err = m.Int64Counter("fieldvoice.classify.total",
		metric.WithDescription("Total classifier decisions by command type."),
	); err != nil {
		return nil, err
	}
	if met.ParseOutcomes, err = m.Int64Counter("fieldvoice.parse.total",
		metric.WithDescription("Total parse results by command type and status."),
	); err != nil {
		return nil, err
	}
	if met.CaptureErrors, err = m.Int64Counter("fieldvoice.capture.errors",
		metric.WithDescription("Total capture failures by error code."),
	); err != nil {
		return nil, err
	}
	if met.MatchConfidence, err = m.Float64Histogram("fieldvoice.match.confidence",
		metric.WithDescription("Entity-match confidence scores by entity kind."),
		metric.WithExplicitBucketBoundaries(confidenceBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActiveCaptures, err = m.Int64UpDownCounter("fieldvoice.capture.active",
		metric.WithDescription("Number of in-flight voice captures."),
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

// RecordInterpret records an interpretation latency observation together with
// the parse outcome counter increment.
func (m *Metrics) RecordInterpret(ctx context.Context, commandType, status string, seconds float64) {
	m.InterpretDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("command_type", commandType)),
	)
	m.ParseOutcomes.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("command_type", commandType),
			attribute.String("status", status),
		),
	)
}

// RecordClassification records a classifier decision counter increment.
func (m *Metrics) RecordClassification(ctx context.Context, commandType string) {
	m.Classifications.Add(ctx, 1,
		metric.WithAttributes(attribute.String("command_type", commandType)),
	)
}

// RecordCaptureError records a capture failure counter increment.
func (m *Metrics) RecordCaptureError(ctx context.Context, code string) {
	m.CaptureErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("code", code)),
	)
}

// RecordMatchConfidence records an entity-match confidence observation.
func (m *Metrics) RecordMatchConfidence(ctx context.Context, kind string, confidence float64) {
	m.MatchConfidence.Record(ctx, confidence,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}
