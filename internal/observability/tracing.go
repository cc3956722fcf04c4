package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Tracer returns a tracer for the given name
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// StartSpan starts a new span from context
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, opts...)
}

// StartServiceSpan starts a span for service operations
func StartServiceSpan(ctx context.Context, service, operation string) (context.Context, trace.Span) {
	return StartSpan(ctx, fmt.Sprintf("%s.%s", service, operation),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("service.component", service),
			attribute.String("service.operation", operation),
		),
	)
}

// RecordError records an error on the span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSuccess marks the span as successful
func SetSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// AddEvent adds an event to the span
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SyncMetrics holds sync-engine metrics
type SyncMetrics struct {
	syncRuns     metric.Int64Counter
	syncDuration metric.Float64Histogram
	filesAdded   metric.Int64Counter
	filesRemoved metric.Int64Counter
	fileErrors   metric.Int64Counter
}

// NewSyncMetrics creates sync metrics instruments
func NewSyncMetrics() (*SyncMetrics, error) {
	meter := otel.Meter(instrumentationName)

	syncRuns, err := meter.Int64Counter(
		"photolib.sync.runs",
		metric.WithDescription("Total number of sync passes"),
		metric.WithUnit("{runs}"),
	)
	if err != nil {
		return nil, err
	}

	syncDuration, err := meter.Float64Histogram(
		"photolib.sync.duration",
		metric.WithDescription("Sync pass duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	filesAdded, err := meter.Int64Counter(
		"photolib.sync.files_added",
		metric.WithDescription("Total number of records added by sync"),
		metric.WithUnit("{files}"),
	)
	if err != nil {
		return nil, err
	}

	filesRemoved, err := meter.Int64Counter(
		"photolib.sync.files_removed",
		metric.WithDescription("Total number of records removed by sync"),
		metric.WithUnit("{files}"),
	)
	if err != nil {
		return nil, err
	}

	fileErrors, err := meter.Int64Counter(
		"photolib.sync.file_errors",
		metric.WithDescription("Total number of per-file sync errors"),
		metric.WithUnit("{errors}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		syncRuns:     syncRuns,
		syncDuration: syncDuration,
		filesAdded:   filesAdded,
		filesRemoved: filesRemoved,
		fileErrors:   fileErrors,
	}, nil
}

// RecordSyncRun records the outcome of one sync pass
func (m *SyncMetrics) RecordSyncRun(ctx context.Context, providerID string, duration time.Duration, added, removed, errors int, success bool) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("provider_id", providerID),
		attribute.Bool("success", success),
	}
	m.syncRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.syncDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	m.filesAdded.Add(ctx, int64(added), metric.WithAttributes(attrs...))
	m.filesRemoved.Add(ctx, int64(removed), metric.WithAttributes(attrs...))
	m.fileErrors.Add(ctx, int64(errors), metric.WithAttributes(attrs...))
}

// CacheMetrics holds content-cache metrics
type CacheMetrics struct {
	hits       metric.Int64Counter
	misses     metric.Int64Counter
	writes     metric.Int64Counter
	evictions  metric.Int64Counter
	bytesSaved metric.Int64UpDownCounter
}

// NewCacheMetrics creates content-cache metrics instruments
func NewCacheMetrics() (*CacheMetrics, error) {
	meter := otel.Meter(instrumentationName)

	hits, err := meter.Int64Counter(
		"photolib.cache.hits",
		metric.WithDescription("Total number of cache hits"),
		metric.WithUnit("{lookups}"),
	)
	if err != nil {
		return nil, err
	}

	misses, err := meter.Int64Counter(
		"photolib.cache.misses",
		metric.WithDescription("Total number of cache misses"),
		metric.WithUnit("{lookups}"),
	)
	if err != nil {
		return nil, err
	}

	writes, err := meter.Int64Counter(
		"photolib.cache.writes",
		metric.WithDescription("Total number of cache writes"),
		metric.WithUnit("{writes}"),
	)
	if err != nil {
		return nil, err
	}

	evictions, err := meter.Int64Counter(
		"photolib.cache.evictions",
		metric.WithDescription("Total number of evicted entries"),
		metric.WithUnit("{entries}"),
	)
	if err != nil {
		return nil, err
	}

	bytesSaved, err := meter.Int64UpDownCounter(
		"photolib.cache.bytes",
		metric.WithDescription("Bytes held by the content cache"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &CacheMetrics{
		hits:       hits,
		misses:     misses,
		writes:     writes,
		evictions:  evictions,
		bytesSaved: bytesSaved,
	}, nil
}

// RecordLookup records a cache lookup
func (m *CacheMetrics) RecordLookup(ctx context.Context, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.hits.Add(ctx, 1)
	} else {
		m.misses.Add(ctx, 1)
	}
}

// RecordWrite records a stored entry
func (m *CacheMetrics) RecordWrite(ctx context.Context, size int64) {
	if m == nil {
		return
	}
	m.writes.Add(ctx, 1)
	m.bytesSaved.Add(ctx, size)
}

// RecordEviction records evicted entries
func (m *CacheMetrics) RecordEviction(ctx context.Context, count int, freedBytes int64) {
	if m == nil {
		return
	}
	m.evictions.Add(ctx, int64(count))
	m.bytesSaved.Add(ctx, -freedBytes)
}
