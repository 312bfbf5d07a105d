// Package telemetry provides OpenTelemetry instrumentation for the sync
// service.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SyncMetricsMeterName is the name used for the sync metrics meter
const SyncMetricsMeterName = "github.com/NickRomanek/SasWatch-sub002/sync"

// SyncMetrics holds the OpenTelemetry instruments for sync operations
type SyncMetrics struct {
	syncDuration    metric.Float64Histogram
	recordsIngested metric.Int64Counter
	activeSyncs     metric.Int64UpDownCounter
}

// NewSyncMetrics creates a new SyncMetrics instance with the given meter
// provider. If provider is nil, it returns nil (no-op metrics).
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SyncMetricsMeterName)

	syncDuration, err := meter.Float64Histogram(
		"saswatch_sync_duration_seconds",
		metric.WithDescription("Duration of sign-in sync operations in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, err
	}

	recordsIngested, err := meter.Int64Counter(
		"saswatch_sync_records_ingested_total",
		metric.WithDescription("Number of sign-in records inserted by sync operations"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	activeSyncs, err := meter.Int64UpDownCounter(
		"saswatch_sync_active",
		metric.WithDescription("Number of sync operations currently running"),
		metric.WithUnit("{sync}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		syncDuration:    syncDuration,
		recordsIngested: recordsIngested,
		activeSyncs:     activeSyncs,
	}, nil
}

// RecordSyncDuration records the duration of one sync operation.
func (m *SyncMetrics) RecordSyncDuration(ctx context.Context, tenant string, duration time.Duration, success bool) {
	if m == nil || m.syncDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("tenant", tenant),
		attribute.Bool("success", success),
	}
	m.syncDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordRecordsIngested records how many rows a page upsert inserted.
func (m *SyncMetrics) RecordRecordsIngested(ctx context.Context, tenant string, count int64) {
	if m == nil || m.recordsIngested == nil {
		return
	}

	m.recordsIngested.Add(ctx, count, metric.WithAttributes(attribute.String("tenant", tenant)))
}

// AddActiveSyncs adjusts the active sync gauge by delta.
func (m *SyncMetrics) AddActiveSyncs(ctx context.Context, delta int64) {
	if m == nil || m.activeSyncs == nil {
		return
	}

	m.activeSyncs.Add(ctx, delta)
}
