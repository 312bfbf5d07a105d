package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSyncMetricsNilProvider(t *testing.T) {
	t.Parallel()

	metrics, err := NewSyncMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, metrics)
}

func TestSyncMetricsNilSafe(t *testing.T) {
	t.Parallel()

	var metrics *SyncMetrics
	ctx := context.Background()

	// A nil receiver is the disabled-metrics path and must not panic.
	metrics.RecordSyncDuration(ctx, "tenant", time.Second, true)
	metrics.RecordRecordsIngested(ctx, "tenant", 10)
	metrics.AddActiveSyncs(ctx, 1)
	metrics.AddActiveSyncs(ctx, -1)
}

func TestSyncMetricsWithProvider(t *testing.T) {
	t.Parallel()

	provider, err := NewProvider()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	})

	metrics, err := NewSyncMetrics(provider.MeterProvider())
	require.NoError(t, err)
	require.NotNil(t, metrics)

	ctx := context.Background()
	metrics.RecordSyncDuration(ctx, "tenant-a", 2*time.Second, true)
	metrics.RecordSyncDuration(ctx, "tenant-a", 5*time.Second, false)
	metrics.RecordRecordsIngested(ctx, "tenant-a", 42)
	metrics.AddActiveSyncs(ctx, 1)
	metrics.AddActiveSyncs(ctx, -1)

	assert.NotNil(t, provider.Handler())
}
