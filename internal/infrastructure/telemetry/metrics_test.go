package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/crm/backend/internal/infrastructure/telemetry"
)

func newTestMetrics(t *testing.T) (*telemetry.SyncMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := telemetry.NewSyncMetrics(provider.Meter("test"))
	require.NoError(t, err)
	return m, reader
}

func collectSum(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestNewSyncMetrics_NilMeter(t *testing.T) {
	_, err := telemetry.NewSyncMetrics(nil)
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
}

func TestSyncMetrics_RecordPhase(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordPhase(ctx, "orders", "PARTIAL", telemetry.PhaseCounts{Created: 3, Updated: 1, Failed: 2}, 2*time.Second)

	assert.Equal(t, int64(6), collectSum(t, reader, "sync_items_total"))
}

func TestSyncMetrics_RecordRunAndRemote(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordRun(ctx, "cli", "SUCCESS")
	m.RecordRemoteRequest(ctx, "GET", 200, 150*time.Millisecond)
	m.RecordRemoteRequest(ctx, "PUT", 0, time.Second)
	m.RecordConflict(ctx)

	assert.Equal(t, int64(1), collectSum(t, reader, "sync_runs_total"))
	assert.Equal(t, int64(2), collectSum(t, reader, "sync_remote_requests_total"))
	assert.Equal(t, int64(1), collectSum(t, reader, "sync_identity_conflicts_total"))
}

func TestSyncMetrics_NilReceiver(t *testing.T) {
	var m *telemetry.SyncMetrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordRun(ctx, "cli", "FAILED")
		m.RecordPhase(ctx, "orders", "FAILED", telemetry.PhaseCounts{Failed: 1}, time.Second)
		m.RecordRemoteRequest(ctx, "GET", 500, time.Second)
		m.RecordConflict(ctx)
	})
}
