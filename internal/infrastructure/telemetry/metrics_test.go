package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	mp, err := NewMeterProvider(ctx, MetricsConfig{ExportConfig: ExportConfig{ServiceName: "stockledger"}}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestMeterProvider_WithReader(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	mp, err := newMeterProviderWith(reader, "stockledger", zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, mp.IsEnabled())

	c, err := NewCounter(mp.Meter("ledger"), "stock_postings_total", "postings", "{movement}")
	require.NoError(t, err)
	c.Inc(ctx, AttrMovementType.String("purchase_receipt"))

	m := collectMetrics(t, reader)["stock_postings_total"]
	assert.Equal(t, int64(1), counterValue(t, m, AttrMovementType.String("purchase_receipt")))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestNewMeterProvider_Enabled(t *testing.T) {
	if testing.Short() {
		t.Skip("requires an OTLP collector")
	}
	ctx := context.Background()
	mp, err := NewMeterProvider(ctx, MetricsConfig{
		ExportConfig: ExportConfig{
			Enabled:           true,
			CollectorEndpoint: "localhost:14317",
			ServiceName:       "stockledger",
			Insecure:          true,
		},
		ExportInterval: time.Hour,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, mp.IsEnabled())

	shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_ = mp.Shutdown(shutdownCtx)
}

func TestCounter(t *testing.T) {
	ctx := context.Background()
	reader, mp := newManualMeter(t)
	c, err := NewCounter(mp.Meter("test"), "test_total", "test counter", "{item}")
	require.NoError(t, err)

	c.Inc(ctx, AttrDocumentKind.String("goods_receipt"))
	c.Add(ctx, 4, AttrDocumentKind.String("goods_receipt"))
	c.Inc(ctx, AttrDocumentKind.String("delivery_note"))

	m := collectMetrics(t, reader)["test_total"]
	assert.Equal(t, int64(5), counterValue(t, m, AttrDocumentKind.String("goods_receipt")))
	assert.Equal(t, int64(6), counterValue(t, m))
}

func TestHistogram_RecordDuration(t *testing.T) {
	ctx := context.Background()
	reader, mp := newManualMeter(t)
	h, err := NewHistogram(mp.Meter("test"), HistogramOpts{
		Name:       "test_duration_seconds",
		Unit:       "s",
		Boundaries: DBDurationBuckets,
	})
	require.NoError(t, err)

	h.RecordDuration(ctx, 20*time.Millisecond)
	h.RecordDuration(ctx, 2*time.Second)

	m := collectMetrics(t, reader)["test_duration_seconds"]
	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	dp := hist.DataPoints[0]
	assert.Equal(t, uint64(2), dp.Count)
	assert.Equal(t, DBDurationBuckets, dp.Bounds)
	assert.InDelta(t, 2.02, dp.Sum, 1e-9)
}
