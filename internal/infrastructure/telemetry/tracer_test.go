package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap/zaptest"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	cfg := TracingConfig{
		ExportConfig:  ExportConfig{CollectorEndpoint: "localhost:14317", ServiceName: "stockledger"},
		SamplingRatio: 1,
	}

	tp, err := NewTracerProvider(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, tp.IsEnabled())
	assert.NoError(t, tp.Shutdown(ctx))

	// nothing to wrap without an SDK provider
	require.NoError(t, tp.EnableSpanProfiles())
	assert.False(t, tp.SpanProfilesEnabled())
}

func TestNewTracerProvider_Enabled(t *testing.T) {
	if testing.Short() {
		t.Skip("requires an OTLP collector")
	}
	ctx := context.Background()
	tp, err := NewTracerProvider(ctx, TracingConfig{
		ExportConfig: ExportConfig{
			Enabled:           true,
			CollectorEndpoint: "localhost:14317",
			ServiceName:       "stockledger",
			Insecure:          true,
		},
		SamplingRatio: 0.5,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, tp.IsEnabled())

	require.NoError(t, tp.EnableSpanProfiles())
	require.NoError(t, tp.EnableSpanProfiles())
	assert.True(t, tp.SpanProfilesEnabled())

	shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_ = tp.Shutdown(shutdownCtx)
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{1.0, sdktrace.AlwaysSample().Description()},
		{1.5, sdktrace.AlwaysSample().Description()},
		{0.0, sdktrace.NeverSample().Description()},
		{0.25, sdktrace.ParentBased(sdktrace.TraceIDRatioBased(0.25)).Description()},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sampler(tt.ratio).Description(), "ratio %v", tt.ratio)
	}
}

func TestNewResource(t *testing.T) {
	prev := ServiceVersion
	ServiceVersion = "1.4.2"
	t.Cleanup(func() { ServiceVersion = prev })

	res, err := newResource("stockledger")
	require.NoError(t, err)

	attrs := map[string]string{}
	for _, kv := range res.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "stockledger", attrs["service.name"])
	assert.Equal(t, "1.4.2", attrs["service.version"])
}
