package telemetry

import (
	"context"
	"testing"

	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

func TestSetup_AllDisabled(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	p, err := Setup(ctx, config.TelemetryConfig{
		ServiceName:    "stockledger",
		MetricsEnabled: true,
		LogsEnabled:    true,
		DBTraceEnabled: true,
	}, logger)
	require.NoError(t, err)

	assert.False(t, p.Tracer.IsEnabled())
	assert.False(t, p.Meter.IsEnabled(), "metrics need telemetry enabled")
	assert.False(t, p.Logs.IsEnabled())
	assert.False(t, p.Profiler.IsEnabled())
	assert.False(t, p.DBTracingConfig().Enabled)
	assert.False(t, p.DBMetricsConfig().Enabled)
	assert.Same(t, logger, p.BridgeLogger(logger, zapcore.InfoLevel))

	assert.NoError(t, p.Shutdown(ctx))
}

func TestSetup_ProfilerMisconfigured(t *testing.T) {
	_, err := Setup(context.Background(), config.TelemetryConfig{
		ServiceName:      "stockledger",
		ProfilingEnabled: true,
	}, zaptest.NewLogger(t))
	assert.Error(t, err)
}
