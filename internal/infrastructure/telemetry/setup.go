package telemetry

import (
	"context"
	"errors"

	"github.com/erp/stockledger/internal/infrastructure/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Providers bundles the telemetry pipelines started for the server.
type Providers struct {
	Tracer   *TracerProvider
	Meter    *MeterProvider
	Logs     *LoggerProvider
	Profiler *Profiler
	cfg      config.TelemetryConfig
}

// Setup starts the profiler and the trace, metric and log pipelines that
// cfg enables. Exporters other than the profiler require cfg.Enabled.
func Setup(ctx context.Context, cfg config.TelemetryConfig, logger *zap.Logger) (*Providers, error) {
	p := &Providers{cfg: cfg}
	var err error

	p.Profiler, err = NewProfiler(ProfilerConfig{
		Enabled:         cfg.ProfilingEnabled,
		ServerAddress:   cfg.ProfilingServerAddress,
		ApplicationName: cfg.ServiceName,
	}, logger)
	if err != nil {
		return nil, err
	}

	export := func(enabled bool) ExportConfig {
		return ExportConfig{
			Enabled:           cfg.Enabled && enabled,
			CollectorEndpoint: cfg.CollectorEndpoint,
			ServiceName:       cfg.ServiceName,
			Insecure:          cfg.Insecure,
		}
	}

	p.Tracer, err = NewTracerProvider(ctx, TracingConfig{
		ExportConfig:  export(true),
		SamplingRatio: cfg.SamplingRatio,
	}, logger)
	if err != nil {
		return nil, errors.Join(err, p.Shutdown(ctx))
	}
	if p.Profiler.IsEnabled() {
		if err := p.Tracer.EnableSpanProfiles(); err != nil {
			return nil, errors.Join(err, p.Shutdown(ctx))
		}
	}

	p.Meter, err = NewMeterProvider(ctx, MetricsConfig{
		ExportConfig:   export(cfg.MetricsEnabled),
		ExportInterval: cfg.MetricsInterval,
	}, logger)
	if err != nil {
		return nil, errors.Join(err, p.Shutdown(ctx))
	}

	p.Logs, err = NewLoggerProvider(ctx, export(cfg.LogsEnabled), logger)
	if err != nil {
		return nil, errors.Join(err, p.Shutdown(ctx))
	}

	return p, nil
}

// BridgeLogger tees base into the OTLP logs pipeline when it is enabled.
func (p *Providers) BridgeLogger(base *zap.Logger, level zapcore.Level) *zap.Logger {
	if p.Logs == nil {
		return base
	}
	return p.Logs.Bridge(base, level)
}

// DBTracingConfig derives the database tracing settings.
func (p *Providers) DBTracingConfig() DBTracingConfig {
	cfg := DefaultDBTracingConfig()
	cfg.Enabled = p.cfg.Enabled && p.cfg.DBTraceEnabled
	cfg.LogFullSQL = p.cfg.DBLogFullSQL
	return cfg
}

// DBMetricsConfig derives the database metrics settings.
func (p *Providers) DBMetricsConfig() DBMetricsConfig {
	cfg := DefaultDBMetricsConfig()
	cfg.Enabled = p.Meter != nil && p.Meter.IsEnabled()
	return cfg
}

// Shutdown stops every started pipeline, logs first so shutdown messages
// from the others still reach stdout.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	if p.Logs != nil {
		errs = append(errs, p.Logs.Shutdown(ctx))
	}
	if p.Meter != nil {
		errs = append(errs, p.Meter.Shutdown(ctx))
	}
	if p.Tracer != nil {
		errs = append(errs, p.Tracer.Shutdown(ctx))
	}
	if p.Profiler != nil {
		errs = append(errs, p.Profiler.Stop())
	}
	return errors.Join(errs...)
}
