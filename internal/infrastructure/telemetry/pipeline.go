// Package telemetry wires OpenTelemetry tracing, metrics and logs plus
// Pyroscope profiling for the stock ledger service.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

// ServiceVersion is reported on every exported resource. The server sets it
// from its build version before calling Setup.
var ServiceVersion = "dev"

const shutdownTimeout = 10 * time.Second

// ExportConfig selects the OTLP collector a pipeline sends to.
type ExportConfig struct {
	Enabled           bool
	CollectorEndpoint string
	ServiceName       string
	Insecure          bool
}

func (c ExportConfig) fields() []zap.Field {
	return []zap.Field{
		zap.String("collector_endpoint", c.CollectorEndpoint),
		zap.String("service_name", c.ServiceName),
		zap.Bool("insecure", c.Insecure),
	}
}

func newResource(serviceName string) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// shutdownPipeline flushes and stops one SDK provider within shutdownTimeout.
func shutdownPipeline(ctx context.Context, logger *zap.Logger, name string, stop func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	logger.Info("Stopping telemetry pipeline", zap.String("pipeline", name))
	if err := stop(ctx); err != nil {
		return fmt.Errorf("failed to shut down %s pipeline: %w", name, err)
	}
	return nil
}
