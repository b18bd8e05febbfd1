package inventory

import "context"

// Metrics receives ledger and transition measurements.
// telemetry.LedgerMetrics implements it on top of OpenTelemetry.
type Metrics interface {
	RecordPosting(ctx context.Context, movementType string, skipped bool)
	RecordTransition(ctx context.Context, kind, from, to string, err error)
	RecordConversionFailure(ctx context.Context, kind string)
}

type noopMetrics struct{}

func (noopMetrics) RecordPosting(context.Context, string, bool) {}

func (noopMetrics) RecordTransition(context.Context, string, string, string, error) {}

func (noopMetrics) RecordConversionFailure(context.Context, string) {}
