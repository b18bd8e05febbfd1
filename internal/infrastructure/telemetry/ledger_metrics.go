package telemetry

import (
	"context"
	"errors"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// StockLevelProvider supplies the below-minimum gauge.
type StockLevelProvider interface {
	CountBelowMinimum(ctx context.Context) (map[uuid.UUID]int64, error)
}

// LedgerMetrics records stock postings and document transitions.
type LedgerMetrics struct {
	postings           *Counter
	transitions        *Counter
	conversionFailures *Counter
	registration       metric.Registration
	logger             *zap.Logger
}

// NewLedgerMetrics creates the ledger instruments on meter. levels may be nil,
// in which case no stock level gauge is registered.
func NewLedgerMetrics(meter metric.Meter, levels StockLevelProvider, logger *zap.Logger) (*LedgerMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &LedgerMetrics{logger: logger}

	var err error
	if m.postings, err = NewCounter(meter, "stock_postings_total", "Stock movements posted or skipped as duplicates", "{movement}"); err != nil {
		return nil, err
	}
	if m.transitions, err = NewCounter(meter, "stock_document_transitions_total", "Document status transitions by result", "{transition}"); err != nil {
		return nil, err
	}
	if m.conversionFailures, err = NewCounter(meter, "stock_unit_conversion_failures_total", "Postings aborted by an unsupported unit conversion", "{failure}"); err != nil {
		return nil, err
	}

	if levels != nil {
		if err := m.observeStockLevels(meter, levels); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *LedgerMetrics) observeStockLevels(meter metric.Meter, levels StockLevelProvider) error {
	gauge, err := meter.Int64ObservableGauge("stock_products_below_minimum",
		metric.WithDescription("Products holding less stock than their minimum"),
		metric.WithUnit("{product}"))
	if err != nil {
		return err
	}
	m.registration, err = meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		counts, err := levels.CountBelowMinimum(ctx)
		if err != nil {
			m.logger.Warn("failed to collect stock levels", zap.Error(err))
			return nil
		}
		for tenantID, n := range counts {
			o.ObserveInt64(gauge, n, metric.WithAttributes(AttrTenantID.String(tenantID.String())))
		}
		return nil
	}, gauge)
	return err
}

// RecordPosting counts one ledger posting attempt.
func (m *LedgerMetrics) RecordPosting(ctx context.Context, movementType string, skipped bool) {
	outcome := "posted"
	if skipped {
		outcome = "skipped"
	}
	m.postings.Inc(ctx, AttrMovementType.String(movementType), AttrOutcome.String(outcome))
}

// RecordTransition counts one transition attempt. The result attribute is
// "ok" or the domain error code.
func (m *LedgerMetrics) RecordTransition(ctx context.Context, kind, from, to string, err error) {
	m.transitions.Inc(ctx,
		AttrDocumentKind.String(kind),
		AttrFromStatus.String(from),
		AttrToStatus.String(to),
		AttrResult.String(resultOf(err)),
	)
}

// RecordConversionFailure counts one posting aborted by a missing conversion.
func (m *LedgerMetrics) RecordConversionFailure(ctx context.Context, kind string) {
	m.conversionFailures.Inc(ctx, AttrDocumentKind.String(kind))
}

// Close stops the stock level gauge.
func (m *LedgerMetrics) Close() error {
	if m == nil || m.registration == nil {
		return nil
	}
	return m.registration.Unregister()
}

func resultOf(err error) string {
	if err == nil {
		return "ok"
	}
	var coded shared.CodedError
	if errors.As(err, &coded) {
		return coded.ErrorCode()
	}
	return "error"
}
