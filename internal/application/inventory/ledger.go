package inventory

import (
	"context"
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/erp/stockledger/internal/application/inventory"

// PostingCommand asks the ledger to record one movement.
// Quantity is signed and in the product's stock unit.
type PostingCommand struct {
	ProductID         uuid.UUID              `validate:"required"`
	Type              inventory.MovementType `validate:"required,movement_type"`
	Quantity          decimal.Decimal
	Document          inventory.DocumentRef
	SourceItemID      *uuid.UUID
	Generation        int `validate:"gte=0"`
	MovementDate      time.Time
	Reason            string `validate:"max=255"`
	TransactionUnitID *uuid.UUID
}

// PostResult reports the outcome of a posting.
// Skipped is true when an identical posting already existed; it is a success.
type PostResult struct {
	Movement *inventory.StockMovement
	Skipped  bool
}

// LedgerOption configures a Ledger
type LedgerOption func(*Ledger)

// WithLedgerMetrics sets the metrics sink
func WithLedgerMetrics(m Metrics) LedgerOption {
	return func(l *Ledger) {
		if m != nil {
			l.metrics = m
		}
	}
}

// Ledger appends stock movements and keeps the product balance cache in step.
type Ledger struct {
	scope    TransactionScope
	validate *validator.Validate
	logger   *zap.Logger
	metrics  Metrics
	tracer   trace.Tracer
}

// NewLedger creates a ledger; scope is used by the read operations
func NewLedger(scope TransactionScope, logger *zap.Logger, opts ...LedgerOption) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Ledger{
		scope:    scope,
		validate: newPostingValidator(),
		logger:   logger,
		metrics:  noopMetrics{},
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func newPostingValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("movement_type", func(fl validator.FieldLevel) bool {
		return inventory.MovementType(fl.Field().String()).IsValid()
	})
	return v
}

func (l *Ledger) validateCommand(cmd PostingCommand) error {
	if err := l.validate.Struct(cmd); err != nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "Invalid posting: "+err.Error())
	}
	if !cmd.Document.Kind.IsValid() || cmd.Document.ID == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "Invalid posting: document reference is required")
	}
	if !cmd.Type.AllowsQuantity(cmd.Quantity) {
		return shared.NewDomainError(shared.CodeInvalidInput,
			"Invalid posting: quantity "+cmd.Quantity.String()+" does not match movement type "+cmd.Type.String())
	}
	return nil
}

// Post records one movement inside the caller's transaction.
//
// A posting whose structural key already exists is skipped. Otherwise the
// product balance is incremented atomically and the movement is appended
// with the resulting snapshot. If the unique index still rejects the row
// (a concurrent duplicate), the increment is reverted and the posting is skipped.
func (l *Ledger) Post(ctx context.Context, repos TransactionalRepositories, actor shared.ActorContext, cmd PostingCommand) (PostResult, error) {
	ctx, span := l.tracer.Start(ctx, "Ledger.Post", trace.WithAttributes(
		attribute.String("product_id", cmd.ProductID.String()),
		attribute.String("movement_type", cmd.Type.String()),
		attribute.String("document", cmd.Document.String()),
	))
	defer span.End()

	if err := actor.Validate(); err != nil {
		return PostResult{}, err
	}
	if err := l.validateCommand(cmd); err != nil {
		return PostResult{}, err
	}

	key := inventory.PostingKey{
		TenantID:      actor.TenantID,
		Document:      cmd.Document,
		SourceItemKey: inventory.SourceItemKey(cmd.SourceItemID),
		ProductID:     cmd.ProductID,
		Type:          cmd.Type,
		Generation:    cmd.Generation,
	}
	exists, err := repos.MovementRepo().Exists(ctx, key)
	if err != nil {
		return PostResult{}, l.fail(span, shared.NewPersistenceError("check posting", err))
	}
	if exists {
		l.skipped(ctx, cmd, "posting already recorded")
		return PostResult{Skipped: true}, nil
	}

	snapshot, err := repos.ProductRepo().ApplyStockDelta(ctx, actor.TenantID, cmd.ProductID, cmd.Quantity)
	if err != nil {
		return PostResult{}, l.fail(span, shared.NewPersistenceError("apply stock delta", err))
	}

	movementDate := cmd.MovementDate
	if movementDate.IsZero() {
		movementDate = time.Now()
	}
	movement := &inventory.StockMovement{
		ID:                uuid.New(),
		TenantID:          actor.TenantID,
		ProductID:         cmd.ProductID,
		Type:              cmd.Type,
		QuantityChanged:   cmd.Quantity,
		NewStockQuantity:  snapshot.StockQuantity,
		Sequence:          snapshot.LedgerSequence,
		MovementDate:      movementDate,
		Document:          cmd.Document,
		SourceItemID:      cmd.SourceItemID,
		Generation:        cmd.Generation,
		ActorID:           actor.ActorID,
		Reason:            cmd.Reason,
		TransactionUnitID: cmd.TransactionUnitID,
		CreatedAt:         time.Now(),
	}
	created, err := repos.MovementRepo().Create(ctx, movement)
	if err != nil {
		return PostResult{}, l.fail(span, shared.NewPersistenceError("append movement", err))
	}
	if !created {
		if err := repos.ProductRepo().RevertStockDelta(ctx, actor.TenantID, cmd.ProductID, cmd.Quantity); err != nil {
			return PostResult{}, l.fail(span, shared.NewPersistenceError("revert stock delta", err))
		}
		l.skipped(ctx, cmd, "unique index rejected duplicate posting")
		return PostResult{Skipped: true}, nil
	}

	l.metrics.RecordPosting(ctx, cmd.Type.String(), false)
	l.logger.Info("stock movement posted",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("product_id", cmd.ProductID.String()),
		zap.String("movement_type", cmd.Type.String()),
		zap.String("quantity", cmd.Quantity.String()),
		zap.String("new_stock_quantity", snapshot.StockQuantity.String()),
		zap.Int64("sequence", snapshot.LedgerSequence),
		zap.String("document", cmd.Document.String()),
		zap.Int("generation", cmd.Generation),
	)
	return PostResult{Movement: movement}, nil
}

func (l *Ledger) skipped(ctx context.Context, cmd PostingCommand, why string) {
	l.metrics.RecordPosting(ctx, cmd.Type.String(), true)
	l.logger.Debug("stock posting skipped",
		zap.String("reason", why),
		zap.String("product_id", cmd.ProductID.String()),
		zap.String("movement_type", cmd.Type.String()),
		zap.String("document", cmd.Document.String()),
		zap.Int("generation", cmd.Generation),
	)
}

func (l *Ledger) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// History returns a product's movements ordered by sequence
func (l *Ledger) History(ctx context.Context, tenantID, productID uuid.UUID, filter shared.Filter) (shared.Paginated[MovementResponse], error) {
	filter = filter.Normalize()
	var result shared.Paginated[MovementResponse]
	err := l.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.ProductRepo().FindByIDForTenant(ctx, tenantID, productID); err != nil {
			return err
		}
		movements, total, err := repos.MovementRepo().FindByProduct(ctx, tenantID, productID, filter)
		if err != nil {
			return shared.NewPersistenceError("load movement history", err)
		}
		result = shared.NewPaginated(ToMovementResponses(movements), total, filter.Page, filter.PageSize)
		return nil
	})
	return result, err
}

// Balance returns the cached balance next to the ledger sum
func (l *Ledger) Balance(ctx context.Context, tenantID, productID uuid.UUID) (*BalanceResponse, error) {
	var result *BalanceResponse
	err := l.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		product, err := repos.ProductRepo().FindByIDForTenant(ctx, tenantID, productID)
		if err != nil {
			return err
		}
		sum, err := repos.MovementRepo().SumByProduct(ctx, tenantID, productID)
		if err != nil {
			return shared.NewPersistenceError("sum movements", err)
		}
		result = &BalanceResponse{
			ProductID:      product.ID,
			StockUnitID:    product.StockUnitID,
			StockQuantity:  product.StockQuantity,
			LedgerSum:      sum,
			LedgerSequence: product.LedgerSequence,
			InSync:         product.StockQuantity.Equal(sum),
			IsBelowMinimum: product.IsBelowMinimum(),
			IsAboveMaximum: product.IsAboveMaximum(),
		}
		return nil
	})
	return result, err
}

// Reconcile lists the products whose cached balance differs from their ledger sum
func (l *Ledger) Reconcile(ctx context.Context, tenantID uuid.UUID) ([]DriftResponse, error) {
	var drifts []DriftResponse
	err := l.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		stock, err := repos.ProductRepo().ListStock(ctx, tenantID)
		if err != nil {
			return shared.NewPersistenceError("list stock", err)
		}
		sums, err := repos.MovementRepo().SumAll(ctx, tenantID)
		if err != nil {
			return shared.NewPersistenceError("sum movements", err)
		}
		for _, s := range stock {
			sum := sums[s.ProductID]
			if !s.StockQuantity.Equal(sum) {
				drifts = append(drifts, DriftResponse{
					ProductID:     s.ProductID,
					StockQuantity: s.StockQuantity,
					LedgerSum:     sum,
					Difference:    s.StockQuantity.Sub(sum),
				})
			}
		}
		return nil
	})
	if err == nil && len(drifts) > 0 {
		l.logger.Warn("stock balance drift detected",
			zap.String("tenant_id", tenantID.String()),
			zap.Int("products", len(drifts)),
		)
	}
	return drifts, err
}
