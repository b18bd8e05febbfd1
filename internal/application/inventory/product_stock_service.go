package inventory

import (
	"context"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StockEditResult reports the movement a direct stock edit produced, if any
type StockEditResult struct {
	ProductID     uuid.UUID         `json:"product_id"`
	StockQuantity decimal.Decimal   `json:"stock_quantity"`
	Movement      *MovementResponse `json:"movement,omitempty"`
}

// ProductStockService applies direct edits of a product's stock balance.
// Every edit is an adjustment posted through the ledger, never a raw write.
type ProductStockService struct {
	scope  TransactionScope
	ledger *Ledger
	logger *zap.Logger
}

// NewProductStockService creates a ProductStockService
func NewProductStockService(scope TransactionScope, ledger *Ledger, logger *zap.Logger) *ProductStockService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductStockService{scope: scope, ledger: ledger, logger: logger}
}

// SetStockQuantity sets the balance to newQty by posting adjustment_in or
// adjustment_out for the difference. An unchanged balance posts nothing.
func (s *ProductStockService) SetStockQuantity(ctx context.Context, actor shared.ActorContext, productID uuid.UUID, newQty decimal.Decimal, reason string) (*StockEditResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if newQty.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Stock quantity cannot be negative")
	}

	var result *StockEditResult
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		product, err := repos.ProductRepo().FindByIDForUpdate(ctx, actor.TenantID, productID)
		if err != nil {
			return err
		}
		result = &StockEditResult{ProductID: product.ID, StockQuantity: product.StockQuantity}

		delta := newQty.Sub(product.StockQuantity)
		if delta.IsZero() {
			return nil
		}
		movementType := inventory.MovementTypeAdjustmentIn
		if delta.IsNegative() {
			movementType = inventory.MovementTypeAdjustmentOut
		}
		return s.post(ctx, repos, actor, product.ID, product.LedgerSequence, movementType, delta, reason, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RecordInitialStock posts the opening balance of a product with no movements yet
func (s *ProductStockService) RecordInitialStock(ctx context.Context, actor shared.ActorContext, productID uuid.UUID, qty decimal.Decimal, reason string) (*StockEditResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if !qty.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Initial stock must be positive")
	}

	var result *StockEditResult
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		product, err := repos.ProductRepo().FindByIDForUpdate(ctx, actor.TenantID, productID)
		if err != nil {
			return err
		}
		if product.LedgerSequence > 0 {
			return shared.NewDomainError(shared.CodeInvalidState, "Initial stock can only be recorded before any movement")
		}
		result = &StockEditResult{ProductID: product.ID, StockQuantity: product.StockQuantity}
		return s.post(ctx, repos, actor, product.ID, product.LedgerSequence, inventory.MovementTypeInitial, qty, reason, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// post records a product-level movement. Each edit is its own event, keyed by
// the product's next ledger sequence.
func (s *ProductStockService) post(
	ctx context.Context,
	repos TransactionalRepositories,
	actor shared.ActorContext,
	productID uuid.UUID,
	sequence int64,
	movementType inventory.MovementType,
	qty decimal.Decimal,
	reason string,
	result *StockEditResult,
) error {
	res, err := s.ledger.Post(ctx, repos, actor, PostingCommand{
		ProductID:  productID,
		Type:       movementType,
		Quantity:   qty,
		Document:   inventory.NewDocumentRef(inventory.DocumentKindProduct, productID),
		Generation: int(sequence + 1),
		Reason:     reason,
	})
	if err != nil {
		return err
	}
	if res.Skipped {
		return nil
	}
	resp := ToMovementResponse(res.Movement)
	result.Movement = &resp
	result.StockQuantity = res.Movement.NewStockQuantity
	s.logger.Info("product stock edited",
		zap.String("product_id", productID.String()),
		zap.String("movement_type", movementType.String()),
		zap.String("quantity", qty.String()),
	)
	return nil
}
