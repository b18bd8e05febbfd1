package inventory

import (
	"context"

	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/domain/inventory"
)

// TransactionScope provides transactional access to the ledger repositories.
// Every repository handed to fn shares one database transaction, committed
// when fn returns nil and rolled back otherwise.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the repositories a stock operation touches.
//
//   - ProductRepo: owns the cached stock balance; only ApplyStockDelta writes it.
//   - MovementRepo: append-only ledger rows.
//   - DocumentRepo: every stock document family, header and items.
type TransactionalRepositories interface {
	ProductRepo() catalog.ProductRepository
	MovementRepo() inventory.StockMovementRepository
	DocumentRepo() inventory.StockDocumentRepository
}

// NoOpTransactionScope runs fn against fixed repositories without a transaction.
// This is useful for testing with in-memory or mock repositories.
type NoOpTransactionScope struct {
	productRepo  catalog.ProductRepository
	movementRepo inventory.StockMovementRepository
	documentRepo inventory.StockDocumentRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	productRepo catalog.ProductRepository,
	movementRepo inventory.StockMovementRepository,
	documentRepo inventory.StockDocumentRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		productRepo:  productRepo,
		movementRepo: movementRepo,
		documentRepo: documentRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// ProductRepo returns the product repository.
func (s *NoOpTransactionScope) ProductRepo() catalog.ProductRepository {
	return s.productRepo
}

// MovementRepo returns the stock movement repository.
func (s *NoOpTransactionScope) MovementRepo() inventory.StockMovementRepository {
	return s.movementRepo
}

// DocumentRepo returns the stock document repository.
func (s *NoOpTransactionScope) DocumentRepo() inventory.StockDocumentRepository {
	return s.documentRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
