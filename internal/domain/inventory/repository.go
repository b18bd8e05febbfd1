package inventory

import (
	"context"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockMovementRepository is the append-only store of the stock ledger.
// It deliberately has no update or delete operations.
type StockMovementRepository interface {
	// Exists reports whether a movement with the structural key is already recorded
	Exists(ctx context.Context, key PostingKey) (bool, error)

	// Create appends a movement. It returns false without error when the
	// structural unique index rejected a duplicate.
	Create(ctx context.Context, movement *StockMovement) (bool, error)

	// FindForward returns the non-cancelling movements a document posted in
	// generation, optionally restricted to one source item
	FindForward(ctx context.Context, tenantID uuid.UUID, ref DocumentRef, generation int, sourceItemID *uuid.UUID) ([]StockMovement, error)

	// FindByProduct returns a product's movements ordered by sequence
	FindByProduct(ctx context.Context, tenantID, productID uuid.UUID, filter shared.Filter) ([]StockMovement, int64, error)

	// SumByProduct returns the signed sum of a product's movements
	SumByProduct(ctx context.Context, tenantID, productID uuid.UUID) (decimal.Decimal, error)

	// SumAll returns the signed movement sum of every product of a tenant
	SumAll(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
}

// StockDocumentRepository loads and stores every stock document family
type StockDocumentRepository interface {
	// Create inserts a document with its items
	Create(ctx context.Context, doc StockDocument) error

	// FindByRef loads a document with its items
	FindByRef(ctx context.Context, tenantID uuid.UUID, ref DocumentRef) (StockDocument, error)

	// FindByRefForUpdate loads a document and locks its row for the current transaction
	FindByRefForUpdate(ctx context.Context, tenantID uuid.UUID, ref DocumentRef) (StockDocument, error)

	// SaveTransition persists the header and item quantities of doc.
	// It fails with shared.ErrConcurrencyConflict unless the stored version equals expectedVersion.
	SaveTransition(ctx context.Context, doc StockDocument, expectedVersion int) error

	// Delete removes a document and its items
	Delete(ctx context.Context, tenantID uuid.UUID, ref DocumentRef) error

	// DeleteItem removes one item of a document
	DeleteItem(ctx context.Context, tenantID uuid.UUID, ref DocumentRef, itemID uuid.UUID) error
}
