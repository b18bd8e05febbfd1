package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnitRepository persists the unit-of-measure reference data
type UnitRepository interface {
	// FindAll returns every unit
	FindAll(ctx context.Context) ([]UnitOfMeasure, error)
	// FindByCode returns the unit with code or shared.ErrNotFound
	FindByCode(ctx context.Context, code string) (*UnitOfMeasure, error)
	// SaveIfAbsent inserts unit unless a unit with the same code exists
	SaveIfAbsent(ctx context.Context, unit *UnitOfMeasure) error
}

// ProductRepository persists products.
// Stock columns are written only through ApplyStockDelta.
type ProductRepository interface {
	// FindByIDForTenant finds a product within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Product, error)
	// FindByIDForUpdate finds and row-locks a product for the current transaction
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Product, error)
	// FindByIDs finds the given products within a tenant
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]Product, error)
	// ExistsByCode checks whether a product code is taken within a tenant
	ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error)
	// Create inserts a new product
	Create(ctx context.Context, product *Product) error
	// ApplyStockDelta atomically adds delta to the stock balance and bumps the
	// ledger sequence, returning the new balance and sequence
	ApplyStockDelta(ctx context.Context, tenantID, id uuid.UUID, delta decimal.Decimal) (StockSnapshot, error)
	// RevertStockDelta undoes an ApplyStockDelta of the same transaction whose movement was not recorded
	RevertStockDelta(ctx context.Context, tenantID, id uuid.UUID, delta decimal.Decimal) error
	// ListStock returns every product's cached balance for a tenant
	ListStock(ctx context.Context, tenantID uuid.UUID) ([]StockSnapshot, error)
}

// StockSnapshot is a product's balance and ledger sequence at a point in time
type StockSnapshot struct {
	ProductID      uuid.UUID
	StockQuantity  decimal.Decimal
	LedgerSequence int64
}
