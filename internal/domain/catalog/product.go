package catalog

import (
	"strings"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the catalog aggregate carrying the cached stock balance and unit bindings.
//
// StockQuantity is denormalized from the stock ledger and is always expressed
// in StockUnitID. Domain code never assigns it; the ledger increments it
// atomically in storage and LedgerSequence counts the movements posted.
type Product struct {
	shared.TenantAggregateRoot
	Code           string
	Name           string
	StockQuantity  decimal.Decimal
	StockUnitID    uuid.UUID
	PurchaseUnitID *uuid.UUID
	SalesUnitID    *uuid.UUID
	MinStock       decimal.NullDecimal
	MaxStock       decimal.NullDecimal
	LedgerSequence int64
}

// NewProduct creates a product stocked in stockUnitID with a zero balance
func NewProduct(tenantID uuid.UUID, code, name string, stockUnitID uuid.UUID) (*Product, error) {
	if err := validateProductCode(code); err != nil {
		return nil, err
	}
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	if stockUnitID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STOCK_UNIT", "Stock unit is required")
	}
	return &Product{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                strings.ToUpper(code),
		Name:                name,
		StockQuantity:       decimal.Zero,
		StockUnitID:         stockUnitID,
	}, nil
}

// BindUnits sets the stock unit and the optional purchase and sales units.
// Every bound unit must exist and the transaction units must convert to the stock unit.
func (p *Product) BindUnits(conv *UnitConversionService, stockUnitID uuid.UUID, purchaseUnitID, salesUnitID *uuid.UUID) error {
	if _, ok := conv.Graph().Unit(stockUnitID); !ok {
		return shared.NewDomainError("INVALID_STOCK_UNIT", "Stock unit does not exist: "+stockUnitID.String())
	}
	if p.LedgerSequence > 0 && stockUnitID != p.StockUnitID {
		return shared.NewDomainError(shared.CodeInvalidState, "Stock unit cannot change once movements are recorded")
	}
	for _, id := range []*uuid.UUID{purchaseUnitID, salesUnitID} {
		if id == nil {
			continue
		}
		if _, err := conv.Factor(*id, stockUnitID, p); err != nil {
			return err
		}
	}
	p.StockUnitID = stockUnitID
	p.PurchaseUnitID = purchaseUnitID
	p.SalesUnitID = salesUnitID
	p.UpdatedAt = time.Now()
	return nil
}

// BoundUnitIDs returns the stock unit followed by the purchase and sales units when set
func (p *Product) BoundUnitIDs() []uuid.UUID {
	ids := []uuid.UUID{p.StockUnitID}
	if p.PurchaseUnitID != nil {
		ids = append(ids, *p.PurchaseUnitID)
	}
	if p.SalesUnitID != nil {
		ids = append(ids, *p.SalesUnitID)
	}
	return ids
}

// PurchaseUnit returns the unit purchases default to
func (p *Product) PurchaseUnit() uuid.UUID {
	if p.PurchaseUnitID != nil {
		return *p.PurchaseUnitID
	}
	return p.StockUnitID
}

// SalesUnit returns the unit sales default to
func (p *Product) SalesUnit() uuid.UUID {
	if p.SalesUnitID != nil {
		return *p.SalesUnitID
	}
	return p.StockUnitID
}

// SetThresholds sets the minimum and maximum stock levels
func (p *Product) SetThresholds(minStock, maxStock decimal.NullDecimal) error {
	if minStock.Valid && minStock.Decimal.IsNegative() {
		return shared.NewDomainError("INVALID_THRESHOLD", "Minimum stock cannot be negative")
	}
	if minStock.Valid && maxStock.Valid && maxStock.Decimal.LessThan(minStock.Decimal) {
		return shared.NewDomainError("INVALID_THRESHOLD", "Maximum stock cannot be below minimum stock")
	}
	p.MinStock = minStock
	p.MaxStock = maxStock
	p.UpdatedAt = time.Now()
	return nil
}

// IsBelowMinimum reports whether the cached balance is under the minimum threshold
func (p *Product) IsBelowMinimum() bool {
	return p.MinStock.Valid && p.StockQuantity.LessThan(p.MinStock.Decimal)
}

// IsAboveMaximum reports whether the cached balance exceeds the maximum threshold
func (p *Product) IsAboveMaximum() bool {
	return p.MaxStock.Valid && p.StockQuantity.GreaterThan(p.MaxStock.Decimal)
}

func validateProductCode(code string) error {
	if strings.TrimSpace(code) == "" {
		return shared.NewDomainError("INVALID_CODE", "Product code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_CODE", "Product code cannot exceed 50 characters")
	}
	return nil
}

func validateProductName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	return nil
}
