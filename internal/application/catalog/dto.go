package catalog

import (
	"time"

	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnitResponse represents a unit of measure in API responses
type UnitResponse struct {
	ID               uuid.UUID       `json:"id"`
	Code             string          `json:"code"`
	Name             string          `json:"name"`
	Symbol           string          `json:"symbol"`
	Category         string          `json:"category"`
	BaseUnitID       *uuid.UUID      `json:"base_unit_id,omitempty"`
	ConversionFactor decimal.Decimal `json:"conversion_factor"`
	IsCanonical      bool            `json:"is_canonical"`
}

// ToUnitResponse converts a unit to its response
func ToUnitResponse(u *catalog.UnitOfMeasure) UnitResponse {
	return UnitResponse{
		ID:               u.ID,
		Code:             u.Code,
		Name:             u.Name,
		Symbol:           u.Symbol,
		Category:         string(u.Category),
		BaseUnitID:       u.BaseUnitID,
		ConversionFactor: u.Factor(),
		IsCanonical:      u.IsCanonical(),
	}
}

// ToUnitResponses converts a list of units
func ToUnitResponses(units []catalog.UnitOfMeasure) []UnitResponse {
	responses := make([]UnitResponse, len(units))
	for i := range units {
		responses[i] = ToUnitResponse(&units[i])
	}
	return responses
}

// ConvertResponse is the result of a unit conversion
type ConvertResponse struct {
	Quantity  decimal.Decimal `json:"quantity"`
	FromUnit  string          `json:"from_unit"`
	ToUnit    string          `json:"to_unit"`
	Factor    decimal.Decimal `json:"factor"`
	Converted decimal.Decimal `json:"converted"`
}

// CreateProductRequest represents a request to create a product
type CreateProductRequest struct {
	Code           string           `json:"code" binding:"required,max=50"`
	Name           string           `json:"name" binding:"required,max=200"`
	StockUnitID    uuid.UUID        `json:"stock_unit_id" binding:"required"`
	PurchaseUnitID *uuid.UUID       `json:"purchase_unit_id"`
	SalesUnitID    *uuid.UUID       `json:"sales_unit_id"`
	MinStock       *decimal.Decimal `json:"min_stock"`
	MaxStock       *decimal.Decimal `json:"max_stock"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID             uuid.UUID        `json:"id"`
	TenantID       uuid.UUID        `json:"tenant_id"`
	Code           string           `json:"code"`
	Name           string           `json:"name"`
	StockQuantity  decimal.Decimal  `json:"stock_quantity"`
	StockUnitID    uuid.UUID        `json:"stock_unit_id"`
	PurchaseUnitID *uuid.UUID       `json:"purchase_unit_id,omitempty"`
	SalesUnitID    *uuid.UUID       `json:"sales_unit_id,omitempty"`
	MinStock       *decimal.Decimal `json:"min_stock,omitempty"`
	MaxStock       *decimal.Decimal `json:"max_stock,omitempty"`
	LedgerSequence int64            `json:"ledger_sequence"`
	IsBelowMinimum bool             `json:"is_below_minimum"`
	IsAboveMaximum bool             `json:"is_above_maximum"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	Version        int              `json:"version"`
}

func optionalDecimal(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func toNullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

// ToProductResponse converts a product to its response
func ToProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:             p.ID,
		TenantID:       p.TenantID,
		Code:           p.Code,
		Name:           p.Name,
		StockQuantity:  p.StockQuantity,
		StockUnitID:    p.StockUnitID,
		PurchaseUnitID: p.PurchaseUnitID,
		SalesUnitID:    p.SalesUnitID,
		MinStock:       optionalDecimal(p.MinStock),
		MaxStock:       optionalDecimal(p.MaxStock),
		LedgerSequence: p.LedgerSequence,
		IsBelowMinimum: p.IsBelowMinimum(),
		IsAboveMaximum: p.IsAboveMaximum(),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		Version:        p.Version,
	}
}
