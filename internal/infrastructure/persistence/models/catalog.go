package models

import (
	"time"

	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnitOfMeasureModel is the persistence model for global unit reference data.
type UnitOfMeasureModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key"`
	Code             string          `gorm:"type:varchar(20);not null;uniqueIndex:uq_units_of_measure_code"`
	Name             string          `gorm:"type:varchar(100);not null"`
	Symbol           string          `gorm:"type:varchar(20)"`
	Category         string          `gorm:"type:varchar(20);not null"`
	BaseUnitID       *uuid.UUID      `gorm:"type:uuid;index"`
	ConversionFactor decimal.Decimal `gorm:"type:decimal(20,6);not null;default:1"`
	CreatedAt        time.Time       `gorm:"not null"`
	UpdatedAt        time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UnitOfMeasureModel) TableName() string {
	return "units_of_measure"
}

// ToDomain converts the persistence model to a domain unit
func (m *UnitOfMeasureModel) ToDomain() catalog.UnitOfMeasure {
	return catalog.UnitOfMeasure{
		ID:               m.ID,
		Code:             m.Code,
		Name:             m.Name,
		Symbol:           m.Symbol,
		Category:         catalog.UnitCategory(m.Category),
		BaseUnitID:       m.BaseUnitID,
		ConversionFactor: m.ConversionFactor,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain unit
func (m *UnitOfMeasureModel) FromDomain(u *catalog.UnitOfMeasure) {
	m.ID = u.ID
	m.Code = u.Code
	m.Name = u.Name
	m.Symbol = u.Symbol
	m.Category = string(u.Category)
	m.BaseUnitID = u.BaseUnitID
	m.ConversionFactor = u.ConversionFactor
	m.CreatedAt = u.CreatedAt
	m.UpdatedAt = u.UpdatedAt
}

// ProductModel is the persistence model for the Product aggregate.
// stock_quantity and ledger_sequence are only ever incremented in SQL.
type ProductModel struct {
	TenantAggregateModel
	Code           string              `gorm:"type:varchar(50);not null;index"`
	Name           string              `gorm:"type:varchar(200);not null"`
	StockQuantity  decimal.Decimal     `gorm:"type:decimal(20,6);not null;default:0"`
	StockUnitID    uuid.UUID           `gorm:"type:uuid;not null"`
	PurchaseUnitID *uuid.UUID          `gorm:"type:uuid"`
	SalesUnitID    *uuid.UUID          `gorm:"type:uuid"`
	MinStock       decimal.NullDecimal `gorm:"type:decimal(20,6)"`
	MaxStock       decimal.NullDecimal `gorm:"type:decimal(20,6)"`
	LedgerSequence int64               `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product entity.
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		Code:                m.Code,
		Name:                m.Name,
		StockQuantity:       m.StockQuantity,
		StockUnitID:         m.StockUnitID,
		PurchaseUnitID:      m.PurchaseUnitID,
		SalesUnitID:         m.SalesUnitID,
		MinStock:            m.MinStock,
		MaxStock:            m.MaxStock,
		LedgerSequence:      m.LedgerSequence,
	}
}

// FromDomain populates the persistence model from a domain Product entity.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	m.Code = p.Code
	m.Name = p.Name
	m.StockQuantity = p.StockQuantity
	m.StockUnitID = p.StockUnitID
	m.PurchaseUnitID = p.PurchaseUnitID
	m.SalesUnitID = p.SalesUnitID
	m.MinStock = p.MinStock
	m.MaxStock = p.MaxStock
	m.LedgerSequence = p.LedgerSequence
}
