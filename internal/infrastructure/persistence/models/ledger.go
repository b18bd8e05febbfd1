package models

import (
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockMovementModel is the persistence model of one ledger row.
//
// uq_stock_movements_posting is the structural posting key. A header-level
// posting stores the nil UUID in source_item_key so the index also covers it.
type StockMovementModel struct {
	ID                uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID          uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_stock_movements_posting,priority:1"`
	DocumentKind      string          `gorm:"type:varchar(30);not null;uniqueIndex:uq_stock_movements_posting,priority:2"`
	DocumentID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_stock_movements_posting,priority:3"`
	SourceItemKey     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_stock_movements_posting,priority:4"`
	ProductID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_stock_movements_posting,priority:5;uniqueIndex:uq_stock_movements_product_sequence,priority:1"`
	Type              string          `gorm:"type:varchar(40);not null;uniqueIndex:uq_stock_movements_posting,priority:6"`
	Generation        int             `gorm:"not null;uniqueIndex:uq_stock_movements_posting,priority:7"`
	Sequence          int64           `gorm:"not null;uniqueIndex:uq_stock_movements_product_sequence,priority:2"`
	SourceItemID      *uuid.UUID      `gorm:"type:uuid"`
	QuantityChanged   decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	NewStockQuantity  decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	MovementDate      time.Time       `gorm:"not null"`
	ActorID           uuid.UUID       `gorm:"type:uuid;not null"`
	Reason            string          `gorm:"type:varchar(255)"`
	TransactionUnitID *uuid.UUID      `gorm:"type:uuid"`
	CreatedAt         time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockMovementModel) TableName() string {
	return "stock_movements"
}

// ToDomain converts the persistence model to a domain movement
func (m *StockMovementModel) ToDomain() inventory.StockMovement {
	return inventory.StockMovement{
		ID:                m.ID,
		TenantID:          m.TenantID,
		ProductID:         m.ProductID,
		Type:              inventory.MovementType(m.Type),
		QuantityChanged:   m.QuantityChanged,
		NewStockQuantity:  m.NewStockQuantity,
		Sequence:          m.Sequence,
		MovementDate:      m.MovementDate,
		Document:          inventory.NewDocumentRef(inventory.DocumentKind(m.DocumentKind), m.DocumentID),
		SourceItemID:      m.SourceItemID,
		Generation:        m.Generation,
		ActorID:           m.ActorID,
		Reason:            m.Reason,
		TransactionUnitID: m.TransactionUnitID,
		CreatedAt:         m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain movement
func (m *StockMovementModel) FromDomain(s *inventory.StockMovement) {
	m.ID = s.ID
	m.TenantID = s.TenantID
	m.DocumentKind = s.Document.Kind.String()
	m.DocumentID = s.Document.ID
	m.SourceItemKey = inventory.SourceItemKey(s.SourceItemID)
	m.ProductID = s.ProductID
	m.Type = s.Type.String()
	m.Generation = s.Generation
	m.Sequence = s.Sequence
	m.SourceItemID = s.SourceItemID
	m.QuantityChanged = s.QuantityChanged
	m.NewStockQuantity = s.NewStockQuantity
	m.MovementDate = s.MovementDate
	m.ActorID = s.ActorID
	m.Reason = s.Reason
	m.TransactionUnitID = s.TransactionUnitID
	m.CreatedAt = s.CreatedAt
}
