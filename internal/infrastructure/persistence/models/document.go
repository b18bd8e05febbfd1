package models

import (
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockDocumentItemModel stores the items of every document family.
// TheoreticalQuantity is only used by inventory sessions.
type StockDocumentItemModel struct {
	ID                  uuid.UUID           `gorm:"type:uuid;primary_key"`
	TenantID            uuid.UUID           `gorm:"type:uuid;not null;index"`
	DocumentKind        string              `gorm:"type:varchar(30);not null;index:idx_stock_document_items_document,priority:1"`
	DocumentID          uuid.UUID           `gorm:"type:uuid;not null;index:idx_stock_document_items_document,priority:2"`
	LineNo              int                 `gorm:"not null"`
	ProductID           uuid.UUID           `gorm:"type:uuid;not null;index"`
	Quantity            decimal.NullDecimal `gorm:"type:decimal(20,6)"`
	TransactionUnitID   uuid.UUID           `gorm:"type:uuid;not null"`
	StockUnitQuantity   decimal.NullDecimal `gorm:"type:decimal(20,6)"`
	TheoreticalQuantity decimal.NullDecimal `gorm:"type:decimal(20,6)"`
	CreatedAt           time.Time           `gorm:"not null"`
	UpdatedAt           time.Time           `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockDocumentItemModel) TableName() string {
	return "stock_document_items"
}

// ToStockLine converts the row to a domain line
func (m *StockDocumentItemModel) ToStockLine() inventory.StockLine {
	return inventory.StockLine{
		ID:                m.ID,
		DocumentID:        m.DocumentID,
		ProductID:         m.ProductID,
		Quantity:          m.Quantity,
		TransactionUnitID: m.TransactionUnitID,
		StockUnitQuantity: m.StockUnitQuantity,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// ItemModelFromLine builds the row of line number lineNo
func ItemModelFromLine(tenantID uuid.UUID, ref inventory.DocumentRef, lineNo int, l *inventory.StockLine) StockDocumentItemModel {
	return StockDocumentItemModel{
		ID:                l.ID,
		TenantID:          tenantID,
		DocumentKind:      ref.Kind.String(),
		DocumentID:        ref.ID,
		LineNo:            lineNo,
		ProductID:         l.ProductID,
		Quantity:          l.Quantity,
		TransactionUnitID: l.TransactionUnitID,
		StockUnitQuantity: l.StockUnitQuantity,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}
}

// ItemModelsFromDocument builds the item rows of doc in line order
func ItemModelsFromDocument(doc inventory.StockDocument) []StockDocumentItemModel {
	theoretical := map[uuid.UUID]decimal.NullDecimal{}
	if s, ok := doc.(*inventory.InventorySession); ok {
		for _, it := range s.Items {
			theoretical[it.ID] = it.TheoreticalQuantity
		}
	}
	lines := doc.Lines()
	items := make([]StockDocumentItemModel, len(lines))
	for i, l := range lines {
		items[i] = ItemModelFromLine(doc.Tenant(), doc.Ref(), i+1, l)
		items[i].TheoreticalQuantity = theoretical[l.ID]
	}
	return items
}

func toStockLines(items []StockDocumentItemModel) []inventory.StockLine {
	lines := make([]inventory.StockLine, len(items))
	for i := range items {
		lines[i] = items[i].ToStockLine()
	}
	return lines
}

// GoodsReceiptModel is the header row of a goods receipt
type GoodsReceiptModel struct {
	DocumentHeaderModel
	SupplierName string `gorm:"type:varchar(200)"`
	ReceivedAt   *time.Time
}

// TableName returns the table name for GORM
func (GoodsReceiptModel) TableName() string {
	return "goods_receipts"
}

// ToDomain converts the header and its items
func (m *GoodsReceiptModel) ToDomain(items []StockDocumentItemModel) *trade.GoodsReceipt {
	return &trade.GoodsReceipt{
		DocumentHeader: m.ToDomainHeader(),
		DocumentItems:  trade.DocumentItems{Items: toStockLines(items)},
		SupplierName:   m.SupplierName,
		Status:         trade.GoodsReceiptStatus(m.Status),
		ReceivedAt:     m.ReceivedAt,
	}
}

// FromDomain populates the header row
func (m *GoodsReceiptModel) FromDomain(r *trade.GoodsReceipt) {
	m.FromDomainHeader(r.DocumentHeader, r.Status.String())
	m.SupplierName = r.SupplierName
	m.ReceivedAt = r.ReceivedAt
}

// DeliveryNoteModel is the header row of a delivery note
type DeliveryNoteModel struct {
	DocumentHeaderModel
	CustomerName string `gorm:"type:varchar(200)"`
	ShippedAt    *time.Time
}

// TableName returns the table name for GORM
func (DeliveryNoteModel) TableName() string {
	return "delivery_notes"
}

// ToDomain converts the header and its items
func (m *DeliveryNoteModel) ToDomain(items []StockDocumentItemModel) *trade.DeliveryNote {
	return &trade.DeliveryNote{
		DocumentHeader: m.ToDomainHeader(),
		DocumentItems:  trade.DocumentItems{Items: toStockLines(items)},
		CustomerName:   m.CustomerName,
		Status:         trade.DeliveryNoteStatus(m.Status),
		ShippedAt:      m.ShippedAt,
	}
}

// FromDomain populates the header row
func (m *DeliveryNoteModel) FromDomain(n *trade.DeliveryNote) {
	m.FromDomainHeader(n.DocumentHeader, n.Status.String())
	m.CustomerName = n.CustomerName
	m.ShippedAt = n.ShippedAt
}

// CreditNoteModel is the header row of a customer credit note
type CreditNoteModel struct {
	DocumentHeaderModel
	CustomerName string `gorm:"type:varchar(200)"`
	RestockItems bool   `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (CreditNoteModel) TableName() string {
	return "credit_notes"
}

// ToDomain converts the header and its items
func (m *CreditNoteModel) ToDomain(items []StockDocumentItemModel) *trade.CreditNote {
	return &trade.CreditNote{
		DocumentHeader: m.ToDomainHeader(),
		DocumentItems:  trade.DocumentItems{Items: toStockLines(items)},
		CustomerName:   m.CustomerName,
		RestockItems:   m.RestockItems,
		Status:         trade.CreditNoteStatus(m.Status),
	}
}

// FromDomain populates the header row
func (m *CreditNoteModel) FromDomain(n *trade.CreditNote) {
	m.FromDomainHeader(n.DocumentHeader, n.Status.String())
	m.CustomerName = n.CustomerName
	m.RestockItems = n.RestockItems
}

// SupplierCreditNoteModel is the header row of a supplier credit note
type SupplierCreditNoteModel struct {
	DocumentHeaderModel
	SupplierName                 string `gorm:"type:varchar(200)"`
	ItemsReturnedToSupplierStock bool   `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (SupplierCreditNoteModel) TableName() string {
	return "supplier_credit_notes"
}

// ToDomain converts the header and its items
func (m *SupplierCreditNoteModel) ToDomain(items []StockDocumentItemModel) *trade.SupplierCreditNote {
	return &trade.SupplierCreditNote{
		DocumentHeader:               m.ToDomainHeader(),
		DocumentItems:                trade.DocumentItems{Items: toStockLines(items)},
		SupplierName:                 m.SupplierName,
		ItemsReturnedToSupplierStock: m.ItemsReturnedToSupplierStock,
		Status:                       trade.SupplierCreditNoteStatus(m.Status),
	}
}

// FromDomain populates the header row
func (m *SupplierCreditNoteModel) FromDomain(n *trade.SupplierCreditNote) {
	m.FromDomainHeader(n.DocumentHeader, n.Status.String())
	m.SupplierName = n.SupplierName
	m.ItemsReturnedToSupplierStock = n.ItemsReturnedToSupplierStock
}

// InventorySessionModel is the header row of a physical count
type InventorySessionModel struct {
	DocumentHeaderModel
	Name        string `gorm:"type:varchar(200);not null"`
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// TableName returns the table name for GORM
func (InventorySessionModel) TableName() string {
	return "inventory_sessions"
}

// ToDomain converts the header and its items, theoretical quantities included
func (m *InventorySessionModel) ToDomain(items []StockDocumentItemModel) *inventory.InventorySession {
	s := &inventory.InventorySession{
		DocumentHeader: m.ToDomainHeader(),
		Name:           m.Name,
		Status:         inventory.InventorySessionStatus(m.Status),
		StartedAt:      m.StartedAt,
		CompletedAt:    m.CompletedAt,
	}
	for i := range items {
		s.Items = append(s.Items, inventory.SessionItem{
			StockLine:           items[i].ToStockLine(),
			TheoreticalQuantity: items[i].TheoreticalQuantity,
		})
	}
	return s
}

// FromDomain populates the header row
func (m *InventorySessionModel) FromDomain(s *inventory.InventorySession) {
	m.FromDomainHeader(s.DocumentHeader, s.Status.String())
	m.Name = s.Name
	m.StartedAt = s.StartedAt
	m.CompletedAt = s.CompletedAt
}

// AllModels lists every model in migration order
func AllModels() []any {
	return []any{
		&UnitOfMeasureModel{},
		&ProductModel{},
		&StockMovementModel{},
		&GoodsReceiptModel{},
		&DeliveryNoteModel{},
		&CreditNoteModel{},
		&SupplierCreditNoteModel{},
		&InventorySessionModel{},
		&StockDocumentItemModel{},
	}
}
