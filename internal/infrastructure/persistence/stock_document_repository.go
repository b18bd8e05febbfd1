package persistence

import (
	"context"
	"errors"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/trade"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStockDocumentRepository implements StockDocumentRepository for every
// document family. Headers live in one table per family; items share
// stock_document_items keyed by document kind.
type GormStockDocumentRepository struct {
	db *gorm.DB
}

// NewGormStockDocumentRepository creates a new GormStockDocumentRepository
func NewGormStockDocumentRepository(db *gorm.DB) *GormStockDocumentRepository {
	return &GormStockDocumentRepository{db: db}
}

// Create inserts the header and items of a new document
func (r *GormStockDocumentRepository) Create(ctx context.Context, doc inventory.StockDocument) error {
	header, err := headerModel(doc)
	if err != nil {
		return err
	}
	db := r.db.WithContext(ctx)
	if err := db.Create(header).Error; err != nil {
		return err
	}
	items := models.ItemModelsFromDocument(doc)
	if len(items) == 0 {
		return nil
	}
	return db.Create(&items).Error
}

// FindByRef loads a document with its items
func (r *GormStockDocumentRepository) FindByRef(ctx context.Context, tenantID uuid.UUID, ref inventory.DocumentRef) (inventory.StockDocument, error) {
	return r.load(r.db.WithContext(ctx), tenantID, ref, false)
}

// FindByRefForUpdate loads a document and locks its header row on PostgreSQL
func (r *GormStockDocumentRepository) FindByRefForUpdate(ctx context.Context, tenantID uuid.UUID, ref inventory.DocumentRef) (inventory.StockDocument, error) {
	return r.load(r.db.WithContext(ctx), tenantID, ref, true)
}

func (r *GormStockDocumentRepository) load(db *gorm.DB, tenantID uuid.UUID, ref inventory.DocumentRef, lock bool) (inventory.StockDocument, error) {
	switch ref.Kind {
	case inventory.DocumentKindGoodsReceipt:
		m, items, err := loadDocument[models.GoodsReceiptModel](db, tenantID, ref, lock)
		if err != nil {
			return nil, err
		}
		return m.ToDomain(items), nil
	case inventory.DocumentKindDeliveryNote:
		m, items, err := loadDocument[models.DeliveryNoteModel](db, tenantID, ref, lock)
		if err != nil {
			return nil, err
		}
		return m.ToDomain(items), nil
	case inventory.DocumentKindCreditNote:
		m, items, err := loadDocument[models.CreditNoteModel](db, tenantID, ref, lock)
		if err != nil {
			return nil, err
		}
		return m.ToDomain(items), nil
	case inventory.DocumentKindSupplierCreditNote:
		m, items, err := loadDocument[models.SupplierCreditNoteModel](db, tenantID, ref, lock)
		if err != nil {
			return nil, err
		}
		return m.ToDomain(items), nil
	case inventory.DocumentKindInventorySession:
		m, items, err := loadDocument[models.InventorySessionModel](db, tenantID, ref, lock)
		if err != nil {
			return nil, err
		}
		return m.ToDomain(items), nil
	}
	return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unsupported document kind: "+ref.Kind.String())
}

func loadDocument[T any](db *gorm.DB, tenantID uuid.UUID, ref inventory.DocumentRef, lock bool) (*T, []models.StockDocumentItemModel, error) {
	query := db
	if lock {
		query = forUpdate(db)
	}
	var header T
	if err := query.
		Where("tenant_id = ? AND id = ?", tenantID, ref.ID).
		First(&header).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, shared.NewDomainError(shared.CodeNotFound, "Document not found: "+ref.String())
		}
		return nil, nil, err
	}
	var items []models.StockDocumentItemModel
	if err := db.
		Where("tenant_id = ? AND document_kind = ? AND document_id = ?", tenantID, ref.Kind.String(), ref.ID).
		Order("line_no ASC").
		Find(&items).Error; err != nil {
		return nil, nil, err
	}
	return &header, items, nil
}

// SaveTransition stores the header when its version still equals
// expectedVersion, then the converted quantities of every item.
func (r *GormStockDocumentRepository) SaveTransition(ctx context.Context, doc inventory.StockDocument, expectedVersion int) error {
	header, err := headerModel(doc)
	if err != nil {
		return err
	}
	db := r.db.WithContext(ctx)
	result := db.Model(header).
		Where("tenant_id = ? AND version = ?", doc.Tenant(), expectedVersion).
		Select("*").
		Omit("id", "tenant_id", "created_by", "created_at").
		Updates(header)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeConcurrencyConflict, doc.Ref().String()+" was modified by another transaction")
	}

	for _, item := range models.ItemModelsFromDocument(doc) {
		if err := db.Model(&models.StockDocumentItemModel{}).
			Where("id = ?", item.ID).
			Updates(map[string]interface{}{
				"quantity":             item.Quantity,
				"stock_unit_quantity":  item.StockUnitQuantity,
				"theoretical_quantity": item.TheoreticalQuantity,
				"updated_at":           item.UpdatedAt,
			}).Error; err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a document and its items
func (r *GormStockDocumentRepository) Delete(ctx context.Context, tenantID uuid.UUID, ref inventory.DocumentRef) error {
	header, err := emptyHeader(ref.Kind)
	if err != nil {
		return err
	}
	db := r.db.WithContext(ctx)
	if err := db.Where("tenant_id = ? AND document_kind = ? AND document_id = ?", tenantID, ref.Kind.String(), ref.ID).
		Delete(&models.StockDocumentItemModel{}).Error; err != nil {
		return err
	}
	result := db.Where("tenant_id = ? AND id = ?", tenantID, ref.ID).Delete(header)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteItem removes one item of a document
func (r *GormStockDocumentRepository) DeleteItem(ctx context.Context, tenantID uuid.UUID, ref inventory.DocumentRef, itemID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND document_kind = ? AND document_id = ? AND id = ?", tenantID, ref.Kind.String(), ref.ID, itemID).
		Delete(&models.StockDocumentItemModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func headerModel(doc inventory.StockDocument) (interface{}, error) {
	switch d := doc.(type) {
	case *trade.GoodsReceipt:
		m := &models.GoodsReceiptModel{}
		m.FromDomain(d)
		return m, nil
	case *trade.DeliveryNote:
		m := &models.DeliveryNoteModel{}
		m.FromDomain(d)
		return m, nil
	case *trade.CreditNote:
		m := &models.CreditNoteModel{}
		m.FromDomain(d)
		return m, nil
	case *trade.SupplierCreditNote:
		m := &models.SupplierCreditNoteModel{}
		m.FromDomain(d)
		return m, nil
	case *inventory.InventorySession:
		m := &models.InventorySessionModel{}
		m.FromDomain(d)
		return m, nil
	}
	return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unsupported document kind: "+doc.Ref().Kind.String())
}

func emptyHeader(kind inventory.DocumentKind) (interface{}, error) {
	switch kind {
	case inventory.DocumentKindGoodsReceipt:
		return &models.GoodsReceiptModel{}, nil
	case inventory.DocumentKindDeliveryNote:
		return &models.DeliveryNoteModel{}, nil
	case inventory.DocumentKindCreditNote:
		return &models.CreditNoteModel{}, nil
	case inventory.DocumentKindSupplierCreditNote:
		return &models.SupplierCreditNoteModel{}, nil
	case inventory.DocumentKindInventorySession:
		return &models.InventorySessionModel{}, nil
	}
	return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unsupported document kind: "+kind.String())
}

var _ inventory.StockDocumentRepository = (*GormStockDocumentRepository)(nil)
