package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByIDForTenant finds a product by ID within a tenant
func (r *GormProductRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*catalog.Product, error) {
	return r.findOne(r.db.WithContext(ctx), tenantID, id)
}

// FindByIDForUpdate finds a product and takes a row lock on dialects that support it.
// SQLite serializes writers on its own, so the lock clause is only added for PostgreSQL.
func (r *GormProductRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*catalog.Product, error) {
	return r.findOne(forUpdate(r.db.WithContext(ctx)), tenantID, id)
}

func (r *GormProductRepository) findOne(db *gorm.DB, tenantID, id uuid.UUID) (*catalog.Product, error) {
	var row models.ProductModel
	if err := db.Where("tenant_id = ? AND id = ?", tenantID, id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, "Product not found: "+id.String())
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

// FindByIDs finds the given products within a tenant; missing IDs are simply absent
func (r *GormProductRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return []catalog.Product{}, nil
	}
	var rows []models.ProductModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	products := make([]catalog.Product, len(rows))
	for i := range rows {
		products[i] = *rows[i].ToDomain()
	}
	return products, nil
}

// ExistsByCode checks if a product with the given code exists in a tenant
func (r *GormProductRepository) ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ProductModel{}).
		Where("tenant_id = ? AND code = ?", tenantID, strings.ToUpper(code)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a new product
func (r *GormProductRepository) Create(ctx context.Context, product *catalog.Product) error {
	var row models.ProductModel
	row.FromDomain(product)
	return r.db.WithContext(ctx).Create(&row).Error
}

// ApplyStockDelta increments the balance and the ledger sequence in one
// statement, then reads both back inside the same transaction.
func (r *GormProductRepository) ApplyStockDelta(ctx context.Context, tenantID, id uuid.UUID, delta decimal.Decimal) (catalog.StockSnapshot, error) {
	if err := r.shiftStock(ctx, tenantID, id, delta, 1); err != nil {
		return catalog.StockSnapshot{}, err
	}
	var row models.ProductModel
	if err := r.db.WithContext(ctx).
		Select("id", "stock_quantity", "ledger_sequence").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&row).Error; err != nil {
		return catalog.StockSnapshot{}, err
	}
	return catalog.StockSnapshot{
		ProductID:      row.ID,
		StockQuantity:  row.StockQuantity,
		LedgerSequence: row.LedgerSequence,
	}, nil
}

// RevertStockDelta undoes an ApplyStockDelta whose movement was rejected
func (r *GormProductRepository) RevertStockDelta(ctx context.Context, tenantID, id uuid.UUID, delta decimal.Decimal) error {
	return r.shiftStock(ctx, tenantID, id, delta.Neg(), -1)
}

func (r *GormProductRepository) shiftStock(ctx context.Context, tenantID, id uuid.UUID, delta decimal.Decimal, step int64) error {
	result := r.db.WithContext(ctx).Model(&models.ProductModel{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		UpdateColumns(map[string]interface{}{
			"stock_quantity":  gorm.Expr("stock_quantity + ?", delta),
			"ledger_sequence": gorm.Expr("ledger_sequence + ?", step),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeNotFound, "Product not found: "+id.String())
	}
	return nil
}

// ListStock returns the cached balance of every product of a tenant
func (r *GormProductRepository) ListStock(ctx context.Context, tenantID uuid.UUID) ([]catalog.StockSnapshot, error) {
	var rows []models.ProductModel
	if err := r.db.WithContext(ctx).
		Select("id", "stock_quantity", "ledger_sequence").
		Where("tenant_id = ?", tenantID).
		Order("code ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	stock := make([]catalog.StockSnapshot, len(rows))
	for i := range rows {
		stock[i] = catalog.StockSnapshot{
			ProductID:      rows[i].ID,
			StockQuantity:  rows[i].StockQuantity,
			LedgerSequence: rows[i].LedgerSequence,
		}
	}
	return stock, nil
}

// forUpdate adds SELECT ... FOR UPDATE on PostgreSQL
func forUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "postgres" {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)
