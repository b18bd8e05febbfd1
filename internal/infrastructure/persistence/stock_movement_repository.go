package persistence

import (
	"context"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockMovementRepository implements StockMovementRepository using GORM.
// Rows are only ever inserted.
type GormStockMovementRepository struct {
	db *gorm.DB
}

// NewGormStockMovementRepository creates a new GormStockMovementRepository
func NewGormStockMovementRepository(db *gorm.DB) *GormStockMovementRepository {
	return &GormStockMovementRepository{db: db}
}

// Exists checks the structural posting key
func (r *GormStockMovementRepository) Exists(ctx context.Context, key inventory.PostingKey) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.StockMovementModel{}).
		Where("tenant_id = ? AND document_kind = ? AND document_id = ? AND source_item_key = ? AND product_id = ? AND type = ? AND generation = ?",
			key.TenantID, key.Document.Kind.String(), key.Document.ID, key.SourceItemKey, key.ProductID, key.Type.String(), key.Generation).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts the movement. A conflict on the posting key inserts nothing
// and reports false.
func (r *GormStockMovementRepository) Create(ctx context.Context, movement *inventory.StockMovement) (bool, error) {
	var row models.StockMovementModel
	row.FromDomain(movement)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "tenant_id"}, {Name: "document_kind"}, {Name: "document_id"},
				{Name: "source_item_key"}, {Name: "product_id"}, {Name: "type"}, {Name: "generation"},
			},
			DoNothing: true,
		}).
		Create(&row)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FindForward returns the reversible movements a document generation posted
func (r *GormStockMovementRepository) FindForward(ctx context.Context, tenantID uuid.UUID, ref inventory.DocumentRef, generation int, sourceItemID *uuid.UUID) ([]inventory.StockMovement, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND document_kind = ? AND document_id = ? AND generation = ?",
			tenantID, ref.Kind.String(), ref.ID, generation).
		Where("type IN ?", forwardTypes())
	if sourceItemID != nil {
		query = query.Where("source_item_key = ?", *sourceItemID)
	}
	var rows []models.StockMovementModel
	if err := query.Order("sequence ASC").Order("product_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toMovements(rows), nil
}

// FindByProduct returns a page of a product's movements
func (r *GormStockMovementRepository) FindByProduct(ctx context.Context, tenantID, productID uuid.UUID, filter shared.Filter) ([]inventory.StockMovement, int64, error) {
	filter = filter.Normalize()
	base := r.db.WithContext(ctx).Model(&models.StockMovementModel{}).
		Where("tenant_id = ? AND product_id = ?", tenantID, productID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.StockMovementModel
	if err := base.Session(&gorm.Session{}).
		Order(movementOrder.Clause(filter.OrderBy, filter.OrderDir)).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toMovements(rows), total, nil
}

// SumByProduct returns the signed sum of a product's movements
func (r *GormStockMovementRepository) SumByProduct(ctx context.Context, tenantID, productID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	if err := r.db.WithContext(ctx).Model(&models.StockMovementModel{}).
		Select("SUM(quantity_changed)").
		Where("tenant_id = ? AND product_id = ?", tenantID, productID).
		Scan(&sum).Error; err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

type productSum struct {
	ProductID uuid.UUID
	Total     decimal.Decimal
}

// SumAll returns the signed movement sum of every product of a tenant
func (r *GormStockMovementRepository) SumAll(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	var rows []productSum
	if err := r.db.WithContext(ctx).Model(&models.StockMovementModel{}).
		Select("product_id, SUM(quantity_changed) AS total").
		Where("tenant_id = ?", tenantID).
		Group("product_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	sums := make(map[uuid.UUID]decimal.Decimal, len(rows))
	for _, row := range rows {
		sums[row.ProductID] = row.Total
	}
	return sums, nil
}

func forwardTypes() []string {
	reversible := inventory.ReversibleTypes()
	types := make([]string, len(reversible))
	for i, t := range reversible {
		types[i] = t.String()
	}
	return types
}

func toMovements(rows []models.StockMovementModel) []inventory.StockMovement {
	movements := make([]inventory.StockMovement, len(rows))
	for i := range rows {
		movements[i] = rows[i].ToDomain()
	}
	return movements
}

var _ inventory.StockMovementRepository = (*GormStockMovementRepository)(nil)
