package telemetry

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStockLevelProvider reads stock level aggregates straight from the
// products table.
type GormStockLevelProvider struct {
	db *gorm.DB
}

// NewGormStockLevelProvider creates a new GormStockLevelProvider.
func NewGormStockLevelProvider(db *gorm.DB) *GormStockLevelProvider {
	return &GormStockLevelProvider{db: db}
}

// CountBelowMinimum returns, per tenant, how many products hold less stock
// than their min_stock threshold.
func (p *GormStockLevelProvider) CountBelowMinimum(ctx context.Context) (map[uuid.UUID]int64, error) {
	type result struct {
		TenantID uuid.UUID `gorm:"column:tenant_id"`
		Count    int64     `gorm:"column:below_minimum"`
	}

	var results []result
	err := p.db.WithContext(ctx).
		Table("products").
		Select("tenant_id, COUNT(*) AS below_minimum").
		Where("min_stock IS NOT NULL AND stock_quantity < min_stock").
		Group("tenant_id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}

	m := make(map[uuid.UUID]int64, len(results))
	for _, r := range results {
		m[r.TenantID] = r.Count
	}
	return m, nil
}
