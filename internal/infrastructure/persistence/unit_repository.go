package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormUnitRepository implements UnitRepository using GORM
type GormUnitRepository struct {
	db *gorm.DB
}

// NewGormUnitRepository creates a new GormUnitRepository
func NewGormUnitRepository(db *gorm.DB) *GormUnitRepository {
	return &GormUnitRepository{db: db}
}

// FindAll returns every unit ordered by code
func (r *GormUnitRepository) FindAll(ctx context.Context) ([]catalog.UnitOfMeasure, error) {
	var rows []models.UnitOfMeasureModel
	if err := r.db.WithContext(ctx).Order("code ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	units := make([]catalog.UnitOfMeasure, len(rows))
	for i := range rows {
		units[i] = rows[i].ToDomain()
	}
	return units, nil
}

// FindByCode finds a unit by its code
func (r *GormUnitRepository) FindByCode(ctx context.Context, code string) (*catalog.UnitOfMeasure, error) {
	var row models.UnitOfMeasureModel
	if err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(code)).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	unit := row.ToDomain()
	return &unit, nil
}

// SaveIfAbsent inserts the unit unless its code is already stored
func (r *GormUnitRepository) SaveIfAbsent(ctx context.Context, unit *catalog.UnitOfMeasure) error {
	var row models.UnitOfMeasureModel
	row.FromDomain(unit)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).
		Create(&row).Error
}

var _ catalog.UnitRepository = (*GormUnitRepository)(nil)
