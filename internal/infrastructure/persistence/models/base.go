package models

import (
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// AggregateModel provides common persistence fields for aggregate roots.
// It extends BaseModel with version for optimistic locking.
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

// FromDomainAggregateRoot populates AggregateModel from domain BaseAggregateRoot
func (m *AggregateModel) FromDomainAggregateRoot(a shared.BaseAggregateRoot) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.Version = a.Version
}

// TenantAggregateModel provides common persistence fields for tenant-scoped aggregate roots.
// It extends AggregateModel with tenant ID and creator info.
type TenantAggregateModel struct {
	AggregateModel
	TenantID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	CreatedBy *uuid.UUID `gorm:"type:uuid;index"`
}

// FromDomainTenantAggregateRoot populates TenantAggregateModel from domain TenantAggregateRoot
func (m *TenantAggregateModel) FromDomainTenantAggregateRoot(t shared.TenantAggregateRoot) {
	m.FromDomainAggregateRoot(t.BaseAggregateRoot)
	m.TenantID = t.TenantID
	m.CreatedBy = t.CreatedBy
}

// ToTenantAggregateRoot converts the shared columns back to the domain root
func (m *TenantAggregateModel) ToTenantAggregateRoot() shared.TenantAggregateRoot {
	return shared.TenantAggregateRoot{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: m.ToDomain(),
			Version:    m.Version,
		},
		TenantID:  m.TenantID,
		CreatedBy: m.CreatedBy,
	}
}

// DocumentHeaderModel holds the columns every stock document table shares
type DocumentHeaderModel struct {
	TenantAggregateModel
	DocumentNumber  string     `gorm:"type:varchar(50);not null;index"`
	Status          string     `gorm:"type:varchar(20);not null;index"`
	StockGeneration int        `gorm:"not null;default:0"`
	StatusChangedBy *uuid.UUID `gorm:"type:uuid"`
	StatusChangedAt *time.Time
}

// FromDomainHeader populates the shared document columns
func (m *DocumentHeaderModel) FromDomainHeader(h inventory.DocumentHeader, status string) {
	m.FromDomainTenantAggregateRoot(h.TenantAggregateRoot)
	m.DocumentNumber = h.DocumentNumber
	m.Status = status
	m.StockGeneration = h.StockGeneration
	m.StatusChangedBy = h.StatusChangedBy
	m.StatusChangedAt = h.StatusChangedAt
}

// ToDomainHeader converts the shared document columns
func (m *DocumentHeaderModel) ToDomainHeader() inventory.DocumentHeader {
	return inventory.DocumentHeader{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		DocumentNumber:      m.DocumentNumber,
		StockGeneration:     m.StockGeneration,
		StatusChangedBy:     m.StatusChangedBy,
		StatusChangedAt:     m.StatusChangedAt,
	}
}
