package catalog

import (
	"strings"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnitCategory groups units that measure the same physical dimension
type UnitCategory string

const (
	UnitCategoryCountable UnitCategory = "countable"
	UnitCategoryWeight    UnitCategory = "weight"
	UnitCategoryVolume    UnitCategory = "volume"
	UnitCategoryLength    UnitCategory = "length"
)

// IsValid returns true if the category is known
func (c UnitCategory) IsValid() bool {
	switch c {
	case UnitCategoryCountable, UnitCategoryWeight, UnitCategoryVolume, UnitCategoryLength:
		return true
	}
	return false
}

// UnitOfMeasure is reference data describing a measurement unit.
// A unit with no BaseUnitID is canonical for its category. A derived unit
// points at a canonical unit: 1 derived unit = ConversionFactor canonical units.
type UnitOfMeasure struct {
	ID               uuid.UUID
	Code             string
	Name             string
	Symbol           string
	Category         UnitCategory
	BaseUnitID       *uuid.UUID
	ConversionFactor decimal.Decimal
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewCanonicalUnit creates a unit that is the reference frame of its category
func NewCanonicalUnit(code, name, symbol string, category UnitCategory) (*UnitOfMeasure, error) {
	if err := validateUnitCode(code); err != nil {
		return nil, err
	}
	if err := validateUnitName(name); err != nil {
		return nil, err
	}
	if !category.IsValid() {
		return nil, shared.NewDomainError("INVALID_UNIT_CATEGORY", "Unknown unit category: "+string(category))
	}
	now := time.Now()
	return &UnitOfMeasure{
		ID:               uuid.New(),
		Code:             strings.ToUpper(code),
		Name:             name,
		Symbol:           symbol,
		Category:         category,
		ConversionFactor: decimal.NewFromInt(1),
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// NewDerivedUnit creates a unit expressed as factor multiples of base
func NewDerivedUnit(code, name, symbol string, base *UnitOfMeasure, factor decimal.Decimal) (*UnitOfMeasure, error) {
	if base == nil {
		return nil, shared.NewDomainError("INVALID_BASE_UNIT", "Base unit is required for a derived unit")
	}
	if !base.IsCanonical() {
		return nil, shared.NewDomainError("INVALID_BASE_UNIT", "Base unit "+base.Code+" is itself derived; chains are not allowed")
	}
	if err := validateConversionFactor(factor); err != nil {
		return nil, err
	}
	u, err := NewCanonicalUnit(code, name, symbol, base.Category)
	if err != nil {
		return nil, err
	}
	baseID := base.ID
	u.BaseUnitID = &baseID
	u.ConversionFactor = factor
	return u, nil
}

// IsCanonical returns true if the unit has no base unit
func (u *UnitOfMeasure) IsCanonical() bool {
	return u.BaseUnitID == nil
}

// CanonicalID returns the ID of the canonical unit this unit resolves to
func (u *UnitOfMeasure) CanonicalID() uuid.UUID {
	if u.BaseUnitID == nil {
		return u.ID
	}
	return *u.BaseUnitID
}

// Factor returns the conversion factor to the canonical unit (1 for canonical units)
func (u *UnitOfMeasure) Factor() decimal.Decimal {
	if u.IsCanonical() {
		return decimal.NewFromInt(1)
	}
	return u.ConversionFactor
}

func validateUnitCode(code string) error {
	if strings.TrimSpace(code) == "" {
		return shared.NewDomainError("INVALID_UNIT_CODE", "Unit code cannot be empty")
	}
	if len(code) > 20 {
		return shared.NewDomainError("INVALID_UNIT_CODE", "Unit code cannot exceed 20 characters")
	}
	return nil
}

func validateUnitName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_UNIT_NAME", "Unit name cannot be empty")
	}
	if len(name) > 50 {
		return shared.NewDomainError("INVALID_UNIT_NAME", "Unit name cannot exceed 50 characters")
	}
	return nil
}

func validateConversionFactor(factor decimal.Decimal) error {
	if !factor.IsPositive() {
		return shared.NewDomainError("INVALID_CONVERSION_FACTOR", "Conversion factor must be positive")
	}
	return nil
}
