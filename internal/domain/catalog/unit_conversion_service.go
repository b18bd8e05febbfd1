package catalog

import (
	"fmt"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnsupportedConversionError is returned when two units are not related by the unit graph.
type UnsupportedConversionError struct {
	FromUnit string
	ToUnit   string
	Product  string
}

func (e *UnsupportedConversionError) Error() string {
	if e.Product != "" {
		return fmt.Sprintf("cannot convert from %s to %s for product %s", e.FromUnit, e.ToUnit, e.Product)
	}
	return fmt.Sprintf("cannot convert from %s to %s", e.FromUnit, e.ToUnit)
}

// ErrorCode returns UNSUPPORTED_CONVERSION
func (e *UnsupportedConversionError) ErrorCode() string {
	return shared.CodeUnsupportedConversion
}

// Is matches shared.ErrUnsupportedConversion
func (e *UnsupportedConversionError) Is(target error) bool {
	return target == shared.ErrUnsupportedConversion
}

// UnitConversionService resolves conversion factors over a UnitGraph.
// It is a domain service: stateless apart from the immutable graph.
type UnitConversionService struct {
	graph *UnitGraph
}

// NewUnitConversionService creates a conversion service over graph
func NewUnitConversionService(graph *UnitGraph) *UnitConversionService {
	return &UnitConversionService{graph: graph}
}

// Graph returns the underlying unit graph
func (s *UnitConversionService) Graph() *UnitGraph {
	return s.graph
}

// Factor returns the multiplier that converts a quantity in from into to.
// product is optional and only used to make the error actionable.
func (s *UnitConversionService) Factor(from, to uuid.UUID, product *Product) (decimal.Decimal, error) {
	num, den, ok := s.ratio(from, to)
	if !ok {
		return decimal.Zero, s.unsupported(from, to, product)
	}
	return num.Div(den), nil
}

// Convert expresses qty (in from) in to. It never falls back to a factor of 1.
func (s *UnitConversionService) Convert(qty decimal.Decimal, from, to uuid.UUID, product *Product) (decimal.Decimal, error) {
	num, den, ok := s.ratio(from, to)
	if !ok {
		return decimal.Zero, s.unsupported(from, to, product)
	}
	// multiply before dividing so integral results stay exact
	return qty.Mul(num).Div(den), nil
}

// CanConvert reports whether Convert would succeed for the pair
func (s *UnitConversionService) CanConvert(from, to uuid.UUID) bool {
	_, _, ok := s.ratio(from, to)
	return ok
}

// CompatibleUnits returns the units a product may be transacted in: the
// families (canonical unit plus siblings) of its stock, purchase and sales units.
func (s *UnitConversionService) CompatibleUnits(product *Product) []UnitOfMeasure {
	seen := make(map[uuid.UUID]bool)
	var result []UnitOfMeasure
	for _, id := range product.BoundUnitIDs() {
		for _, u := range s.graph.Family(id) {
			if seen[u.ID] {
				continue
			}
			seen[u.ID] = true
			result = append(result, u)
		}
	}
	sortUnits(result)
	return result
}

// ratio implements the case analysis shared by Factor, Convert and CanConvert.
// The factor is num/den.
func (s *UnitConversionService) ratio(from, to uuid.UUID) (num, den decimal.Decimal, ok bool) {
	one := decimal.NewFromInt(1)
	f, okFrom := s.graph.Unit(from)
	t, okTo := s.graph.Unit(to)
	if !okFrom || !okTo {
		return decimal.Zero, decimal.Zero, false
	}
	switch {
	case f.ID == t.ID:
		return one, one, true
	case f.BaseUnitID != nil && *f.BaseUnitID == t.ID:
		return f.ConversionFactor, one, true
	case t.BaseUnitID != nil && *t.BaseUnitID == f.ID:
		return one, t.ConversionFactor, true
	case f.BaseUnitID != nil && t.BaseUnitID != nil && *f.BaseUnitID == *t.BaseUnitID:
		return f.ConversionFactor, t.ConversionFactor, true
	}
	return decimal.Zero, decimal.Zero, false
}

func (s *UnitConversionService) unsupported(from, to uuid.UUID, product *Product) error {
	err := &UnsupportedConversionError{
		FromUnit: s.label(from),
		ToUnit:   s.label(to),
	}
	if product != nil {
		err.Product = fmt.Sprintf("%s (%s)", product.Code, product.Name)
	}
	return err
}

func (s *UnitConversionService) label(id uuid.UUID) string {
	if u, ok := s.graph.Unit(id); ok {
		return u.Code
	}
	return "unknown unit " + id.String()
}
