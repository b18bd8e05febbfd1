package catalog

import (
	"fmt"
	"sort"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// UnitGraph is the validated two-level unit tree: canonical units and the
// units derived from them. It is immutable once built.
type UnitGraph struct {
	byID    map[uuid.UUID]*UnitOfMeasure
	byCode  map[string]*UnitOfMeasure
	derived map[uuid.UUID][]*UnitOfMeasure
}

// NewUnitGraph validates units and builds the graph.
// A derived unit must point at a canonical unit of the same category with a positive factor.
func NewUnitGraph(units []UnitOfMeasure) (*UnitGraph, error) {
	g := &UnitGraph{
		byID:    make(map[uuid.UUID]*UnitOfMeasure, len(units)),
		byCode:  make(map[string]*UnitOfMeasure, len(units)),
		derived: make(map[uuid.UUID][]*UnitOfMeasure),
	}
	for i := range units {
		u := units[i]
		if _, dup := g.byID[u.ID]; dup {
			return nil, invalidGraph("duplicate unit id %s", u.ID)
		}
		if _, dup := g.byCode[u.Code]; dup {
			return nil, invalidGraph("duplicate unit code %s", u.Code)
		}
		g.byID[u.ID] = &u
		g.byCode[u.Code] = &u
	}

	for _, u := range g.byID {
		if u.IsCanonical() {
			continue
		}
		base, ok := g.byID[*u.BaseUnitID]
		if !ok {
			return nil, invalidGraph("unit %s references unknown base unit %s", u.Code, *u.BaseUnitID)
		}
		if !base.IsCanonical() {
			return nil, invalidGraph("unit %s has derived base %s; depth must be 1", u.Code, base.Code)
		}
		if base.Category != u.Category {
			return nil, invalidGraph("unit %s (%s) cannot derive from %s (%s)", u.Code, u.Category, base.Code, base.Category)
		}
		if !u.ConversionFactor.IsPositive() {
			return nil, invalidGraph("unit %s has non-positive conversion factor %s", u.Code, u.ConversionFactor)
		}
		g.derived[base.ID] = append(g.derived[base.ID], u)
	}
	return g, nil
}

func invalidGraph(format string, args ...any) error {
	return shared.NewDomainError("INVALID_UNIT_GRAPH", fmt.Sprintf(format, args...))
}

// Unit returns the unit with the given ID
func (g *UnitGraph) Unit(id uuid.UUID) (*UnitOfMeasure, bool) {
	u, ok := g.byID[id]
	return u, ok
}

// UnitByCode returns the unit with the given code
func (g *UnitGraph) UnitByCode(code string) (*UnitOfMeasure, bool) {
	u, ok := g.byCode[code]
	return u, ok
}

// Family returns the canonical unit of id plus every unit derived from it, sorted by code
func (g *UnitGraph) Family(id uuid.UUID) []UnitOfMeasure {
	u, ok := g.byID[id]
	if !ok {
		return nil
	}
	canonical := g.byID[u.CanonicalID()]
	family := []UnitOfMeasure{*canonical}
	for _, d := range g.derived[canonical.ID] {
		family = append(family, *d)
	}
	sortUnits(family)
	return family
}

// Units returns all units sorted by code
func (g *UnitGraph) Units() []UnitOfMeasure {
	all := make([]UnitOfMeasure, 0, len(g.byID))
	for _, u := range g.byID {
		all = append(all, *u)
	}
	sortUnits(all)
	return all
}

// Len returns the number of units in the graph
func (g *UnitGraph) Len() int {
	return len(g.byID)
}

func sortUnits(units []UnitOfMeasure) {
	sort.Slice(units, func(i, j int) bool { return units[i].Code < units[j].Code })
}
