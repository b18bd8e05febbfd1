package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// UnitService exposes unit conversion over the stored unit graph.
// The graph is cached after the first load and refreshed by SeedDefaults.
type UnitService struct {
	unitRepo    catalog.UnitRepository
	productRepo catalog.ProductRepository
	logger      *zap.Logger

	mu    sync.RWMutex
	graph *catalog.UnitGraph
}

// NewUnitService creates a new UnitService
func NewUnitService(unitRepo catalog.UnitRepository, productRepo catalog.ProductRepository, logger *zap.Logger) *UnitService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UnitService{
		unitRepo:    unitRepo,
		productRepo: productRepo,
		logger:      logger,
	}
}

// Graph returns the validated unit graph
func (s *UnitService) Graph(ctx context.Context) (*catalog.UnitGraph, error) {
	s.mu.RLock()
	g := s.graph
	s.mu.RUnlock()
	if g != nil {
		return g, nil
	}

	units, err := s.unitRepo.FindAll(ctx)
	if err != nil {
		return nil, shared.NewPersistenceError("load units", err)
	}
	g, err = catalog.NewUnitGraph(units)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.graph = g
	s.mu.Unlock()
	return g, nil
}

// Invalidate drops the cached graph
func (s *UnitService) Invalidate() {
	s.mu.Lock()
	s.graph = nil
	s.mu.Unlock()
}

func (s *UnitService) conversion(ctx context.Context) (*catalog.UnitConversionService, error) {
	g, err := s.Graph(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.NewUnitConversionService(g), nil
}

// ListUnits returns every unit sorted by code
func (s *UnitService) ListUnits(ctx context.Context) ([]UnitResponse, error) {
	g, err := s.Graph(ctx)
	if err != nil {
		return nil, err
	}
	return ToUnitResponses(g.Units()), nil
}

// Convert expresses qty in to. When productID is set the product names any conversion error.
func (s *UnitService) Convert(ctx context.Context, tenantID uuid.UUID, qty decimal.Decimal, from, to uuid.UUID, productID *uuid.UUID) (*ConvertResponse, error) {
	conv, err := s.conversion(ctx)
	if err != nil {
		return nil, err
	}
	var product *catalog.Product
	if productID != nil {
		product, err = s.productRepo.FindByIDForTenant(ctx, tenantID, *productID)
		if err != nil {
			return nil, err
		}
	}
	factor, err := conv.Factor(from, to, product)
	if err != nil {
		return nil, err
	}
	converted, err := conv.Convert(qty, from, to, product)
	if err != nil {
		return nil, err
	}
	fromUnit, _ := conv.Graph().Unit(from)
	toUnit, _ := conv.Graph().Unit(to)
	return &ConvertResponse{
		Quantity:  qty,
		FromUnit:  fromUnit.Code,
		ToUnit:    toUnit.Code,
		Factor:    factor,
		Converted: converted,
	}, nil
}

// CanConvert reports whether a quantity in from can be expressed in to
func (s *UnitService) CanConvert(ctx context.Context, from, to uuid.UUID) (bool, error) {
	conv, err := s.conversion(ctx)
	if err != nil {
		return false, err
	}
	return conv.CanConvert(from, to), nil
}

// ResolveUnit accepts a unit ID or a unit code
func (s *UnitService) ResolveUnit(ctx context.Context, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	g, err := s.Graph(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	code := strings.TrimSpace(ref)
	u, ok := g.UnitByCode(code)
	if !ok {
		u, ok = g.UnitByCode(strings.ToUpper(code))
	}
	if !ok {
		return uuid.Nil, shared.NewDomainError(shared.CodeNotFound, "Unit "+ref+" not found")
	}
	return u.ID, nil
}

// CompatibleUnits returns the units a product may be transacted in
func (s *UnitService) CompatibleUnits(ctx context.Context, tenantID, productID uuid.UUID) ([]UnitResponse, error) {
	conv, err := s.conversion(ctx)
	if err != nil {
		return nil, err
	}
	product, err := s.productRepo.FindByIDForTenant(ctx, tenantID, productID)
	if err != nil {
		return nil, err
	}
	return ToUnitResponses(conv.CompatibleUnits(product)), nil
}

// SeedDefaults inserts the default units that are not stored yet.
// Existing units are matched by code and keep their IDs.
func (s *UnitService) SeedDefaults(ctx context.Context) (int, error) {
	stored := make(map[uuid.UUID]uuid.UUID)
	inserted := 0
	for _, u := range catalog.DefaultUnits() {
		unit := u
		if unit.BaseUnitID != nil {
			baseID, ok := stored[*unit.BaseUnitID]
			if !ok {
				return inserted, shared.NewDomainError("INVALID_UNIT_GRAPH", "Base unit of "+unit.Code+" was not seeded")
			}
			unit.BaseUnitID = &baseID
		}

		existing, err := s.unitRepo.FindByCode(ctx, unit.Code)
		switch {
		case err == nil:
			stored[u.ID] = existing.ID
			continue
		case !errors.Is(err, shared.ErrNotFound):
			return inserted, shared.NewPersistenceError("find unit", err)
		}
		if err := s.unitRepo.SaveIfAbsent(ctx, &unit); err != nil {
			return inserted, shared.NewPersistenceError("seed unit", err)
		}
		saved, err := s.unitRepo.FindByCode(ctx, unit.Code)
		if err != nil {
			return inserted, shared.NewPersistenceError("find unit", err)
		}
		stored[u.ID] = saved.ID
		inserted++
	}
	s.Invalidate()
	if inserted > 0 {
		s.logger.Info("default units seeded", zap.Int("inserted", inserted))
	}
	return inserted, nil
}
