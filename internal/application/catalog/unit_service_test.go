package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockUnitRepository is a mock implementation of UnitRepository
type MockUnitRepository struct {
	mock.Mock
}

func (m *MockUnitRepository) FindAll(ctx context.Context) ([]catalog.UnitOfMeasure, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.UnitOfMeasure), args.Error(1)
}

func (m *MockUnitRepository) FindByCode(ctx context.Context, code string) (*catalog.UnitOfMeasure, error) {
	args := m.Called(ctx, code)
	if fn, ok := args.Get(0).(func(context.Context, string) (*catalog.UnitOfMeasure, error)); ok {
		return fn(ctx, code)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.UnitOfMeasure), args.Error(1)
}

func (m *MockUnitRepository) SaveIfAbsent(ctx context.Context, unit *catalog.UnitOfMeasure) error {
	args := m.Called(ctx, unit)
	return args.Error(0)
}

// MockProductRepository is a mock implementation of ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]catalog.Product, error) {
	args := m.Called(ctx, tenantID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error) {
	args := m.Called(ctx, tenantID, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductRepository) Create(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) ApplyStockDelta(ctx context.Context, tenantID, id uuid.UUID, delta decimal.Decimal) (catalog.StockSnapshot, error) {
	args := m.Called(ctx, tenantID, id, delta)
	return args.Get(0).(catalog.StockSnapshot), args.Error(1)
}

func (m *MockProductRepository) RevertStockDelta(ctx context.Context, tenantID, id uuid.UUID, delta decimal.Decimal) error {
	args := m.Called(ctx, tenantID, id, delta)
	return args.Error(0)
}

func (m *MockProductRepository) ListStock(ctx context.Context, tenantID uuid.UUID) ([]catalog.StockSnapshot, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.StockSnapshot), args.Error(1)
}

func unitByCode(t *testing.T, units []catalog.UnitOfMeasure, code string) catalog.UnitOfMeasure {
	t.Helper()
	for _, u := range units {
		if u.Code == code {
			return u
		}
	}
	t.Fatalf("unit %s not found", code)
	return catalog.UnitOfMeasure{}
}

func TestUnitService_Convert(t *testing.T) {
	ctx := context.Background()
	units := catalog.DefaultUnits()
	unitRepo := new(MockUnitRepository)
	productRepo := new(MockProductRepository)
	unitRepo.On("FindAll", ctx).Return(units, nil).Once()

	svc := NewUnitService(unitRepo, productRepo, nil)
	ctn12 := unitByCode(t, units, "CTN12")
	pcs := unitByCode(t, units, "PCS")
	kg := unitByCode(t, units, "KG")

	resp, err := svc.Convert(ctx, uuid.New(), decimal.NewFromInt(3), ctn12.ID, pcs.ID, nil)
	require.NoError(t, err)
	assert.True(t, resp.Converted.Equal(decimal.NewFromInt(36)))
	assert.True(t, resp.Factor.Equal(decimal.NewFromInt(12)))
	assert.Equal(t, "CTN12", resp.FromUnit)

	ok, err := svc.CanConvert(ctx, kg.ID, pcs.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	tenantID := uuid.New()
	product, err := catalog.NewProduct(tenantID, "SKU-9", "Bolt", pcs.ID)
	require.NoError(t, err)
	productRepo.On("FindByIDForTenant", ctx, tenantID, product.ID).Return(product, nil)

	_, err = svc.Convert(ctx, tenantID, decimal.NewFromInt(1), kg.ID, pcs.ID, &product.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrUnsupportedConversion))
	assert.Contains(t, err.Error(), "SKU-9")

	// graph loaded once and cached
	unitRepo.AssertNumberOfCalls(t, "FindAll", 1)
}

func TestUnitService_GraphLoadFailure(t *testing.T) {
	ctx := context.Background()
	unitRepo := new(MockUnitRepository)
	unitRepo.On("FindAll", ctx).Return(nil, errors.New("connection refused"))

	svc := NewUnitService(unitRepo, new(MockProductRepository), nil)
	_, err := svc.ListUnits(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrPersistenceFailure))
}

func TestUnitService_SeedDefaults(t *testing.T) {
	ctx := context.Background()
	unitRepo := new(MockUnitRepository)

	// PCS already exists with its own ID; everything else is new
	existingPCS, err := catalog.NewCanonicalUnit("PCS", "Piece", "pc", catalog.UnitCategoryCountable)
	require.NoError(t, err)

	saved := map[string]*catalog.UnitOfMeasure{"PCS": existingPCS}
	unitRepo.On("FindByCode", ctx, mock.AnythingOfType("string")).Return(
		func(_ context.Context, code string) (*catalog.UnitOfMeasure, error) {
			if u, ok := saved[code]; ok {
				return u, nil
			}
			return nil, shared.ErrNotFound
		},
		nil,
	)
	unitRepo.On("SaveIfAbsent", ctx, mock.AnythingOfType("*catalog.UnitOfMeasure")).Run(func(args mock.Arguments) {
		u := args.Get(1).(*catalog.UnitOfMeasure)
		saved[u.Code] = u
	}).Return(nil)

	svc := NewUnitService(unitRepo, new(MockProductRepository), nil)
	inserted, err := svc.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(catalog.DefaultUnits())-1, inserted)

	for _, code := range []string{"CTN6", "CTN12", "BOX24"} {
		require.NotNil(t, saved[code].BaseUnitID)
		assert.Equal(t, existingPCS.ID, *saved[code].BaseUnitID, code)
	}
}

func TestUnitService_ResolveUnit(t *testing.T) {
	ctx := context.Background()
	units := catalog.DefaultUnits()
	unitRepo := new(MockUnitRepository)
	unitRepo.On("FindAll", ctx).Return(units, nil)
	svc := NewUnitService(unitRepo, new(MockProductRepository), nil)
	kg := unitByCode(t, units, "KG")

	id, err := svc.ResolveUnit(ctx, "kg")
	require.NoError(t, err)
	assert.Equal(t, kg.ID, id)

	id, err = svc.ResolveUnit(ctx, kg.ID.String())
	require.NoError(t, err)
	assert.Equal(t, kg.ID, id)

	_, err = svc.ResolveUnit(ctx, "FURLONG")
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}
