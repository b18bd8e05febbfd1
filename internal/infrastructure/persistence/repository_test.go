package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type repoFixture struct {
	db        *Database
	units     *GormUnitRepository
	products  *GormProductRepository
	movements *GormStockMovementRepository
	documents *GormStockDocumentRepository
	tenantID  uuid.UUID
	pcs       catalog.UnitOfMeasure
}

func newRepoFixture(t *testing.T) *repoFixture {
	t.Helper()
	return newRepoFixtureOn(t, newSQLiteDatabase(t))
}

func newRepoFixtureOn(t *testing.T, db *Database) *repoFixture {
	t.Helper()
	f := &repoFixture{
		db:        db,
		units:     NewGormUnitRepository(db.DB),
		products:  NewGormProductRepository(db.DB),
		movements: NewGormStockMovementRepository(db.DB),
		documents: NewGormStockDocumentRepository(db.DB),
		tenantID:  uuid.New(),
	}
	ctx := context.Background()
	for _, u := range catalog.DefaultUnits() {
		u := u
		require.NoError(t, f.units.SaveIfAbsent(ctx, &u))
		if u.Code == "PCS" {
			f.pcs = u
		}
	}
	return f
}

func (f *repoFixture) product(t *testing.T, code string) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(f.tenantID, code, "Product "+code, f.pcs.ID)
	require.NoError(t, err)
	require.NoError(t, f.products.Create(context.Background(), p))
	return p
}

func (f *repoFixture) movement(productID uuid.UUID, ref inventory.DocumentRef, typ inventory.MovementType, qty int64, seq int64, generation int) *inventory.StockMovement {
	return &inventory.StockMovement{
		ID:               uuid.New(),
		TenantID:         f.tenantID,
		ProductID:        productID,
		Type:             typ,
		QuantityChanged:  decimal.NewFromInt(qty),
		NewStockQuantity: decimal.NewFromInt(qty),
		Sequence:         seq,
		MovementDate:     time.Now(),
		Document:         ref,
		Generation:       generation,
		ActorID:          uuid.New(),
		CreatedAt:        time.Now(),
	}
}

func TestGormUnitRepository(t *testing.T) {
	f := newRepoFixture(t)
	ctx := context.Background()

	units, err := f.units.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, units, len(catalog.DefaultUnits()))

	ctn, err := f.units.FindByCode(ctx, "ctn12")
	require.NoError(t, err)
	require.NotNil(t, ctn.BaseUnitID)
	assert.Equal(t, f.pcs.ID, *ctn.BaseUnitID)
	assert.True(t, ctn.Factor().Equal(decimal.NewFromInt(12)))

	// seeding twice keeps the first row
	dup := f.pcs
	dup.ID = uuid.New()
	require.NoError(t, f.units.SaveIfAbsent(ctx, &dup))
	pcs, err := f.units.FindByCode(ctx, "PCS")
	require.NoError(t, err)
	assert.Equal(t, f.pcs.ID, pcs.ID)

	_, err = f.units.FindByCode(ctx, "NOPE")
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestGormProductRepository_StockDelta(t *testing.T) {
	f := newRepoFixture(t)
	ctx := context.Background()
	p := f.product(t, "SKU-1")

	snap, err := f.products.ApplyStockDelta(ctx, f.tenantID, p.ID, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.True(t, snap.StockQuantity.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, int64(1), snap.LedgerSequence)

	snap, err = f.products.ApplyStockDelta(ctx, f.tenantID, p.ID, decimal.RequireFromString("-2.5"))
	require.NoError(t, err)
	assert.True(t, snap.StockQuantity.Equal(decimal.RequireFromString("7.5")))
	assert.Equal(t, int64(2), snap.LedgerSequence)

	require.NoError(t, f.products.RevertStockDelta(ctx, f.tenantID, p.ID, decimal.RequireFromString("-2.5")))
	loaded, err := f.products.FindByIDForUpdate(ctx, f.tenantID, p.ID)
	require.NoError(t, err)
	assert.True(t, loaded.StockQuantity.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, int64(1), loaded.LedgerSequence)

	// another tenant cannot see the product
	_, err = f.products.FindByIDForTenant(ctx, uuid.New(), p.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	exists, err := f.products.ExistsByCode(ctx, f.tenantID, "sku-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGormStockMovementRepository(t *testing.T) {
	f := newRepoFixture(t)
	ctx := context.Background()
	p := f.product(t, "SKU-1")
	ref := inventory.NewDocumentRef(inventory.DocumentKindGoodsReceipt, uuid.New())

	t.Run("duplicate posting key is rejected by the unique index", func(t *testing.T) {
		first := f.movement(p.ID, ref, inventory.MovementTypePurchaseReceipt, 10, 1, 1)
		inserted, err := f.movements.Create(ctx, first)
		require.NoError(t, err)
		assert.True(t, inserted)

		exists, err := f.movements.Exists(ctx, first.Key())
		require.NoError(t, err)
		assert.True(t, exists)

		again := f.movement(p.ID, ref, inventory.MovementTypePurchaseReceipt, 10, 2, 1)
		inserted, err = f.movements.Create(ctx, again)
		require.NoError(t, err)
		assert.False(t, inserted)
	})

	t.Run("next generation is a new key", func(t *testing.T) {
		cancel := f.movement(p.ID, ref, inventory.MovementTypePurchaseReceiptCancellation, -10, 2, 1)
		inserted, err := f.movements.Create(ctx, cancel)
		require.NoError(t, err)
		assert.True(t, inserted)

		next := f.movement(p.ID, ref, inventory.MovementTypePurchaseReceipt, 4, 3, 2)
		inserted, err = f.movements.Create(ctx, next)
		require.NoError(t, err)
		assert.True(t, inserted)
	})

	t.Run("FindForward skips cancellations and other generations", func(t *testing.T) {
		gen1, err := f.movements.FindForward(ctx, f.tenantID, ref, 1, nil)
		require.NoError(t, err)
		require.Len(t, gen1, 1)
		assert.Equal(t, inventory.MovementTypePurchaseReceipt, gen1[0].Type)
		assert.True(t, gen1[0].QuantityChanged.Equal(decimal.NewFromInt(10)))

		gen2, err := f.movements.FindForward(ctx, f.tenantID, ref, 2, nil)
		require.NoError(t, err)
		require.Len(t, gen2, 1)
		assert.True(t, gen2[0].QuantityChanged.Equal(decimal.NewFromInt(4)))
	})

	t.Run("sums and history", func(t *testing.T) {
		sum, err := f.movements.SumByProduct(ctx, f.tenantID, p.ID)
		require.NoError(t, err)
		assert.True(t, sum.Equal(decimal.NewFromInt(4)), sum.String())

		all, err := f.movements.SumAll(ctx, f.tenantID)
		require.NoError(t, err)
		assert.True(t, all[p.ID].Equal(decimal.NewFromInt(4)))

		page, total, err := f.movements.FindByProduct(ctx, f.tenantID, p.ID, shared.Filter{Page: 1, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, page, 2)
		assert.Equal(t, int64(1), page[0].Sequence)

		empty, err := f.movements.SumByProduct(ctx, f.tenantID, uuid.New())
		require.NoError(t, err)
		assert.True(t, empty.IsZero())
	})
}

func TestGormStockDocumentRepository(t *testing.T) {
	f := newRepoFixture(t)
	ctx := context.Background()
	p := f.product(t, "SKU-1")

	receipt, err := trade.NewGoodsReceipt(f.tenantID, "GR-001", "Acme")
	require.NoError(t, err)
	first, err := receipt.AddItem(p.ID, decimal.NewNullDecimal(decimal.NewFromInt(2)), f.pcs.ID)
	require.NoError(t, err)
	_, err = receipt.AddItem(p.ID, decimal.NullDecimal{}, f.pcs.ID)
	require.NoError(t, err)
	require.NoError(t, f.documents.Create(ctx, receipt))

	t.Run("round trip keeps line order and null quantities", func(t *testing.T) {
		doc, err := f.documents.FindByRef(ctx, f.tenantID, receipt.Ref())
		require.NoError(t, err)
		loaded := doc.(*trade.GoodsReceipt)
		assert.Equal(t, "GR-001", loaded.Number())
		assert.Equal(t, "draft", loaded.CurrentStatus())
		require.Len(t, loaded.Lines(), 2)
		assert.Equal(t, first.ID, loaded.Lines()[0].ID)
		assert.False(t, loaded.Lines()[1].Quantity.Valid)
	})

	t.Run("save transition bumps version and stores converted quantity", func(t *testing.T) {
		doc, err := f.documents.FindByRefForUpdate(ctx, f.tenantID, receipt.Ref())
		require.NoError(t, err)
		loaded := doc.(*trade.GoodsReceipt)
		expected := loaded.GetVersion()
		loaded.Lines()[0].StockUnitQuantity = decimal.NewNullDecimal(decimal.NewFromInt(24))
		loaded.IncrementVersion()
		require.NoError(t, f.documents.SaveTransition(ctx, loaded, expected))

		// the same stale version now conflicts
		err = f.documents.SaveTransition(ctx, loaded, expected)
		assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))

		again, err := f.documents.FindByRef(ctx, f.tenantID, receipt.Ref())
		require.NoError(t, err)
		assert.Equal(t, expected+1, again.GetVersion())
		assert.True(t, again.Lines()[0].StockUnitQuantity.Decimal.Equal(decimal.NewFromInt(24)))
	})

	t.Run("delete item then document", func(t *testing.T) {
		require.NoError(t, f.documents.DeleteItem(ctx, f.tenantID, receipt.Ref(), first.ID))
		err := f.documents.DeleteItem(ctx, f.tenantID, receipt.Ref(), first.ID)
		assert.True(t, errors.Is(err, shared.ErrNotFound))

		require.NoError(t, f.documents.Delete(ctx, f.tenantID, receipt.Ref()))
		_, err = f.documents.FindByRef(ctx, f.tenantID, receipt.Ref())
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("inventory session keeps theoretical quantities", func(t *testing.T) {
		session, err := inventory.NewInventorySession(f.tenantID, "INV-001", "Year end")
		require.NoError(t, err)
		item, err := session.AddItem(p.ID, decimal.NewNullDecimal(decimal.NewFromInt(8)), f.pcs.ID)
		require.NoError(t, err)
		item.TheoreticalQuantity = decimal.NewNullDecimal(decimal.NewFromInt(10))
		require.NoError(t, f.documents.Create(ctx, session))

		doc, err := f.documents.FindByRef(ctx, f.tenantID, session.Ref())
		require.NoError(t, err)
		loaded := doc.(*inventory.InventorySession)
		require.Len(t, loaded.Items, 1)
		assert.True(t, loaded.Items[0].TheoreticalQuantity.Decimal.Equal(decimal.NewFromInt(10)))
	})
}
