package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	appcat "github.com/erp/stockledger/internal/application/catalog"
	appinv "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/infrastructure/cache"
	"github.com/erp/stockledger/internal/infrastructure/persistence"
	"github.com/erp/stockledger/internal/interfaces/http/dto"
	"github.com/erp/stockledger/internal/interfaces/http/handler"
	"github.com/erp/stockledger/internal/interfaces/http/middleware"
	"github.com/erp/stockledger/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiFixture struct {
	engine *gin.Engine
	tenant uuid.UUID
	user   uuid.UUID
	units  map[string]uuid.UUID
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	database, err := persistence.NewSQLiteDatabase(filepath.Join(t.TempDir(), "api.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	db := database.DB
	logger := zaptest.NewLogger(t)
	scope := persistence.NewGormTransactionScope(db)
	unitRepo := persistence.NewGormUnitRepository(db)
	productRepo := persistence.NewGormProductRepository(db)

	unitSvc := appcat.NewUnitService(unitRepo, productRepo, logger)
	_, err = unitSvc.SeedDefaults(context.Background())
	require.NoError(t, err)
	ledger := appinv.NewLedger(scope, logger)

	store := cache.NewInMemoryIdempotencyStore(0)
	t.Cleanup(func() { _ = store.Close() })

	middleware.SetupValidator()
	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.GET("/health", handler.NewSystemHandler("test", map[string]handler.HealthCheck{
		"database": database.Ping,
	}).Health)

	router.NewRouter(engine, router.WithMiddleware(
		middleware.Actor(),
		middleware.Idempotency(middleware.IdempotencyConfig{Store: store}),
	)).
		Public(handler.NewSystemHandler("test", nil)).
		Register(handler.NewUnitHandler(unitSvc)).
		Register(handler.NewProductHandler(
			appcat.NewProductService(productRepo, unitSvc, logger),
			unitSvc,
			appinv.NewProductStockService(scope, ledger, logger),
			ledger,
		)).
		Register(handler.NewDocumentHandler(appinv.NewStockTransitionService(scope, unitSvc, ledger, logger))).
		Setup()

	f := &apiFixture{engine: engine, tenant: uuid.New(), user: uuid.New(), units: map[string]uuid.UUID{}}

	var units []appcat.UnitResponse
	f.ok(t, f.do(t, http.MethodGet, "/api/v1/units", nil, nil), &units)
	for _, u := range units {
		f.units[u.Code] = u.ID
	}
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderTenantID, f.tenant.String())
	req.Header.Set(middleware.HeaderUserID, f.user.String())
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

// ok asserts a 2xx envelope and decodes its data into out
func (f *apiFixture) ok(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.Less(t, w.Code, 300, w.Body.String())
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.True(t, env.Success)
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func (f *apiFixture) createProduct(t *testing.T, code string) appcat.ProductResponse {
	t.Helper()
	var product appcat.ProductResponse
	f.ok(t, f.do(t, http.MethodPost, "/api/v1/products", map[string]any{
		"code":          code,
		"name":          "Product " + code,
		"stock_unit_id": f.units["PCS"],
	}, nil), &product)
	return product
}

func (f *apiFixture) balance(t *testing.T, productID uuid.UUID) appinv.BalanceResponse {
	t.Helper()
	var bal appinv.BalanceResponse
	f.ok(t, f.do(t, http.MethodGet, "/api/v1/products/"+productID.String()+"/stock", nil, nil), &bal)
	return bal
}

func TestSystemRoutes(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/system/ping", nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var health handler.HealthResponse
	f.ok(t, f.do(t, http.MethodGet, "/health", nil, nil), &health)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "ok", health.Checks["database"])
}

func TestHealth_FailingCheck(t *testing.T) {
	engine := gin.New()
	engine.GET("/health", handler.NewSystemHandler("test", map[string]handler.HealthCheck{
		"redis": func(context.Context) error { return errors.New("dial tcp: connection refused") },
	}).Health)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestUnitRoutes(t *testing.T) {
	f := newAPIFixture(t)

	var conv appcat.ConvertResponse
	f.ok(t, f.do(t, http.MethodGet, "/api/v1/units/convert?quantity=2&from=CTN12&to=pcs", nil, nil), &conv)
	assert.True(t, conv.Converted.Equal(decimal.NewFromInt(24)))
	assert.Equal(t, "PCS", conv.ToUnit)

	var can handler.CanConvertResponse
	f.ok(t, f.do(t, http.MethodGet, "/api/v1/units/can-convert?from=KG&to=PCS", nil, nil), &can)
	assert.False(t, can.Convertible)

	w := f.do(t, http.MethodGet, "/api/v1/units/convert?quantity=1&from=KG&to=PCS", nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, dto.ErrCodeUnsupportedConversion, errorCode(t, w))

	w = f.do(t, http.MethodGet, "/api/v1/units/convert?quantity=abc&from=KG&to=G", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/units/convert?from=KG&to=G", nil, nil)
	assert.Equal(t, dto.ErrCodeValidation, errorCode(t, w))

	w = f.do(t, http.MethodGet, "/api/v1/units/can-convert?from=FURLONG&to=G", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMissingActor(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/units", nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeMissingActor, errorCode(t, w))
}

func TestProductStockRoutes(t *testing.T) {
	f := newAPIFixture(t)
	product := f.createProduct(t, "BOLT")
	base := "/api/v1/products/" + product.ID.String()

	var compatible []appcat.UnitResponse
	f.ok(t, f.do(t, http.MethodGet, base+"/units", nil, nil), &compatible)
	codes := make([]string, 0, len(compatible))
	for _, u := range compatible {
		codes = append(codes, u.Code)
	}
	assert.Contains(t, codes, "CTN12")
	assert.NotContains(t, codes, "KG")

	var edit appinv.StockEditResult
	f.ok(t, f.do(t, http.MethodPost, base+"/stock/initial", map[string]any{"quantity": "100", "reason": "opening"}, nil), &edit)
	require.NotNil(t, edit.Movement)
	assert.Equal(t, "initial", edit.Movement.Type)

	f.ok(t, f.do(t, http.MethodPut, base+"/stock", map[string]any{"quantity": "90", "reason": "shrinkage"}, nil), &edit)
	require.NotNil(t, edit.Movement)
	assert.True(t, edit.Movement.QuantityChanged.Equal(decimal.NewFromInt(-10)))

	bal := f.balance(t, product.ID)
	assert.True(t, bal.StockQuantity.Equal(decimal.NewFromInt(90)))
	assert.True(t, bal.InSync)

	w := f.do(t, http.MethodGet, base+"/movements?page=1&page_size=1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.NotNil(t, page.Meta)
	assert.Equal(t, int64(2), page.Meta.Total)
	assert.Len(t, page.Data, 1)

	var newestFirst []appinv.MovementResponse
	f.ok(t, f.do(t, http.MethodGet, base+"/movements?order_by=sequence&order_dir=desc", nil, nil), &newestFirst)
	require.Len(t, newestFirst, 2)
	assert.Equal(t, "adjustment_out", newestFirst[0].Type)

	w = f.do(t, http.MethodGet, base+"/movements?order_dir=sideways", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var drifts []appinv.DriftResponse
	f.ok(t, f.do(t, http.MethodGet, "/api/v1/stock/drift", nil, nil), &drifts)
	assert.Empty(t, drifts)

	w = f.do(t, http.MethodPut, base+"/stock", map[string]any{"reason": "no quantity"}, nil)
	assert.Equal(t, dto.ErrCodeValidation, errorCode(t, w))

	w = f.do(t, http.MethodGet, "/api/v1/products/not-a-uuid/stock", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/products/"+uuid.NewString()+"/stock", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocumentRoutes_GoodsReceipt(t *testing.T) {
	f := newAPIFixture(t)
	product := f.createProduct(t, "WIDGET")

	var doc appinv.DocumentResponse
	f.ok(t, f.do(t, http.MethodPost, "/api/v1/documents/goods_receipt", map[string]any{
		"document_number": "GR-001",
		"partner_name":    "Acme Supply",
		"items": []map[string]any{
			{"product_id": product.ID, "quantity": "2", "transaction_unit_id": f.units["CTN12"]},
		},
	}, nil), &doc)
	assert.Equal(t, "draft", doc.Status)
	path := "/api/v1/documents/goods_receipt/" + doc.ID.String()

	idem := map[string]string{middleware.HeaderIdempotencyKey: "gr-001-validate"}
	var result appinv.TransitionResult
	f.ok(t, f.do(t, http.MethodPost, path+"/transition", map[string]string{"status": "validated"}, idem), &result)
	assert.Equal(t, "forward", result.Direction)
	assert.Len(t, result.MovementIDs, 1)

	// replayed request is refused before touching the ledger
	w := f.do(t, http.MethodPost, path+"/transition", map[string]string{"status": "validated"}, idem)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, dto.ErrCodeDuplicateRequest, errorCode(t, w))
	assert.True(t, f.balance(t, product.ID).StockQuantity.Equal(decimal.NewFromInt(24)))

	f.ok(t, f.do(t, http.MethodGet, path, nil, nil), &doc)
	assert.Equal(t, "validated", doc.Status)
	require.Len(t, doc.Items, 1)
	assert.True(t, doc.Items[0].StockUnitQuantity.Equal(decimal.NewFromInt(24)))

	// removing a posted item reverses its stock
	f.ok(t, f.do(t, http.MethodDelete, path+"/items/"+doc.Items[0].ID.String(), nil, nil), &result)
	assert.Equal(t, "reverse", result.Direction)
	assert.Len(t, result.MovementIDs, 1)
	assert.True(t, f.balance(t, product.ID).StockQuantity.IsZero())

	f.ok(t, f.do(t, http.MethodPost, path+"/transition", map[string]string{"status": "cancelled"}, nil), &result)
	assert.Empty(t, result.MovementIDs)

	w = f.do(t, http.MethodPost, path+"/transition", map[string]string{"status": "completed"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, dto.ErrCodeIllegalTransition, errorCode(t, w))

	f.ok(t, f.do(t, http.MethodDelete, path, nil, nil), nil)
	w = f.do(t, http.MethodGet, path, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocumentRoutes_BadKind(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/documents/purchase_order", map[string]any{"document_number": "PO-1"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidInput, errorCode(t, w))

	w = f.do(t, http.MethodPost, "/api/v1/documents/goods_receipt/"+uuid.NewString()+"/transition", map[string]string{}, nil)
	assert.Equal(t, dto.ErrCodeValidation, errorCode(t, w))
}

func TestDocumentRoutes_InventorySessionCount(t *testing.T) {
	f := newAPIFixture(t)
	product := f.createProduct(t, "SHELF")
	f.ok(t, f.do(t, http.MethodPost, "/api/v1/products/"+product.ID.String()+"/stock/initial",
		map[string]any{"quantity": "10"}, nil), nil)

	var doc appinv.DocumentResponse
	f.ok(t, f.do(t, http.MethodPost, "/api/v1/documents/inventory_session", map[string]any{
		"document_number": "INV-001",
		"name":            "Aisle 4",
		"items": []map[string]any{
			{"product_id": product.ID, "quantity": nil, "transaction_unit_id": f.units["PCS"]},
		},
	}, nil), &doc)
	path := "/api/v1/documents/inventory_session/" + doc.ID.String()
	item := path + "/items/" + doc.Items[0].ID.String()

	var result appinv.TransitionResult
	f.ok(t, f.do(t, http.MethodPost, path+"/transition", map[string]string{"status": "in_progress"}, nil), &result)

	// a retried status change succeeds and changes nothing
	f.ok(t, f.do(t, http.MethodPost, path+"/transition", map[string]string{"status": "in_progress"}, nil), &result)
	assert.Equal(t, "none", result.Direction)

	f.ok(t, f.do(t, http.MethodPatch, item, map[string]any{"quantity": "8"}, nil), &doc)
	require.NotNil(t, doc.Items[0].Quantity)
	assert.True(t, doc.Items[0].Quantity.Equal(decimal.NewFromInt(8)))
	require.NotNil(t, doc.Items[0].TheoreticalQuantity)
	assert.True(t, doc.Items[0].TheoreticalQuantity.Equal(decimal.NewFromInt(10)))

	f.ok(t, f.do(t, http.MethodPost, path+"/transition", map[string]string{"status": "completed"}, nil), nil)
	w := f.do(t, http.MethodPatch, item, map[string]any{"quantity": "9"}, nil)
	assert.Equal(t, dto.ErrCodeInvalidState, errorCode(t, w))

	f.ok(t, f.do(t, http.MethodPost, path+"/transition", map[string]string{"status": "validated"}, nil), &result)
	assert.Len(t, result.MovementIDs, 1)
	assert.True(t, f.balance(t, product.ID).StockQuantity.Equal(decimal.NewFromInt(8)))

	w = f.do(t, http.MethodPatch, path+"/items/not-a-uuid", map[string]any{"quantity": "1"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentRoutes_CreditNoteFlags(t *testing.T) {
	f := newAPIFixture(t)
	product := f.createProduct(t, "RETURNED")

	var doc appinv.DocumentResponse
	f.ok(t, f.do(t, http.MethodPost, "/api/v1/documents/credit_note", map[string]any{
		"document_number": "CN-001",
		"items": []map[string]any{
			{"product_id": product.ID, "quantity": "3", "transaction_unit_id": f.units["PCS"]},
		},
	}, nil), &doc)
	path := "/api/v1/documents/credit_note/" + doc.ID.String()

	f.ok(t, f.do(t, http.MethodPatch, path, map[string]any{"restock_items": true}, nil), &doc)
	w := f.do(t, http.MethodPatch, path, map[string]any{"items_returned_to_supplier_stock": true}, nil)
	assert.Equal(t, dto.ErrCodeInvalidInput, errorCode(t, w))

	f.ok(t, f.do(t, http.MethodPost, path+"/transition", map[string]string{"status": "issued"}, nil), nil)
	assert.True(t, f.balance(t, product.ID).StockQuantity.Equal(decimal.NewFromInt(3)))
}
