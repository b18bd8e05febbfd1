package handler

import (
	"context"
	"net/http"

	catalogapp "github.com/erp/stockledger/internal/application/catalog"
	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductHandler serves products, their stock balance and ledger history
type ProductHandler struct {
	BaseHandler
	products *catalogapp.ProductService
	units    *catalogapp.UnitService
	stock    *inventoryapp.ProductStockService
	ledger   *inventoryapp.Ledger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(
	products *catalogapp.ProductService,
	units *catalogapp.UnitService,
	stock *inventoryapp.ProductStockService,
	ledger *inventoryapp.Ledger,
) *ProductHandler {
	return &ProductHandler{products: products, units: units, stock: stock, ledger: ledger}
}

// StockEditRequest sets or seeds a product's stock balance
type StockEditRequest struct {
	Quantity *decimal.Decimal `json:"quantity" binding:"required"`
	Reason   string           `json:"reason" binding:"max=255"`
}

// Create godoc
// @ID           createProduct
// @Summary      Create a product
// @Description  Create a product with its stock unit and optional purchase and sales units
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID" format(uuid)
// @Param        X-User-ID header string true "Acting user ID" format(uuid)
// @Param        Idempotency-Key header string false "Replays of the same key answer 409"
// @Param        request body catalogapp.CreateProductRequest true "Product creation request"
// @Success      201 {object} dto.Response{data=catalogapp.ProductResponse}
// @Failure      400 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req catalogapp.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	product, err := h.products.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, product)
}

// Get godoc
// @ID           getProductById
// @Summary      Get product by ID
// @Description  Retrieve a product by its ID
// @Tags         products
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID" format(uuid)
// @Param        X-User-ID header string true "Acting user ID" format(uuid)
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} dto.Response{data=catalogapp.ProductResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /products/{id} [get]
func (h *ProductHandler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	productID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	product, err := h.products.GetByID(c.Request.Context(), actor.TenantID, productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// CompatibleUnits godoc
// @ID           listProductUnits
// @Summary      List units compatible with a product
// @Description  List the units a product's quantities may be entered in
// @Tags         products
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID" format(uuid)
// @Param        X-User-ID header string true "Acting user ID" format(uuid)
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]catalogapp.UnitResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /products/{id}/units [get]
func (h *ProductHandler) CompatibleUnits(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	productID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	units, err := h.units.CompatibleUnits(c.Request.Context(), actor.TenantID, productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, units)
}

// Stock godoc
// @ID           getProductStock
// @Summary      Get product stock balance
// @Description  Compare the cached stock balance of a product with the sum of its ledger
// @Tags         stock
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID" format(uuid)
// @Param        X-User-ID header string true "Acting user ID" format(uuid)
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} dto.Response{data=inventoryapp.BalanceResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /products/{id}/stock [get]
func (h *ProductHandler) Stock(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	productID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	balance, err := h.ledger.Balance(c.Request.Context(), actor.TenantID, productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balance)
}

// SetStock godoc
// @ID           setProductStock
// @Summary      Set product stock
// @Description  Set the stock balance directly, posting the difference as an adjustment movement
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID" format(uuid)
// @Param        X-User-ID header string true "Acting user ID" format(uuid)
// @Param        Idempotency-Key header string false "Replays of the same key answer 409"
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body StockEditRequest true "New stock quantity"
// @Success      200 {object} dto.Response{data=inventoryapp.StockEditResult}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /products/{id}/stock [put]
func (h *ProductHandler) SetStock(c *gin.Context) {
	h.editStock(c, h.stock.SetStockQuantity)
}

// InitialStock godoc
// @ID           recordInitialStock
// @Summary      Record initial stock
// @Description  Record the opening balance of a product that has no movements yet
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID" format(uuid)
// @Param        X-User-ID header string true "Acting user ID" format(uuid)
// @Param        Idempotency-Key header string false "Replays of the same key answer 409"
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body StockEditRequest true "Opening quantity"
// @Success      200 {object} dto.Response{data=inventoryapp.StockEditResult}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /products/{id}/stock/initial [post]
func (h *ProductHandler) InitialStock(c *gin.Context) {
	h.editStock(c, h.stock.RecordInitialStock)
}

type stockEditFunc func(ctx context.Context, actor shared.ActorContext, productID uuid.UUID, qty decimal.Decimal, reason string) (*inventoryapp.StockEditResult, error)

func (h *ProductHandler) editStock(c *gin.Context, edit stockEditFunc) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	productID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req StockEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := edit(c.Request.Context(), actor, productID, *req.Quantity, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Movements godoc
// @ID           listProductMovements
// @Summary      List product movements
// @Description  Page through the ledger of a product in sequence order
// @Tags         stock
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID" format(uuid)
// @Param        X-User-ID header string true "Acting user ID" format(uuid)
// @Param        id path string true "Product ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]inventoryapp.MovementResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /products/{id}/movements [get]
func (h *ProductHandler) Movements(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	productID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var list dto.ListRequest
	if err := c.ShouldBindQuery(&list); err != nil {
		h.BindError(c, err)
		return
	}

	page, err := h.ledger.History(c.Request.Context(), actor.TenantID, productID, list.Filter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPaginatedResponse(page))
}

// Drift godoc
// @ID           listStockDrift
// @Summary      List stock drift
// @Description  List products whose cached balance no longer matches their ledger
// @Tags         stock
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID" format(uuid)
// @Param        X-User-ID header string true "Acting user ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]inventoryapp.DriftResponse}
// @Failure      500 {object} dto.Response
// @Router       /stock/drift [get]
func (h *ProductHandler) Drift(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	drifts, err := h.ledger.Reconcile(c.Request.Context(), actor.TenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if drifts == nil {
		drifts = []inventoryapp.DriftResponse{}
	}
	h.Success(c, drifts)
}

// RegisterRoutes mounts the product routes
func (h *ProductHandler) RegisterRoutes(rg *gin.RouterGroup) {
	products := rg.Group("/products")
	products.POST("", h.Create)
	products.GET("/:id", h.Get)
	products.GET("/:id/units", h.CompatibleUnits)
	products.GET("/:id/stock", h.Stock)
	products.PUT("/:id/stock", h.SetStock)
	products.POST("/:id/stock/initial", h.InitialStock)
	products.GET("/:id/movements", h.Movements)

	rg.GET("/stock/drift", h.Drift)
}
