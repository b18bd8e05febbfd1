package handler

import (
	catalogapp "github.com/erp/stockledger/internal/application/catalog"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnitHandler serves the unit of measure catalogue and conversions
type UnitHandler struct {
	BaseHandler
	units *catalogapp.UnitService
}

// NewUnitHandler creates a new UnitHandler
func NewUnitHandler(units *catalogapp.UnitService) *UnitHandler {
	return &UnitHandler{units: units}
}

// ConvertQuery are the query parameters of GET /units/convert.
// Units are given by ID or code.
type ConvertQuery struct {
	Quantity  string `form:"quantity" binding:"required"`
	From      string `form:"from" binding:"required"`
	To        string `form:"to" binding:"required"`
	ProductID string `form:"product_id" binding:"omitempty,uuid"`
}

// CanConvertQuery are the query parameters of GET /units/can-convert
type CanConvertQuery struct {
	From string `form:"from" binding:"required"`
	To   string `form:"to" binding:"required"`
}

// CanConvertResponse answers GET /units/can-convert
type CanConvertResponse struct {
	From        uuid.UUID `json:"from"`
	To          uuid.UUID `json:"to"`
	Convertible bool      `json:"convertible"`
}

// List godoc
// @ID           listUnits
// @Summary      List units of measure
// @Description  List every unit of measure with its category and base unit
// @Tags         units
// @Produce      json
// @Success      200 {object} dto.Response{data=[]catalogapp.UnitResponse}
// @Failure      500 {object} dto.Response
// @Router       /units [get]
func (h *UnitHandler) List(c *gin.Context) {
	units, err := h.units.ListUnits(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, units)
}

// Convert godoc
// @ID           convertQuantity
// @Summary      Convert a quantity between units
// @Description  Convert a quantity between two units given by ID or code, optionally through a product's own conversions
// @Tags         units
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID" format(uuid)
// @Param        X-User-ID header string true "Acting user ID" format(uuid)
// @Param        quantity query string true "Quantity to convert"
// @Param        from query string true "Source unit ID or code"
// @Param        to query string true "Target unit ID or code"
// @Param        product_id query string false "Product whose conversions apply" format(uuid)
// @Success      200 {object} dto.Response{data=catalogapp.ConvertResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /units/convert [get]
func (h *UnitHandler) Convert(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q ConvertQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	qty, err := decimal.NewFromString(q.Quantity)
	if err != nil {
		h.BadRequest(c, "quantity must be a decimal number")
		return
	}

	ctx := c.Request.Context()
	from, err := h.units.ResolveUnit(ctx, q.From)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	to, err := h.units.ResolveUnit(ctx, q.To)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	var productID *uuid.UUID
	if q.ProductID != "" {
		id := uuid.MustParse(q.ProductID)
		productID = &id
	}

	resp, err := h.units.Convert(ctx, actor.TenantID, qty, from, to, productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CanConvert godoc
// @ID           canConvertUnits
// @Summary      Check whether two units convert
// @Description  Report whether a quantity in one unit can be expressed in another
// @Tags         units
// @Produce      json
// @Param        from query string true "Source unit ID or code"
// @Param        to query string true "Target unit ID or code"
// @Success      200 {object} dto.Response{data=CanConvertResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /units/can-convert [get]
func (h *UnitHandler) CanConvert(c *gin.Context) {
	var q CanConvertQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	ctx := c.Request.Context()
	from, err := h.units.ResolveUnit(ctx, q.From)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	to, err := h.units.ResolveUnit(ctx, q.To)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	ok, err := h.units.CanConvert(ctx, from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, CanConvertResponse{From: from, To: to, Convertible: ok})
}

// RegisterRoutes mounts the unit routes
func (h *UnitHandler) RegisterRoutes(rg *gin.RouterGroup) {
	units := rg.Group("/units")
	units.GET("", h.List)
	units.GET("/convert", h.Convert)
	units.GET("/can-convert", h.CanConvert)
}
