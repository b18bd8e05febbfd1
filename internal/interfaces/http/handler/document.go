package handler

import (
	"context"

	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// DocumentHandler serves the stock-affecting documents and their transitions
type DocumentHandler struct {
	BaseHandler
	transitions *inventoryapp.StockTransitionService
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(transitions *inventoryapp.StockTransitionService) *DocumentHandler {
	return &DocumentHandler{transitions: transitions}
}

// TransitionRequest asks for a document status change
type TransitionRequest struct {
	Status string `json:"status" binding:"required,max=30"`
}

func (h *DocumentHandler) kind(c *gin.Context) (inventory.DocumentKind, bool) {
	kind, err := inventory.ParseDocumentKind(c.Param("kind"))
	if err != nil {
		h.HandleError(c, err)
		return "", false
	}
	return kind, true
}

func (h *DocumentHandler) ref(c *gin.Context) (inventory.DocumentRef, bool) {
	kind, ok := h.kind(c)
	if !ok {
		return inventory.DocumentRef{}, false
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return inventory.DocumentRef{}, false
	}
	return inventory.NewDocumentRef(kind, id), true
}

// Create godoc
// @ID           createDocument
// @Summary      Create a stock document
// @Description  Create a draft document of the given kind with its items
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID" format(uuid)
// @Param        X-User-ID header string true "Acting user ID" format(uuid)
// @Param        Idempotency-Key header string false "Replays of the same key answer 409"
// @Param        kind path string true "Document kind" Enums(goods_receipt, delivery_note, credit_note, supplier_credit_note, inventory_session)
// @Param        request body inventoryapp.CreateDocumentRequest true "Document creation request"
// @Success      201 {object} dto.Response{data=inventoryapp.DocumentResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /documents/{kind} [post]
func (h *DocumentHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	kind, ok := h.kind(c)
	if !ok {
		return
	}
	var req inventoryapp.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	doc, err := h.transitions.CreateDocument(c.Request.Context(), actor, kind, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, doc)
}

// Get godoc
// @ID           getDocument
// @Summary      Get a stock document
// @Description  Retrieve a document with its items and converted quantities
// @Tags         documents
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID" format(uuid)
// @Param        X-User-ID header string true "Acting user ID" format(uuid)
// @Param        kind path string true "Document kind" Enums(goods_receipt, delivery_note, credit_note, supplier_credit_note, inventory_session)
// @Param        id path string true "Document ID" format(uuid)
// @Success      200 {object} dto.Response{data=inventoryapp.DocumentResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /documents/{kind}/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	ref, ok := h.ref(c)
	if !ok {
		return
	}

	doc, err := h.transitions.GetDocument(c.Request.Context(), actor.TenantID, ref)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}

// Transition godoc
// @ID           transitionDocument
// @Summary      Change document status
// @Description  Move a document to a new status and post or reverse its stock movements in the same transaction. Asking for the current status changes nothing.
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID" format(uuid)
// @Param        X-User-ID header string true "Acting user ID" format(uuid)
// @Param        Idempotency-Key header string false "Replays of the same key answer 409"
// @Param        kind path string true "Document kind" Enums(goods_receipt, delivery_note, credit_note, supplier_credit_note, inventory_session)
// @Param        id path string true "Document ID" format(uuid)
// @Param        request body TransitionRequest true "Target status"
// @Success      200 {object} dto.Response{data=inventoryapp.TransitionResult}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /documents/{kind}/{id}/transition [post]
func (h *DocumentHandler) Transition(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	ref, ok := h.ref(c)
	if !ok {
		return
	}
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	var (
		result *inventoryapp.TransitionResult
		err    error
	)
	labels := telemetry.TransitionLabels(ref.Kind.String(), req.Status, actor.TenantID.String())
	telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
		result, err = h.transitions.Transition(ctx, actor, ref, req.Status)
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Update godoc
// @ID           updateDocument
// @Summary      Update document flags
// @Description  Change the restock flag of a credit note or the returned-goods flag of a supplier credit note
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID" format(uuid)
// @Param        X-User-ID header string true "Acting user ID" format(uuid)
// @Param        Idempotency-Key header string false "Replays of the same key answer 409"
// @Param        kind path string true "Document kind" Enums(goods_receipt, delivery_note, credit_note, supplier_credit_note, inventory_session)
// @Param        id path string true "Document ID" format(uuid)
// @Param        request body inventoryapp.UpdateDocumentRequest true "Flags to change"
// @Success      200 {object} dto.Response{data=inventoryapp.DocumentResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /documents/{kind}/{id} [patch]
func (h *DocumentHandler) Update(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	ref, ok := h.ref(c)
	if !ok {
		return
	}
	var req inventoryapp.UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	doc, err := h.transitions.UpdateDocument(c.Request.Context(), actor, ref, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}

// UpdateItem godoc
// @ID           updateDocumentItem
// @Summary      Update a document item
// @Description  Change the quantity of an editable item or record the count of an inventory session item. A null quantity clears it.
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID" format(uuid)
// @Param        X-User-ID header string true "Acting user ID" format(uuid)
// @Param        Idempotency-Key header string false "Replays of the same key answer 409"
// @Param        kind path string true "Document kind" Enums(goods_receipt, delivery_note, credit_note, supplier_credit_note, inventory_session)
// @Param        id path string true "Document ID" format(uuid)
// @Param        item_id path string true "Item ID" format(uuid)
// @Param        request body inventoryapp.UpdateItemRequest true "New quantity"
// @Success      200 {object} dto.Response{data=inventoryapp.DocumentResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /documents/{kind}/{id}/items/{item_id} [patch]
func (h *DocumentHandler) UpdateItem(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	ref, ok := h.ref(c)
	if !ok {
		return
	}
	itemID, ok := h.uuidParam(c, "item_id")
	if !ok {
		return
	}
	var req inventoryapp.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	doc, err := h.transitions.UpdateItem(c.Request.Context(), actor, ref, itemID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}

// Delete godoc
// @ID           deleteDocument
// @Summary      Delete a stock document
// @Description  Delete a document, reversing its stock first when it is stock-impacting
// @Tags         documents
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID" format(uuid)
// @Param        X-User-ID header string true "Acting user ID" format(uuid)
// @Param        Idempotency-Key header string false "Replays of the same key answer 409"
// @Param        kind path string true "Document kind" Enums(goods_receipt, delivery_note, credit_note, supplier_credit_note, inventory_session)
// @Param        id path string true "Document ID" format(uuid)
// @Success      200 {object} dto.Response{data=inventoryapp.TransitionResult}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /documents/{kind}/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	ref, ok := h.ref(c)
	if !ok {
		return
	}

	result, err := h.transitions.DeleteDocument(c.Request.Context(), actor, ref)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// DeleteItem godoc
// @ID           deleteDocumentItem
// @Summary      Delete a document item
// @Description  Remove one item, reversing its own movements when the document is stock-impacting
// @Tags         documents
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID" format(uuid)
// @Param        X-User-ID header string true "Acting user ID" format(uuid)
// @Param        Idempotency-Key header string false "Replays of the same key answer 409"
// @Param        kind path string true "Document kind" Enums(goods_receipt, delivery_note, credit_note, supplier_credit_note, inventory_session)
// @Param        id path string true "Document ID" format(uuid)
// @Param        item_id path string true "Item ID" format(uuid)
// @Success      200 {object} dto.Response{data=inventoryapp.TransitionResult}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /documents/{kind}/{id}/items/{item_id} [delete]
func (h *DocumentHandler) DeleteItem(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	ref, ok := h.ref(c)
	if !ok {
		return
	}
	itemID, ok := h.uuidParam(c, "item_id")
	if !ok {
		return
	}

	result, err := h.transitions.DeleteItem(c.Request.Context(), actor, ref, itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RegisterRoutes mounts the document routes
func (h *DocumentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	docs := rg.Group("/documents")
	docs.POST("/:kind", h.Create)
	docs.GET("/:kind/:id", h.Get)
	docs.POST("/:kind/:id/transition", h.Transition)
	docs.PATCH("/:kind/:id", h.Update)
	docs.DELETE("/:kind/:id", h.Delete)
	docs.PATCH("/:kind/:id/items/:item_id", h.UpdateItem)
	docs.DELETE("/:kind/:id/items/:item_id", h.DeleteItem)
}
