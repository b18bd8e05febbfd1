package trade

import (
	"fmt"
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GoodsReceiptStatus represents the status of a goods receipt
type GoodsReceiptStatus string

const (
	GoodsReceiptStatusDraft     GoodsReceiptStatus = "draft"
	GoodsReceiptStatusValidated GoodsReceiptStatus = "validated"
	GoodsReceiptStatusCompleted GoodsReceiptStatus = "completed"
	GoodsReceiptStatusCancelled GoodsReceiptStatus = "cancelled"
)

// IsValid checks if the status is a valid GoodsReceiptStatus
func (s GoodsReceiptStatus) IsValid() bool {
	switch s {
	case GoodsReceiptStatusDraft, GoodsReceiptStatusValidated, GoodsReceiptStatusCompleted, GoodsReceiptStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of GoodsReceiptStatus
func (s GoodsReceiptStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s GoodsReceiptStatus) CanTransitionTo(target GoodsReceiptStatus) bool {
	switch s {
	case GoodsReceiptStatusDraft:
		return target == GoodsReceiptStatusValidated || target == GoodsReceiptStatusCancelled
	case GoodsReceiptStatusValidated:
		return target == GoodsReceiptStatusCompleted || target == GoodsReceiptStatusDraft || target == GoodsReceiptStatusCancelled
	case GoodsReceiptStatusCompleted:
		return target == GoodsReceiptStatusCancelled
	case GoodsReceiptStatusCancelled:
		return target == GoodsReceiptStatusDraft
	}
	return false
}

// IsStockImpacting reports whether received goods are counted in stock
func (s GoodsReceiptStatus) IsStockImpacting() bool {
	return s == GoodsReceiptStatusValidated || s == GoodsReceiptStatusCompleted
}

// GoodsReceipt records goods received from a supplier
type GoodsReceipt struct {
	inventory.DocumentHeader
	DocumentItems
	SupplierName string
	Status       GoodsReceiptStatus
	ReceivedAt   *time.Time
}

// NewGoodsReceipt creates a draft goods receipt
func NewGoodsReceipt(tenantID uuid.UUID, number, supplierName string) (*GoodsReceipt, error) {
	header, err := inventory.NewDocumentHeader(tenantID, number)
	if err != nil {
		return nil, err
	}
	return &GoodsReceipt{
		DocumentHeader: header,
		SupplierName:   supplierName,
		Status:         GoodsReceiptStatusDraft,
	}, nil
}

// AddItem adds a received line in the given transaction unit
func (r *GoodsReceipt) AddItem(productID uuid.UUID, quantity decimal.NullDecimal, unitID uuid.UUID) (*inventory.StockLine, error) {
	return r.addItem(r.ItemsEditable(), r.ID, productID, quantity, unitID)
}

// UpdateItemQuantity changes a line's received quantity
func (r *GoodsReceipt) UpdateItemQuantity(itemID uuid.UUID, quantity decimal.NullDecimal) error {
	return r.updateQuantity(r.ItemsEditable(), itemID, quantity)
}

// RemoveItem removes a line while the receipt is editable
func (r *GoodsReceipt) RemoveItem(itemID uuid.UUID) error {
	return r.removeItem(r.ItemsEditable(), itemID)
}

// PlanTransition decides the stock effect of moving the receipt to `to`.
// Entering validated or completed requires every line to carry a received quantity.
func (r *GoodsReceipt) PlanTransition(to GoodsReceiptStatus) (inventory.TransitionPlan, error) {
	change := inventory.StatusChange{
		Kind:         inventory.DocumentKindGoodsReceipt,
		Number:       r.DocumentNumber,
		From:         r.Status.String(),
		To:           to.String(),
		Legal:        to.IsValid() && r.Status.CanTransitionTo(to),
		WasImpacting: r.Status.IsStockImpacting(),
		IsImpacting:  to.IsStockImpacting(),
		ForwardType:  inventory.MovementTypePurchaseReceipt,
		Lines:        r.Lines(),
	}
	return inventory.PlanStatusChange(change, func() ([]inventory.StockPosting, error) {
		if len(r.Items) == 0 {
			return nil, inventory.NewIllegalTransition(change.Kind, change.Number, change.From, change.To, "receipt has no items")
		}
		for i, it := range r.Items {
			if !it.Quantity.Valid || it.Quantity.Decimal.IsZero() {
				return nil, inventory.NewIllegalTransition(change.Kind, change.Number, change.From, change.To,
					fmt.Sprintf("item %d (%s) has no received quantity", i+1, it.ID))
			}
		}
		return inventory.LinePostings(r.Lines(), inventory.MovementTypePurchaseReceipt), nil
	})
}

// Ref returns the receipt's document reference
func (r *GoodsReceipt) Ref() inventory.DocumentRef {
	return inventory.NewDocumentRef(inventory.DocumentKindGoodsReceipt, r.ID)
}

// CurrentStatus returns the status name
func (r *GoodsReceipt) CurrentStatus() string {
	return r.Status.String()
}

// Plan parses status and delegates to PlanTransition
func (r *GoodsReceipt) Plan(status string) (inventory.TransitionPlan, error) {
	return r.PlanTransition(GoodsReceiptStatus(status))
}

// PlanDelete reverses received goods before the receipt is removed
func (r *GoodsReceipt) PlanDelete() (inventory.TransitionPlan, error) {
	return deletePlan(inventory.DocumentKindGoodsReceipt, r.DocumentNumber, r.Status.String(), r.Status.IsStockImpacting(), inventory.MovementTypePurchaseReceipt)
}

// ItemsEditable reports whether lines may change
func (r *GoodsReceipt) ItemsEditable() bool {
	return r.Status == GoodsReceiptStatusDraft
}

// Apply moves the receipt to plan.To
func (r *GoodsReceipt) Apply(plan inventory.TransitionPlan, actorID uuid.UUID) {
	r.Status = GoodsReceiptStatus(plan.To)
	if r.Status == GoodsReceiptStatusValidated && r.ReceivedAt == nil {
		now := time.Now()
		r.ReceivedAt = &now
	}
	r.MarkTransition(plan, actorID)
}

var _ inventory.StockDocument = (*GoodsReceipt)(nil)
