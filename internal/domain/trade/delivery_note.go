package trade

import (
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DeliveryNoteStatus represents the status of a delivery note
type DeliveryNoteStatus string

const (
	DeliveryNoteStatusDraft     DeliveryNoteStatus = "draft"
	DeliveryNoteStatusReady     DeliveryNoteStatus = "ready"
	DeliveryNoteStatusShipped   DeliveryNoteStatus = "shipped"
	DeliveryNoteStatusDelivered DeliveryNoteStatus = "delivered"
	DeliveryNoteStatusCancelled DeliveryNoteStatus = "cancelled"
)

// IsValid checks if the status is a valid DeliveryNoteStatus
func (s DeliveryNoteStatus) IsValid() bool {
	switch s {
	case DeliveryNoteStatusDraft, DeliveryNoteStatusReady, DeliveryNoteStatusShipped,
		DeliveryNoteStatusDelivered, DeliveryNoteStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of DeliveryNoteStatus
func (s DeliveryNoteStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s DeliveryNoteStatus) CanTransitionTo(target DeliveryNoteStatus) bool {
	switch s {
	case DeliveryNoteStatusDraft:
		return target == DeliveryNoteStatusReady || target == DeliveryNoteStatusShipped || target == DeliveryNoteStatusCancelled
	case DeliveryNoteStatusReady:
		return target == DeliveryNoteStatusShipped || target == DeliveryNoteStatusDraft || target == DeliveryNoteStatusCancelled
	case DeliveryNoteStatusShipped:
		return target == DeliveryNoteStatusDelivered || target == DeliveryNoteStatusReady || target == DeliveryNoteStatusCancelled
	case DeliveryNoteStatusDelivered:
		return target == DeliveryNoteStatusCancelled
	case DeliveryNoteStatusCancelled:
		return target == DeliveryNoteStatusDraft
	}
	return false
}

// IsStockImpacting reports whether shipped goods have left stock
func (s DeliveryNoteStatus) IsStockImpacting() bool {
	return s == DeliveryNoteStatusShipped || s == DeliveryNoteStatusDelivered
}

// DeliveryNote records goods shipped to a customer
type DeliveryNote struct {
	inventory.DocumentHeader
	DocumentItems
	CustomerName string
	Status       DeliveryNoteStatus
	ShippedAt    *time.Time
}

// NewDeliveryNote creates a draft delivery note
func NewDeliveryNote(tenantID uuid.UUID, number, customerName string) (*DeliveryNote, error) {
	header, err := inventory.NewDocumentHeader(tenantID, number)
	if err != nil {
		return nil, err
	}
	return &DeliveryNote{
		DocumentHeader: header,
		CustomerName:   customerName,
		Status:         DeliveryNoteStatusDraft,
	}, nil
}

// AddItem adds a line to ship
func (n *DeliveryNote) AddItem(productID uuid.UUID, quantity decimal.NullDecimal, unitID uuid.UUID) (*inventory.StockLine, error) {
	return n.addItem(n.ItemsEditable(), n.ID, productID, quantity, unitID)
}

// UpdateItemQuantity changes a line's quantity
func (n *DeliveryNote) UpdateItemQuantity(itemID uuid.UUID, quantity decimal.NullDecimal) error {
	return n.updateQuantity(n.ItemsEditable(), itemID, quantity)
}

// RemoveItem removes a line while the note is editable
func (n *DeliveryNote) RemoveItem(itemID uuid.UUID) error {
	return n.removeItem(n.ItemsEditable(), itemID)
}

// PlanTransition decides the stock effect of moving the note to `to`
func (n *DeliveryNote) PlanTransition(to DeliveryNoteStatus) (inventory.TransitionPlan, error) {
	return inventory.PlanStatusChange(inventory.StatusChange{
		Kind:         inventory.DocumentKindDeliveryNote,
		Number:       n.DocumentNumber,
		From:         n.Status.String(),
		To:           to.String(),
		Legal:        to.IsValid() && n.Status.CanTransitionTo(to),
		WasImpacting: n.Status.IsStockImpacting(),
		IsImpacting:  to.IsStockImpacting(),
		ForwardType:  inventory.MovementTypeSaleDelivery,
		Lines:        n.Lines(),
	}, func() ([]inventory.StockPosting, error) {
		return inventory.LinePostings(n.Lines(), inventory.MovementTypeSaleDelivery), nil
	})
}

// Ref returns the note's document reference
func (n *DeliveryNote) Ref() inventory.DocumentRef {
	return inventory.NewDocumentRef(inventory.DocumentKindDeliveryNote, n.ID)
}

// CurrentStatus returns the status name
func (n *DeliveryNote) CurrentStatus() string {
	return n.Status.String()
}

// Plan parses status and delegates to PlanTransition
func (n *DeliveryNote) Plan(status string) (inventory.TransitionPlan, error) {
	return n.PlanTransition(DeliveryNoteStatus(status))
}

// PlanDelete returns shipped goods to stock before the note is removed
func (n *DeliveryNote) PlanDelete() (inventory.TransitionPlan, error) {
	return deletePlan(inventory.DocumentKindDeliveryNote, n.DocumentNumber, n.Status.String(), n.Status.IsStockImpacting(), inventory.MovementTypeSaleDelivery)
}

// ItemsEditable reports whether lines may change
func (n *DeliveryNote) ItemsEditable() bool {
	return n.Status == DeliveryNoteStatusDraft || n.Status == DeliveryNoteStatusReady
}

// Apply moves the note to plan.To
func (n *DeliveryNote) Apply(plan inventory.TransitionPlan, actorID uuid.UUID) {
	n.Status = DeliveryNoteStatus(plan.To)
	if plan.Direction == inventory.DirectionForward {
		now := time.Now()
		n.ShippedAt = &now
	}
	n.MarkTransition(plan, actorID)
}

var _ inventory.StockDocument = (*DeliveryNote)(nil)
