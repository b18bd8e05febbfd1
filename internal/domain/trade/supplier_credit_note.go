package trade

import (
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SupplierCreditNoteStatus represents the status of a supplier credit note
type SupplierCreditNoteStatus string

const (
	SupplierCreditNoteStatusDraft     SupplierCreditNoteStatus = "draft"
	SupplierCreditNoteStatusConfirmed SupplierCreditNoteStatus = "confirmed"
	SupplierCreditNoteStatusCancelled SupplierCreditNoteStatus = "cancelled"
)

// IsValid checks if the status is a valid SupplierCreditNoteStatus
func (s SupplierCreditNoteStatus) IsValid() bool {
	switch s {
	case SupplierCreditNoteStatusDraft, SupplierCreditNoteStatusConfirmed, SupplierCreditNoteStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of SupplierCreditNoteStatus
func (s SupplierCreditNoteStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s SupplierCreditNoteStatus) CanTransitionTo(target SupplierCreditNoteStatus) bool {
	switch s {
	case SupplierCreditNoteStatusDraft:
		return target == SupplierCreditNoteStatusConfirmed || target == SupplierCreditNoteStatusCancelled
	case SupplierCreditNoteStatusConfirmed:
		return target == SupplierCreditNoteStatusDraft || target == SupplierCreditNoteStatusCancelled
	case SupplierCreditNoteStatusCancelled:
		return target == SupplierCreditNoteStatusDraft
	}
	return false
}

// IsStockImpacting reports whether returned goods may have left stock
func (s SupplierCreditNoteStatus) IsStockImpacting() bool {
	return s == SupplierCreditNoteStatusConfirmed
}

// SupplierCreditNote records a credit from a supplier, optionally for goods sent back
type SupplierCreditNote struct {
	inventory.DocumentHeader
	DocumentItems
	SupplierName                 string
	ItemsReturnedToSupplierStock bool
	Status                       SupplierCreditNoteStatus
}

// NewSupplierCreditNote creates a draft supplier credit note
func NewSupplierCreditNote(tenantID uuid.UUID, number, supplierName string, itemsReturned bool) (*SupplierCreditNote, error) {
	header, err := inventory.NewDocumentHeader(tenantID, number)
	if err != nil {
		return nil, err
	}
	return &SupplierCreditNote{
		DocumentHeader:               header,
		SupplierName:                 supplierName,
		ItemsReturnedToSupplierStock: itemsReturned,
		Status:                       SupplierCreditNoteStatusDraft,
	}, nil
}

// AddItem adds a returned line
func (c *SupplierCreditNote) AddItem(productID uuid.UUID, quantity decimal.NullDecimal, unitID uuid.UUID) (*inventory.StockLine, error) {
	return c.addItem(c.ItemsEditable(), c.ID, productID, quantity, unitID)
}

// UpdateItemQuantity changes a line's quantity
func (c *SupplierCreditNote) UpdateItemQuantity(itemID uuid.UUID, quantity decimal.NullDecimal) error {
	return c.updateQuantity(c.ItemsEditable(), itemID, quantity)
}

// RemoveItem removes a line while the note is editable
func (c *SupplierCreditNote) RemoveItem(itemID uuid.UUID) error {
	return c.removeItem(c.ItemsEditable(), itemID)
}

// SetItemsReturned changes the returned-goods flag; it takes effect on the next confirmation
func (c *SupplierCreditNote) SetItemsReturned(returned bool) {
	c.ItemsReturnedToSupplierStock = returned
	c.UpdatedAt = time.Now()
}

// PlanTransition decides the stock effect of moving the note to `to`
func (c *SupplierCreditNote) PlanTransition(to SupplierCreditNoteStatus) (inventory.TransitionPlan, error) {
	was := c.Status.IsStockImpacting()
	return inventory.PlanStatusChange(inventory.StatusChange{
		Kind:         inventory.DocumentKindSupplierCreditNote,
		Number:       c.DocumentNumber,
		From:         c.Status.String(),
		To:           to.String(),
		Legal:        to.IsValid() && c.Status.CanTransitionTo(to),
		WasImpacting: was,
		IsImpacting:  to.IsStockImpacting() && (was || c.ItemsReturnedToSupplierStock),
		ForwardType:  inventory.MovementTypeSupplierReturn,
		Lines:        c.Lines(),
	}, func() ([]inventory.StockPosting, error) {
		return inventory.LinePostings(c.Lines(), inventory.MovementTypeSupplierReturn), nil
	})
}

// Ref returns the note's document reference
func (c *SupplierCreditNote) Ref() inventory.DocumentRef {
	return inventory.NewDocumentRef(inventory.DocumentKindSupplierCreditNote, c.ID)
}

// CurrentStatus returns the status name
func (c *SupplierCreditNote) CurrentStatus() string {
	return c.Status.String()
}

// Plan parses status and delegates to PlanTransition
func (c *SupplierCreditNote) Plan(status string) (inventory.TransitionPlan, error) {
	return c.PlanTransition(SupplierCreditNoteStatus(status))
}

// PlanDelete puts returned goods back before the note is removed
func (c *SupplierCreditNote) PlanDelete() (inventory.TransitionPlan, error) {
	return deletePlan(inventory.DocumentKindSupplierCreditNote, c.DocumentNumber, c.Status.String(), c.Status.IsStockImpacting(), inventory.MovementTypeSupplierReturn)
}

// ItemsEditable reports whether lines may change
func (c *SupplierCreditNote) ItemsEditable() bool {
	return c.Status == SupplierCreditNoteStatusDraft
}

// Apply moves the note to plan.To
func (c *SupplierCreditNote) Apply(plan inventory.TransitionPlan, actorID uuid.UUID) {
	c.Status = SupplierCreditNoteStatus(plan.To)
	c.MarkTransition(plan, actorID)
}

var _ inventory.StockDocument = (*SupplierCreditNote)(nil)
