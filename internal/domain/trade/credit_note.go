package trade

import (
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreditNoteStatus represents the status of a customer credit note
type CreditNoteStatus string

const (
	CreditNoteStatusDraft     CreditNoteStatus = "draft"
	CreditNoteStatusIssued    CreditNoteStatus = "issued"
	CreditNoteStatusApplied   CreditNoteStatus = "applied"
	CreditNoteStatusCancelled CreditNoteStatus = "cancelled"
)

// IsValid checks if the status is a valid CreditNoteStatus
func (s CreditNoteStatus) IsValid() bool {
	switch s {
	case CreditNoteStatusDraft, CreditNoteStatusIssued, CreditNoteStatusApplied, CreditNoteStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of CreditNoteStatus
func (s CreditNoteStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s CreditNoteStatus) CanTransitionTo(target CreditNoteStatus) bool {
	switch s {
	case CreditNoteStatusDraft:
		return target == CreditNoteStatusIssued || target == CreditNoteStatusCancelled
	case CreditNoteStatusIssued:
		return target == CreditNoteStatusApplied || target == CreditNoteStatusDraft || target == CreditNoteStatusCancelled
	case CreditNoteStatusApplied:
		return target == CreditNoteStatusCancelled
	case CreditNoteStatusCancelled:
		return target == CreditNoteStatusDraft
	}
	return false
}

// IsStockImpacting reports whether the status may hold restocked goods
func (s CreditNoteStatus) IsStockImpacting() bool {
	return s == CreditNoteStatusIssued || s == CreditNoteStatusApplied
}

// CreditNote credits a customer and optionally takes the returned goods back into stock
type CreditNote struct {
	inventory.DocumentHeader
	DocumentItems
	CustomerName string
	RestockItems bool
	Status       CreditNoteStatus
}

// NewCreditNote creates a draft credit note
func NewCreditNote(tenantID uuid.UUID, number, customerName string, restockItems bool) (*CreditNote, error) {
	header, err := inventory.NewDocumentHeader(tenantID, number)
	if err != nil {
		return nil, err
	}
	return &CreditNote{
		DocumentHeader: header,
		CustomerName:   customerName,
		RestockItems:   restockItems,
		Status:         CreditNoteStatusDraft,
	}, nil
}

// AddItem adds a returned line
func (c *CreditNote) AddItem(productID uuid.UUID, quantity decimal.NullDecimal, unitID uuid.UUID) (*inventory.StockLine, error) {
	return c.addItem(c.ItemsEditable(), c.ID, productID, quantity, unitID)
}

// UpdateItemQuantity changes a line's quantity
func (c *CreditNote) UpdateItemQuantity(itemID uuid.UUID, quantity decimal.NullDecimal) error {
	return c.updateQuantity(c.ItemsEditable(), itemID, quantity)
}

// RemoveItem removes a line while the note is editable
func (c *CreditNote) RemoveItem(itemID uuid.UUID) error {
	return c.removeItem(c.ItemsEditable(), itemID)
}

// SetRestockItems changes the restock flag. The flag only matters when the
// note next enters issued or applied; stock already posted is untouched.
func (c *CreditNote) SetRestockItems(restock bool) {
	c.RestockItems = restock
	c.UpdatedAt = time.Now()
}

// PlanTransition decides the stock effect of moving the note to `to`.
// RestockItems is consulted only when entering issued or applied from a
// non-impacting status; leaving always reverses whatever was posted.
func (c *CreditNote) PlanTransition(to CreditNoteStatus) (inventory.TransitionPlan, error) {
	was := c.Status.IsStockImpacting()
	return inventory.PlanStatusChange(inventory.StatusChange{
		Kind:         inventory.DocumentKindCreditNote,
		Number:       c.DocumentNumber,
		From:         c.Status.String(),
		To:           to.String(),
		Legal:        to.IsValid() && c.Status.CanTransitionTo(to),
		WasImpacting: was,
		IsImpacting:  to.IsStockImpacting() && (was || c.RestockItems),
		ForwardType:  inventory.MovementTypeCustomerReturn,
		Lines:        c.Lines(),
	}, func() ([]inventory.StockPosting, error) {
		return inventory.LinePostings(c.Lines(), inventory.MovementTypeCustomerReturn), nil
	})
}

// Ref returns the note's document reference
func (c *CreditNote) Ref() inventory.DocumentRef {
	return inventory.NewDocumentRef(inventory.DocumentKindCreditNote, c.ID)
}

// CurrentStatus returns the status name
func (c *CreditNote) CurrentStatus() string {
	return c.Status.String()
}

// Plan parses status and delegates to PlanTransition
func (c *CreditNote) Plan(status string) (inventory.TransitionPlan, error) {
	return c.PlanTransition(CreditNoteStatus(status))
}

// PlanDelete reverses restocked goods before the note is removed
func (c *CreditNote) PlanDelete() (inventory.TransitionPlan, error) {
	return deletePlan(inventory.DocumentKindCreditNote, c.DocumentNumber, c.Status.String(), c.Status.IsStockImpacting(), inventory.MovementTypeCustomerReturn)
}

// ItemsEditable reports whether lines may change
func (c *CreditNote) ItemsEditable() bool {
	return c.Status == CreditNoteStatusDraft
}

// Apply moves the note to plan.To
func (c *CreditNote) Apply(plan inventory.TransitionPlan, actorID uuid.UUID) {
	c.Status = CreditNoteStatus(plan.To)
	c.MarkTransition(plan, actorID)
}

var _ inventory.StockDocument = (*CreditNote)(nil)
