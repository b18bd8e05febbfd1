package inventory

import (
	"strings"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventorySessionStatus represents the status of a physical count
type InventorySessionStatus string

const (
	InventorySessionStatusDraft      InventorySessionStatus = "draft"
	InventorySessionStatusInProgress InventorySessionStatus = "in_progress"
	InventorySessionStatusCompleted  InventorySessionStatus = "completed"
	InventorySessionStatusValidated  InventorySessionStatus = "validated"
	InventorySessionStatusCancelled  InventorySessionStatus = "cancelled"
)

// IsValid checks if the status is a valid InventorySessionStatus
func (s InventorySessionStatus) IsValid() bool {
	switch s {
	case InventorySessionStatusDraft, InventorySessionStatusInProgress, InventorySessionStatusCompleted,
		InventorySessionStatusValidated, InventorySessionStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InventorySessionStatus
func (s InventorySessionStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s InventorySessionStatus) CanTransitionTo(target InventorySessionStatus) bool {
	switch s {
	case InventorySessionStatusDraft:
		return target == InventorySessionStatusInProgress || target == InventorySessionStatusCancelled
	case InventorySessionStatusInProgress:
		return target == InventorySessionStatusCompleted || target == InventorySessionStatusCancelled
	case InventorySessionStatusCompleted:
		return target == InventorySessionStatusInProgress || target == InventorySessionStatusValidated ||
			target == InventorySessionStatusCancelled
	case InventorySessionStatusValidated, InventorySessionStatusCancelled:
		return false // Terminal states
	}
	return false
}

// IsStockImpacting reports whether the session's adjustments are in the ledger
func (s InventorySessionStatus) IsStockImpacting() bool {
	return s == InventorySessionStatusValidated
}

// SessionItem is a counted line. TheoreticalQuantity is the product's stock
// balance captured when counting started; Quantity is what was counted.
type SessionItem struct {
	StockLine
	TheoreticalQuantity decimal.NullDecimal
}

// InventorySession is a physical stock count whose validation posts the
// difference between counted and theoretical quantities.
type InventorySession struct {
	DocumentHeader
	Name        string
	Status      InventorySessionStatus
	StartedAt   *time.Time
	CompletedAt *time.Time
	Items       []SessionItem
}

// NewInventorySession creates a draft session
func NewInventorySession(tenantID uuid.UUID, number, name string) (*InventorySession, error) {
	header, err := NewDocumentHeader(tenantID, number)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Session name cannot be empty")
	}
	return &InventorySession{
		DocumentHeader: header,
		Name:           name,
		Status:         InventorySessionStatusDraft,
	}, nil
}

// AddItem adds a product to count. Quantity may be null until counted.
func (s *InventorySession) AddItem(productID uuid.UUID, counted decimal.NullDecimal, unitID uuid.UUID) (*SessionItem, error) {
	if !s.ItemsEditable() {
		return nil, ErrDocumentLocked
	}
	for _, it := range s.Items {
		if it.ProductID == productID {
			return nil, shared.NewDomainError(shared.CodeAlreadyExists, "Product is already part of the session")
		}
	}
	line, err := NewStockLine(s.ID, productID, counted, unitID)
	if err != nil {
		return nil, err
	}
	s.Items = append(s.Items, SessionItem{StockLine: *line})
	return &s.Items[len(s.Items)-1], nil
}

// RecordCount sets the counted quantity of an item; a null quantity clears it
func (s *InventorySession) RecordCount(itemID uuid.UUID, counted decimal.NullDecimal) error {
	if s.Status != InventorySessionStatusDraft && s.Status != InventorySessionStatusInProgress {
		return ErrDocumentLocked
	}
	if counted.Valid && counted.Decimal.IsNegative() {
		return shared.NewDomainError("INVALID_QUANTITY", "Counted quantity cannot be negative")
	}
	for i := range s.Items {
		if s.Items[i].ID == itemID {
			s.Items[i].Quantity = counted
			s.Items[i].StockUnitQuantity = decimal.NullDecimal{}
			s.Items[i].UpdatedAt = time.Now()
			return nil
		}
	}
	return shared.NewDomainError(shared.CodeNotFound, "Item not found: "+itemID.String())
}

// UpdateItemQuantity records a count; sessions accept counts until they are completed
func (s *InventorySession) UpdateItemQuantity(itemID uuid.UUID, counted decimal.NullDecimal) error {
	return s.RecordCount(itemID, counted)
}

// PlanTransition decides the stock effect of moving the session to `to`.
// Validation posts one inventory_adjustment per counted item whose count
// differs from the snapshot. Items never counted are skipped, not zeroed.
func (s *InventorySession) PlanTransition(to InventorySessionStatus) (TransitionPlan, error) {
	if !to.IsValid() {
		return TransitionPlan{}, NewIllegalTransition(DocumentKindInventorySession, s.DocumentNumber, s.Status.String(), to.String(), "unknown status")
	}
	return PlanStatusChange(StatusChange{
		Kind:         DocumentKindInventorySession,
		Number:       s.DocumentNumber,
		From:         s.Status.String(),
		To:           to.String(),
		Legal:        s.Status.CanTransitionTo(to),
		WasImpacting: s.Status.IsStockImpacting(),
		IsImpacting:  to.IsStockImpacting(),
		ForwardType:  MovementTypeInventoryAdjustment,
		Lines:        s.Lines(),
	}, s.adjustmentPostings)
}

func (s *InventorySession) adjustmentPostings() ([]StockPosting, error) {
	var postings []StockPosting
	for i := range s.Items {
		it := &s.Items[i]
		if !it.StockUnitQuantity.Valid || !it.TheoreticalQuantity.Valid {
			continue
		}
		delta := it.StockUnitQuantity.Decimal.Sub(it.TheoreticalQuantity.Decimal)
		if delta.IsZero() {
			continue
		}
		itemID := it.ID
		unitID := it.TransactionUnitID
		postings = append(postings, StockPosting{
			ProductID:         it.ProductID,
			SourceItemID:      &itemID,
			Type:              MovementTypeInventoryAdjustment,
			Quantity:          delta,
			TransactionUnitID: &unitID,
		})
	}
	return postings, nil
}

// Ref returns the session's document reference
func (s *InventorySession) Ref() DocumentRef {
	return NewDocumentRef(DocumentKindInventorySession, s.ID)
}

// CurrentStatus returns the status name
func (s *InventorySession) CurrentStatus() string {
	return s.Status.String()
}

// Lines returns the session items
func (s *InventorySession) Lines() []*StockLine {
	lines := make([]*StockLine, len(s.Items))
	for i := range s.Items {
		lines[i] = &s.Items[i].StockLine
	}
	return lines
}

// Plan parses status and delegates to PlanTransition
func (s *InventorySession) Plan(status string) (TransitionPlan, error) {
	return s.PlanTransition(InventorySessionStatus(status))
}

// PlanDelete refuses to delete a validated session; other statuses hold no stock
func (s *InventorySession) PlanDelete() (TransitionPlan, error) {
	if s.Status.IsStockImpacting() {
		return TransitionPlan{}, NewIllegalTransition(DocumentKindInventorySession, s.DocumentNumber, s.Status.String(), "deleted", "validated sessions are permanent")
	}
	return TransitionPlan{From: s.Status.String(), To: "deleted", Direction: DirectionNone}, nil
}

// ItemsEditable reports whether items may be added or removed
func (s *InventorySession) ItemsEditable() bool {
	return s.Status == InventorySessionStatusDraft
}

// RemoveLine removes an item while the session is editable
func (s *InventorySession) RemoveLine(itemID uuid.UUID) error {
	for i := range s.Items {
		if s.Items[i].ID == itemID {
			s.Items = append(s.Items[:i], s.Items[i+1:]...)
			return nil
		}
	}
	return shared.NewDomainError(shared.CodeNotFound, "Item not found: "+itemID.String())
}

// Apply moves the session to plan.To
func (s *InventorySession) Apply(plan TransitionPlan, actorID uuid.UUID) {
	now := time.Now()
	s.Status = InventorySessionStatus(plan.To)
	switch s.Status {
	case InventorySessionStatusInProgress:
		if s.StartedAt == nil {
			s.StartedAt = &now
		}
	case InventorySessionStatusCompleted:
		s.CompletedAt = &now
	}
	s.MarkTransition(plan, actorID)
}

// NeedsSnapshot is true when counting starts from draft
func (s *InventorySession) NeedsSnapshot(plan TransitionPlan) bool {
	return plan.From == InventorySessionStatusDraft.String() && plan.To == InventorySessionStatusInProgress.String()
}

// Snapshot stores each item's current stock balance as its theoretical quantity
func (s *InventorySession) Snapshot(balances map[uuid.UUID]decimal.Decimal) {
	for i := range s.Items {
		if qty, ok := balances[s.Items[i].ProductID]; ok {
			s.Items[i].TheoreticalQuantity = decimal.NewNullDecimal(qty)
		}
	}
}

var (
	_ StockDocument          = (*InventorySession)(nil)
	_ TheoreticalSnapshotter = (*InventorySession)(nil)
)
