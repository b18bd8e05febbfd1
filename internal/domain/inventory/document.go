package inventory

import (
	"fmt"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentKind is the closed set of documents that may move stock
type DocumentKind string

const (
	DocumentKindGoodsReceipt       DocumentKind = "goods_receipt"
	DocumentKindDeliveryNote       DocumentKind = "delivery_note"
	DocumentKindCreditNote         DocumentKind = "credit_note"
	DocumentKindSupplierCreditNote DocumentKind = "supplier_credit_note"
	DocumentKindInventorySession   DocumentKind = "inventory_session"
	DocumentKindProduct            DocumentKind = "product"
)

// IsValid checks if the kind is known
func (k DocumentKind) IsValid() bool {
	switch k {
	case DocumentKindGoodsReceipt, DocumentKindDeliveryNote, DocumentKindCreditNote,
		DocumentKindSupplierCreditNote, DocumentKindInventorySession, DocumentKindProduct:
		return true
	}
	return false
}

// String returns the string representation of DocumentKind
func (k DocumentKind) String() string {
	return string(k)
}

// ParseDocumentKind parses s, rejecting unknown kinds
func ParseDocumentKind(s string) (DocumentKind, error) {
	k := DocumentKind(s)
	if !k.IsValid() {
		return "", shared.NewDomainError(shared.CodeInvalidInput, "Unknown document kind: "+s)
	}
	return k, nil
}

// DocumentRef is a typed reference to the document that caused a movement
type DocumentRef struct {
	Kind DocumentKind
	ID   uuid.UUID
}

// NewDocumentRef creates a document reference
func NewDocumentRef(kind DocumentKind, id uuid.UUID) DocumentRef {
	return DocumentRef{Kind: kind, ID: id}
}

func (r DocumentRef) String() string {
	return fmt.Sprintf("%s/%s", r.Kind, r.ID)
}

// ErrDocumentLocked is returned when items are edited on a document whose status forbids it
var ErrDocumentLocked = shared.NewDomainError(shared.CodeInvalidState, "Document items cannot be changed in the current status")

// StockLine is a document item that may move stock.
// Quantity is entered in TransactionUnitID; StockUnitQuantity is the
// same quantity expressed in the product's stock unit.
type StockLine struct {
	ID                uuid.UUID
	DocumentID        uuid.UUID
	ProductID         uuid.UUID
	Quantity          decimal.NullDecimal
	TransactionUnitID uuid.UUID
	StockUnitQuantity decimal.NullDecimal
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewStockLine creates a line for documentID
func NewStockLine(documentID, productID uuid.UUID, quantity decimal.NullDecimal, unitID uuid.UUID) (*StockLine, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product ID is required")
	}
	if unitID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Transaction unit is required")
	}
	if quantity.Valid && quantity.Decimal.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot be negative")
	}
	now := time.Now()
	return &StockLine{
		ID:                uuid.New(),
		DocumentID:        documentID,
		ProductID:         productID,
		Quantity:          quantity,
		TransactionUnitID: unitID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// HasPositiveQuantity reports whether the line carries a usable quantity
func (l *StockLine) HasPositiveQuantity() bool {
	return l.Quantity.Valid && l.Quantity.Decimal.IsPositive()
}

// DocumentHeader holds the fields shared by every stock document
type DocumentHeader struct {
	shared.TenantAggregateRoot
	DocumentNumber  string
	StockGeneration int
	StatusChangedBy *uuid.UUID
	StatusChangedAt *time.Time
}

// NewDocumentHeader creates a header for a new document
func NewDocumentHeader(tenantID uuid.UUID, number string) (DocumentHeader, error) {
	if number == "" {
		return DocumentHeader{}, shared.NewDomainError(shared.CodeInvalidInput, "Document number is required")
	}
	return DocumentHeader{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		DocumentNumber:      number,
	}, nil
}

// Number returns the document number
func (h *DocumentHeader) Number() string {
	return h.DocumentNumber
}

// Generation returns how many times the document entered a stock-impacting status
func (h *DocumentHeader) Generation() int {
	return h.StockGeneration
}

// Tenant returns the owning tenant
func (h *DocumentHeader) Tenant() uuid.UUID {
	return h.TenantID
}

// MarkTransition records who moved the document and when.
// Entering the impacting regime starts a new stock generation.
func (h *DocumentHeader) MarkTransition(plan TransitionPlan, actorID uuid.UUID) {
	now := time.Now()
	if plan.Direction == DirectionForward {
		h.StockGeneration++
	}
	h.StatusChangedBy = &actorID
	h.StatusChangedAt = &now
	h.IncrementVersion()
}

// StockDocument is the contract the transition orchestrator composes.
// Each family still exposes its own statically typed PlanTransition; Plan
// parses the status name and delegates to it.
type StockDocument interface {
	Ref() DocumentRef
	Tenant() uuid.UUID
	Number() string
	CurrentStatus() string
	Generation() int
	GetVersion() int
	// Lines returns the document items; the orchestrator fills StockUnitQuantity in place
	Lines() []*StockLine
	// Plan decides the stock effect of moving to status
	Plan(status string) (TransitionPlan, error)
	// PlanDelete decides the stock effect of deleting the document
	PlanDelete() (TransitionPlan, error)
	// ItemsEditable reports whether items may be added or removed without reversal
	ItemsEditable() bool
	// RemoveLine drops the item from the aggregate
	RemoveLine(itemID uuid.UUID) error
	// UpdateItemQuantity changes the entered quantity of an item when the status allows it
	UpdateItemQuantity(itemID uuid.UUID, quantity decimal.NullDecimal) error
	// IncrementVersion records an edit that is not a status change
	IncrementVersion()
	// Apply moves the document to plan.To
	Apply(plan TransitionPlan, actorID uuid.UUID)
}

// TheoreticalSnapshotter is implemented by documents that capture stock balances on a transition
type TheoreticalSnapshotter interface {
	NeedsSnapshot(plan TransitionPlan) bool
	Snapshot(balances map[uuid.UUID]decimal.Decimal)
}

// RemoveLineByID removes itemID from items, failing with ErrNotFound when absent
func RemoveLineByID(items []StockLine, itemID uuid.UUID) ([]StockLine, error) {
	for i := range items {
		if items[i].ID == itemID {
			return append(items[:i], items[i+1:]...), nil
		}
	}
	return items, shared.NewDomainError(shared.CodeNotFound, "Item not found: "+itemID.String())
}

// LinePointers returns pointers into items so callers can update them in place
func LinePointers(items []StockLine) []*StockLine {
	lines := make([]*StockLine, len(items))
	for i := range items {
		lines[i] = &items[i]
	}
	return lines
}
