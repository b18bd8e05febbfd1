package inventory

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType classifies a stock movement
type MovementType string

const (
	MovementTypePurchaseReceipt             MovementType = "purchase_receipt"
	MovementTypePurchaseReceiptCancellation MovementType = "purchase_receipt_cancellation"
	MovementTypeSaleDelivery                MovementType = "sale_delivery"
	MovementTypeDeliveryCancellation        MovementType = "delivery_cancellation"
	MovementTypeCustomerReturn              MovementType = "customer_return"
	MovementTypeCustomerReturnCancellation  MovementType = "customer_return_cancellation"
	MovementTypeSupplierReturn              MovementType = "supplier_return"
	MovementTypeSupplierReturnCancellation  MovementType = "supplier_return_cancellation"
	MovementTypeInventoryAdjustment         MovementType = "inventory_adjustment"
	MovementTypeInitial                     MovementType = "initial"
	MovementTypeAdjustmentIn                MovementType = "adjustment_in"
	MovementTypeAdjustmentOut               MovementType = "adjustment_out"
)

var movementReversals = map[MovementType]MovementType{
	MovementTypePurchaseReceipt: MovementTypePurchaseReceiptCancellation,
	MovementTypeSaleDelivery:    MovementTypeDeliveryCancellation,
	MovementTypeCustomerReturn:  MovementTypeCustomerReturnCancellation,
	MovementTypeSupplierReturn:  MovementTypeSupplierReturnCancellation,
}

// IsValid checks if the movement type is known
func (t MovementType) IsValid() bool {
	return t.Sign() != 0 || t == MovementTypeInventoryAdjustment
}

// String returns the string representation of MovementType
func (t MovementType) String() string {
	return string(t)
}

// Sign returns the required sign of a movement's quantity:
// 1 for inbound, -1 for outbound, 0 when either sign is allowed (or unknown).
func (t MovementType) Sign() int {
	switch t {
	case MovementTypePurchaseReceipt, MovementTypeDeliveryCancellation, MovementTypeCustomerReturn,
		MovementTypeSupplierReturnCancellation, MovementTypeInitial, MovementTypeAdjustmentIn:
		return 1
	case MovementTypePurchaseReceiptCancellation, MovementTypeSaleDelivery, MovementTypeCustomerReturnCancellation,
		MovementTypeSupplierReturn, MovementTypeAdjustmentOut:
		return -1
	}
	return 0
}

// Reverse returns the cancelling type of a forward type
func (t MovementType) Reverse() (MovementType, bool) {
	r, ok := movementReversals[t]
	return r, ok
}

// ReversibleTypes returns the forward types that have a cancelling type, sorted
func ReversibleTypes() []MovementType {
	types := make([]MovementType, 0, len(movementReversals))
	for t := range movementReversals {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// IsCancellation reports whether t cancels another movement type
func (t MovementType) IsCancellation() bool {
	for _, r := range movementReversals {
		if r == t {
			return true
		}
	}
	return false
}

// AllowsQuantity reports whether qty has the sign this movement type requires
func (t MovementType) AllowsQuantity(qty decimal.Decimal) bool {
	if qty.IsZero() {
		return false
	}
	switch t.Sign() {
	case 1:
		return qty.IsPositive()
	case -1:
		return qty.IsNegative()
	}
	return t == MovementTypeInventoryAdjustment
}

// StockMovement is one immutable row of the stock ledger.
// QuantityChanged is signed and expressed in the product's stock unit.
type StockMovement struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	ProductID         uuid.UUID
	Type              MovementType
	QuantityChanged   decimal.Decimal
	NewStockQuantity  decimal.Decimal
	Sequence          int64
	MovementDate      time.Time
	Document          DocumentRef
	SourceItemID      *uuid.UUID
	Generation        int
	ActorID           uuid.UUID
	Reason            string
	TransactionUnitID *uuid.UUID
	CreatedAt         time.Time
}

// Key returns the structural posting key of the movement
func (m *StockMovement) Key() PostingKey {
	return PostingKey{
		TenantID:      m.TenantID,
		Document:      m.Document,
		SourceItemKey: SourceItemKey(m.SourceItemID),
		ProductID:     m.ProductID,
		Type:          m.Type,
		Generation:    m.Generation,
	}
}

// PostingKey identifies a posting structurally. At most one movement may exist per key.
type PostingKey struct {
	TenantID      uuid.UUID
	Document      DocumentRef
	SourceItemKey uuid.UUID
	ProductID     uuid.UUID
	Type          MovementType
	Generation    int
}

// SourceItemKey maps an optional document line to its key column; header-level postings use uuid.Nil
func SourceItemKey(itemID *uuid.UUID) uuid.UUID {
	if itemID == nil {
		return uuid.Nil
	}
	return *itemID
}
