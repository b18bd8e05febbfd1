package inventory

import (
	"fmt"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction is the stock effect of a status transition
type Direction int

const (
	DirectionNone Direction = iota
	DirectionForward
	DirectionReverse
)

func (d Direction) String() string {
	switch d {
	case DirectionForward:
		return "forward"
	case DirectionReverse:
		return "reverse"
	}
	return "none"
}

// StockPosting is one movement a transition asks the ledger to record.
// Quantity is signed and in the product's stock unit.
type StockPosting struct {
	ProductID         uuid.UUID
	SourceItemID      *uuid.UUID
	Type              MovementType
	Quantity          decimal.Decimal
	TransactionUnitID *uuid.UUID
}

// TransitionPlan is the outcome of planning a status change.
//
// Forward plans carry their postings. Reverse plans carry only ReverseType:
// the orchestrator negates the movements actually posted in the current
// generation, so a reversal always mirrors what was recorded.
type TransitionPlan struct {
	From        string
	To          string
	Direction   Direction
	Postings    []StockPosting
	ReverseType MovementType
}

// MovesStock reports whether executing the plan can touch the ledger
func (p TransitionPlan) MovesStock() bool {
	return p.Direction != DirectionNone
}

// Repeats reports whether the plan asks for the status the document already has.
// Such a request is a retry and changes nothing.
func (p TransitionPlan) Repeats() bool {
	return p.From == p.To
}

// IllegalTransitionError is returned when a document cannot move between two statuses
type IllegalTransitionError struct {
	Kind   DocumentKind
	Number string
	From   string
	To     string
	Reason string
}

func (e *IllegalTransitionError) Error() string {
	msg := fmt.Sprintf("%s %s cannot transition from %s to %s", e.Kind, e.Number, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// ErrorCode returns ILLEGAL_TRANSITION
func (e *IllegalTransitionError) ErrorCode() string {
	return shared.CodeIllegalTransition
}

// Is matches shared.ErrIllegalTransition
func (e *IllegalTransitionError) Is(target error) bool {
	return target == shared.ErrIllegalTransition
}

// NewIllegalTransition builds an IllegalTransitionError
func NewIllegalTransition(kind DocumentKind, number, from, to, reason string) *IllegalTransitionError {
	return &IllegalTransitionError{Kind: kind, Number: number, From: from, To: to, Reason: reason}
}

// StatusChange describes a transition between two statuses of a document family
type StatusChange struct {
	Kind         DocumentKind
	Number       string
	From         string
	To           string
	Legal        bool
	WasImpacting bool
	IsImpacting  bool
	ForwardType  MovementType
	// Lines are checked before a forward posting: a non-zero entered
	// quantity must not vanish when rounded into the stock unit.
	Lines []*StockLine
}

// PlanStatusChange applies the general rule: forward when entering the
// impacting regime, reverse when leaving it, nothing otherwise.
// forward builds the postings and may veto the transition.
//
// Asking for the current status is a retry: it plans nothing and is not an error.
func PlanStatusChange(c StatusChange, forward func() ([]StockPosting, error)) (TransitionPlan, error) {
	if c.From == c.To {
		return TransitionPlan{From: c.From, To: c.To, Direction: DirectionNone}, nil
	}
	if !c.Legal {
		return TransitionPlan{}, NewIllegalTransition(c.Kind, c.Number, c.From, c.To, "")
	}
	plan := TransitionPlan{From: c.From, To: c.To, Direction: DirectionNone}
	switch {
	case !c.WasImpacting && c.IsImpacting:
		if l := firstVanishedLine(c.Lines); l != nil {
			return TransitionPlan{}, NewIllegalTransition(c.Kind, c.Number, c.From, c.To,
				fmt.Sprintf("item %s quantity %s rounds to zero in the stock unit", l.ID, l.Quantity.Decimal))
		}
		postings, err := forward()
		if err != nil {
			return TransitionPlan{}, err
		}
		plan.Direction = DirectionForward
		plan.Postings = postings
	case c.WasImpacting && !c.IsImpacting:
		reverse, ok := c.ForwardType.Reverse()
		if !ok {
			return TransitionPlan{}, NewIllegalTransition(c.Kind, c.Number, c.From, c.To, "movements of type "+c.ForwardType.String()+" cannot be reversed")
		}
		plan.Direction = DirectionReverse
		plan.ReverseType = reverse
	}
	return plan, nil
}

// firstVanishedLine returns the first line whose entered quantity is non-zero
// but whose converted stock quantity is zero.
func firstVanishedLine(lines []*StockLine) *StockLine {
	for _, l := range lines {
		if l.Quantity.Valid && !l.Quantity.Decimal.IsZero() &&
			l.StockUnitQuantity.Valid && l.StockUnitQuantity.Decimal.IsZero() {
			return l
		}
	}
	return nil
}

// LinePostings builds one posting per line carrying a converted quantity.
// Lines without a quantity, or with zero, post nothing.
func LinePostings(lines []*StockLine, t MovementType) []StockPosting {
	postings := make([]StockPosting, 0, len(lines))
	for _, l := range lines {
		if !l.StockUnitQuantity.Valid || l.StockUnitQuantity.Decimal.IsZero() {
			continue
		}
		qty := l.StockUnitQuantity.Decimal.Abs()
		if t.Sign() < 0 {
			qty = qty.Neg()
		}
		itemID := l.ID
		unitID := l.TransactionUnitID
		postings = append(postings, StockPosting{
			ProductID:         l.ProductID,
			SourceItemID:      &itemID,
			Type:              t,
			Quantity:          qty,
			TransactionUnitID: &unitID,
		})
	}
	return postings
}

// ReversalOf returns the posting that cancels m using reverseType
func ReversalOf(m StockMovement, reverseType MovementType) StockPosting {
	return StockPosting{
		ProductID:         m.ProductID,
		SourceItemID:      m.SourceItemID,
		Type:              reverseType,
		Quantity:          m.QuantityChanged.Neg(),
		TransactionUnitID: m.TransactionUnitID,
	}
}
