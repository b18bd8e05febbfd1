package trade

import (
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentItems is the item list shared by the trade document families
type DocumentItems struct {
	Items []inventory.StockLine
}

// Lines returns pointers to the items so conversions can be stored in place
func (d *DocumentItems) Lines() []*inventory.StockLine {
	return inventory.LinePointers(d.Items)
}

// GetItem returns the item with itemID, or nil
func (d *DocumentItems) GetItem(itemID uuid.UUID) *inventory.StockLine {
	for i := range d.Items {
		if d.Items[i].ID == itemID {
			return &d.Items[i]
		}
	}
	return nil
}

// ItemCount returns the number of items
func (d *DocumentItems) ItemCount() int {
	return len(d.Items)
}

// RemoveLine drops an item regardless of status; callers check editability first
func (d *DocumentItems) RemoveLine(itemID uuid.UUID) error {
	items, err := inventory.RemoveLineByID(d.Items, itemID)
	if err != nil {
		return err
	}
	d.Items = items
	return nil
}

func (d *DocumentItems) addItem(editable bool, documentID, productID uuid.UUID, quantity decimal.NullDecimal, unitID uuid.UUID) (*inventory.StockLine, error) {
	if !editable {
		return nil, inventory.ErrDocumentLocked
	}
	line, err := inventory.NewStockLine(documentID, productID, quantity, unitID)
	if err != nil {
		return nil, err
	}
	d.Items = append(d.Items, *line)
	return &d.Items[len(d.Items)-1], nil
}

func (d *DocumentItems) updateQuantity(editable bool, itemID uuid.UUID, quantity decimal.NullDecimal) error {
	if !editable {
		return inventory.ErrDocumentLocked
	}
	if quantity.Valid && quantity.Decimal.IsNegative() {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot be negative")
	}
	item := d.GetItem(itemID)
	if item == nil {
		return shared.NewDomainError(shared.CodeNotFound, "Item not found: "+itemID.String())
	}
	item.Quantity = quantity
	// converted again on the next transition
	item.StockUnitQuantity = decimal.NullDecimal{}
	item.UpdatedAt = time.Now()
	return nil
}

func (d *DocumentItems) removeItem(editable bool, itemID uuid.UUID) error {
	if !editable {
		return inventory.ErrDocumentLocked
	}
	return d.RemoveLine(itemID)
}

func deletePlan(kind inventory.DocumentKind, number, from string, wasImpacting bool, forward inventory.MovementType) (inventory.TransitionPlan, error) {
	return inventory.PlanStatusChange(inventory.StatusChange{
		Kind:         kind,
		Number:       number,
		From:         from,
		To:           "deleted",
		Legal:        true,
		WasImpacting: wasImpacting,
		ForwardType:  forward,
	}, nil)
}
