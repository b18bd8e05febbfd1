package inventory

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMovementType_Reverse(t *testing.T) {
	tests := []struct {
		forward MovementType
		reverse MovementType
	}{
		{MovementTypePurchaseReceipt, MovementTypePurchaseReceiptCancellation},
		{MovementTypeSaleDelivery, MovementTypeDeliveryCancellation},
		{MovementTypeCustomerReturn, MovementTypeCustomerReturnCancellation},
		{MovementTypeSupplierReturn, MovementTypeSupplierReturnCancellation},
	}

	for _, tt := range tests {
		t.Run(tt.forward.String(), func(t *testing.T) {
			got, ok := tt.forward.Reverse()
			assert.True(t, ok)
			assert.Equal(t, tt.reverse, got)
			assert.False(t, tt.forward.IsCancellation())
			assert.True(t, tt.reverse.IsCancellation())
			assert.Equal(t, -tt.forward.Sign(), tt.reverse.Sign())
		})
	}

	for _, mt := range []MovementType{MovementTypeInventoryAdjustment, MovementTypeInitial, MovementTypeAdjustmentIn, MovementTypeAdjustmentOut} {
		_, ok := mt.Reverse()
		assert.False(t, ok, mt.String())
	}
}

func TestMovementType_AllowsQuantity(t *testing.T) {
	pos := decimal.NewFromInt(5)
	neg := decimal.NewFromInt(-5)

	tests := []struct {
		mt       MovementType
		qty      decimal.Decimal
		expected bool
	}{
		{MovementTypePurchaseReceipt, pos, true},
		{MovementTypePurchaseReceipt, neg, false},
		{MovementTypeSaleDelivery, neg, true},
		{MovementTypeSaleDelivery, pos, false},
		{MovementTypeInventoryAdjustment, pos, true},
		{MovementTypeInventoryAdjustment, neg, true},
		{MovementTypeInventoryAdjustment, decimal.Zero, false},
		{MovementTypeAdjustmentOut, neg, true},
		{MovementTypeInitial, pos, true},
		{MovementType("bogus"), pos, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.mt.AllowsQuantity(tt.qty), "%s %s", tt.mt, tt.qty)
	}
	assert.False(t, MovementType("bogus").IsValid())
	assert.True(t, MovementTypeInventoryAdjustment.IsValid())
}

func TestStockMovement_Key(t *testing.T) {
	ref := NewDocumentRef(DocumentKindGoodsReceipt, uuid.New())
	m := StockMovement{TenantID: uuid.New(), ProductID: uuid.New(), Type: MovementTypePurchaseReceipt, Document: ref, Generation: 2}
	assert.Equal(t, uuid.Nil, m.Key().SourceItemKey)

	itemID := uuid.New()
	m.SourceItemID = &itemID
	key := m.Key()
	assert.Equal(t, itemID, key.SourceItemKey)
	assert.Equal(t, 2, key.Generation)
	assert.Equal(t, ref, key.Document)
}

func TestParseDocumentKind(t *testing.T) {
	k, err := ParseDocumentKind("delivery_note")
	assert.NoError(t, err)
	assert.Equal(t, DocumentKindDeliveryNote, k)

	_, err = ParseDocumentKind("purchase_order")
	assert.Error(t, err)
}
