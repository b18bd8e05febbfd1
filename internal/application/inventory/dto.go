package inventory

import (
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementResponse represents a stock movement in API responses
type MovementResponse struct {
	ID                uuid.UUID       `json:"id"`
	ProductID         uuid.UUID       `json:"product_id"`
	Type              string          `json:"type"`
	QuantityChanged   decimal.Decimal `json:"quantity_changed"`
	NewStockQuantity  decimal.Decimal `json:"new_stock_quantity"`
	Sequence          int64           `json:"sequence"`
	MovementDate      time.Time       `json:"movement_date"`
	DocumentKind      string          `json:"document_kind"`
	DocumentID        uuid.UUID       `json:"document_id"`
	SourceItemID      *uuid.UUID      `json:"source_item_id,omitempty"`
	Generation        int             `json:"generation"`
	ActorID           uuid.UUID       `json:"actor_id"`
	Reason            string          `json:"reason,omitempty"`
	TransactionUnitID *uuid.UUID      `json:"transaction_unit_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// ToMovementResponse converts a movement to its response
func ToMovementResponse(m *inventory.StockMovement) MovementResponse {
	return MovementResponse{
		ID:                m.ID,
		ProductID:         m.ProductID,
		Type:              m.Type.String(),
		QuantityChanged:   m.QuantityChanged,
		NewStockQuantity:  m.NewStockQuantity,
		Sequence:          m.Sequence,
		MovementDate:      m.MovementDate,
		DocumentKind:      m.Document.Kind.String(),
		DocumentID:        m.Document.ID,
		SourceItemID:      m.SourceItemID,
		Generation:        m.Generation,
		ActorID:           m.ActorID,
		Reason:            m.Reason,
		TransactionUnitID: m.TransactionUnitID,
		CreatedAt:         m.CreatedAt,
	}
}

// ToMovementResponses converts a list of movements
func ToMovementResponses(movements []inventory.StockMovement) []MovementResponse {
	responses := make([]MovementResponse, len(movements))
	for i := range movements {
		responses[i] = ToMovementResponse(&movements[i])
	}
	return responses
}

// BalanceResponse compares a product's cached balance with its ledger
type BalanceResponse struct {
	ProductID      uuid.UUID       `json:"product_id"`
	StockUnitID    uuid.UUID       `json:"stock_unit_id"`
	StockQuantity  decimal.Decimal `json:"stock_quantity"`
	LedgerSum      decimal.Decimal `json:"ledger_sum"`
	LedgerSequence int64           `json:"ledger_sequence"`
	InSync         bool            `json:"in_sync"`
	IsBelowMinimum bool            `json:"is_below_minimum"`
	IsAboveMaximum bool            `json:"is_above_maximum"`
}

// DriftResponse is a product whose cached balance disagrees with its ledger
type DriftResponse struct {
	ProductID     uuid.UUID       `json:"product_id"`
	StockQuantity decimal.Decimal `json:"stock_quantity"`
	LedgerSum     decimal.Decimal `json:"ledger_sum"`
	Difference    decimal.Decimal `json:"difference"`
}

// TransitionResult reports what a transition did to the ledger
type TransitionResult struct {
	Document    inventory.DocumentRef `json:"-"`
	From        string                `json:"from"`
	To          string                `json:"to"`
	Direction   string                `json:"direction"`
	MovementIDs []uuid.UUID           `json:"movement_ids"`
	Skipped     int                   `json:"skipped"`
}

// DocumentItemInput is one line of a document creation request
type DocumentItemInput struct {
	ProductID         uuid.UUID        `json:"product_id" binding:"required"`
	Quantity          *decimal.Decimal `json:"quantity"`
	TransactionUnitID uuid.UUID        `json:"transaction_unit_id" binding:"required"`
}

// CreateDocumentRequest creates a stock document of any family
type CreateDocumentRequest struct {
	DocumentNumber string              `json:"document_number" binding:"required,max=50"`
	PartnerName    string              `json:"partner_name" binding:"max=200"`
	Name           string              `json:"name" binding:"max=200"`
	RestockItems   bool                `json:"restock_items"`
	ItemsReturned  bool                `json:"items_returned_to_supplier_stock"`
	Items          []DocumentItemInput `json:"items" binding:"dive"`
}

// UpdateItemRequest changes the entered quantity of one item.
// A null quantity clears it, which leaves a session item uncounted.
type UpdateItemRequest struct {
	Quantity *decimal.Decimal `json:"quantity"`
}

// UpdateDocumentRequest changes the stock flags of a credit note family.
// Flags only take effect on the next stock-impacting transition.
type UpdateDocumentRequest struct {
	RestockItems  *bool `json:"restock_items"`
	ItemsReturned *bool `json:"items_returned_to_supplier_stock"`
}

// DocumentItemResponse represents a document line in API responses
type DocumentItemResponse struct {
	ID                  uuid.UUID        `json:"id"`
	ProductID           uuid.UUID        `json:"product_id"`
	Quantity            *decimal.Decimal `json:"quantity"`
	TransactionUnitID   uuid.UUID        `json:"transaction_unit_id"`
	StockUnitQuantity   *decimal.Decimal `json:"stock_unit_quantity"`
	TheoreticalQuantity *decimal.Decimal `json:"theoretical_quantity,omitempty"`
}

// DocumentResponse represents a stock document in API responses
type DocumentResponse struct {
	ID              uuid.UUID              `json:"id"`
	Kind            string                 `json:"kind"`
	DocumentNumber  string                 `json:"document_number"`
	Status          string                 `json:"status"`
	StockGeneration int                    `json:"stock_generation"`
	Version         int                    `json:"version"`
	Items           []DocumentItemResponse `json:"items"`
}

func nullableDecimal(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

// ToDocumentResponse converts any stock document to its response
func ToDocumentResponse(doc inventory.StockDocument) DocumentResponse {
	resp := DocumentResponse{
		ID:              doc.Ref().ID,
		Kind:            doc.Ref().Kind.String(),
		DocumentNumber:  doc.Number(),
		Status:          doc.CurrentStatus(),
		StockGeneration: doc.Generation(),
		Version:         doc.GetVersion(),
	}
	theoretical := map[uuid.UUID]decimal.NullDecimal{}
	if session, ok := doc.(*inventory.InventorySession); ok {
		for _, it := range session.Items {
			theoretical[it.ID] = it.TheoreticalQuantity
		}
	}
	for _, l := range doc.Lines() {
		resp.Items = append(resp.Items, DocumentItemResponse{
			ID:                  l.ID,
			ProductID:           l.ProductID,
			Quantity:            nullableDecimal(l.Quantity),
			TransactionUnitID:   l.TransactionUnitID,
			StockUnitQuantity:   nullableDecimal(l.StockUnitQuantity),
			TheoreticalQuantity: nullableDecimal(theoretical[l.ID]),
		})
	}
	return resp
}

// NewDocument builds a draft document of kind from req
func NewDocument(kind inventory.DocumentKind, tenantID uuid.UUID, req CreateDocumentRequest) (inventory.StockDocument, error) {
	type itemAdder interface {
		AddItem(productID uuid.UUID, quantity decimal.NullDecimal, unitID uuid.UUID) (*inventory.StockLine, error)
	}

	var (
		doc   inventory.StockDocument
		adder itemAdder
		err   error
	)
	switch kind {
	case inventory.DocumentKindGoodsReceipt:
		var d *trade.GoodsReceipt
		d, err = trade.NewGoodsReceipt(tenantID, req.DocumentNumber, req.PartnerName)
		doc, adder = d, d
	case inventory.DocumentKindDeliveryNote:
		var d *trade.DeliveryNote
		d, err = trade.NewDeliveryNote(tenantID, req.DocumentNumber, req.PartnerName)
		doc, adder = d, d
	case inventory.DocumentKindCreditNote:
		var d *trade.CreditNote
		d, err = trade.NewCreditNote(tenantID, req.DocumentNumber, req.PartnerName, req.RestockItems)
		doc, adder = d, d
	case inventory.DocumentKindSupplierCreditNote:
		var d *trade.SupplierCreditNote
		d, err = trade.NewSupplierCreditNote(tenantID, req.DocumentNumber, req.PartnerName, req.ItemsReturned)
		doc, adder = d, d
	case inventory.DocumentKindInventorySession:
		var s *inventory.InventorySession
		s, err = inventory.NewInventorySession(tenantID, req.DocumentNumber, req.Name)
		if err == nil {
			for _, it := range req.Items {
				if _, err = s.AddItem(it.ProductID, toNullDecimal(it.Quantity), it.TransactionUnitID); err != nil {
					return nil, err
				}
			}
		}
		return s, err
	default:
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Documents of kind "+kind.String()+" cannot be created")
	}
	if err != nil {
		return nil, err
	}
	for _, it := range req.Items {
		if _, err := adder.AddItem(it.ProductID, toNullDecimal(it.Quantity), it.TransactionUnitID); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func toNullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}
