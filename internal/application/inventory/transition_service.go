package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultQuantityScale is the number of decimal places stock quantities are rounded to
const DefaultQuantityScale int32 = 6

// UnitGraphSource provides the current unit graph
type UnitGraphSource interface {
	Graph(ctx context.Context) (*catalog.UnitGraph, error)
}

// TransitionOption configures a StockTransitionService
type TransitionOption func(*StockTransitionService)

// WithTransitionMetrics sets the metrics sink
func WithTransitionMetrics(m Metrics) TransitionOption {
	return func(s *StockTransitionService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithQuantityScale sets the rounding scale of converted quantities
func WithQuantityScale(scale int32) TransitionOption {
	return func(s *StockTransitionService) {
		if scale > 0 {
			s.scale = scale
		}
	}
}

// StockTransitionService moves stock documents between statuses and posts
// the resulting stock movements in the same transaction.
type StockTransitionService struct {
	scope   TransactionScope
	units   UnitGraphSource
	ledger  *Ledger
	logger  *zap.Logger
	metrics Metrics
	scale   int32
}

// NewStockTransitionService creates the transition orchestrator
func NewStockTransitionService(scope TransactionScope, units UnitGraphSource, ledger *Ledger, logger *zap.Logger, opts ...TransitionOption) *StockTransitionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &StockTransitionService{
		scope:   scope,
		units:   units,
		ledger:  ledger,
		logger:  logger,
		metrics: noopMetrics{},
		scale:   DefaultQuantityScale,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Transition moves the document at ref to newStatus.
//
// The document row is locked, item quantities are converted to stock units,
// the family plans the transition and every resulting posting goes through
// the ledger before the new status is stored. Any failure rolls back all of it.
// Asking for the status the document already has succeeds without changes.
func (s *StockTransitionService) Transition(ctx context.Context, actor shared.ActorContext, ref inventory.DocumentRef, newStatus string) (*TransitionResult, error) {
	ctx, span := s.ledger.tracer.Start(ctx, "StockTransitionService.Transition", trace.WithAttributes(
		attribute.String("document", ref.String()),
		attribute.String("to", newStatus),
	))
	defer span.End()

	if err := actor.Validate(); err != nil {
		return nil, err
	}
	conv, err := s.conversionService(ctx)
	if err != nil {
		return nil, s.fail(span, err)
	}

	var (
		result *TransitionResult
		from   string
	)
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		doc, err := repos.DocumentRepo().FindByRefForUpdate(ctx, actor.TenantID, ref)
		if err != nil {
			return err
		}
		expectedVersion := doc.GetVersion()
		from = doc.CurrentStatus()

		products, err := s.loadProducts(ctx, repos, actor.TenantID, doc.Lines())
		if err != nil {
			return err
		}
		convErr := s.convertLines(conv, doc.Lines(), products)

		plan, err := doc.Plan(newStatus)
		if err != nil {
			return err
		}
		if plan.Repeats() {
			// Retried request: the document already has this status.
			result = &TransitionResult{
				Document:    ref,
				From:        plan.From,
				To:          plan.To,
				Direction:   plan.Direction.String(),
				MovementIDs: []uuid.UUID{},
			}
			return nil
		}
		snapshotter, snapshots := doc.(inventory.TheoreticalSnapshotter)
		snapshots = snapshots && snapshotter.NeedsSnapshot(plan)
		if convErr != nil && (plan.Direction == inventory.DirectionForward || snapshots) {
			s.metrics.RecordConversionFailure(ctx, ref.Kind.String())
			return convErr
		}
		if snapshots {
			balances := make(map[uuid.UUID]decimal.Decimal, len(products))
			for id, p := range products {
				balances[id] = p.StockQuantity
			}
			snapshotter.Snapshot(balances)
		}

		result, err = s.execute(ctx, repos, actor, doc, plan, nil)
		if err != nil {
			return err
		}
		doc.Apply(plan, actor.ActorID)
		if err := repos.DocumentRepo().SaveTransition(ctx, doc, expectedVersion); err != nil {
			return shared.NewPersistenceError("save document status", err)
		}
		return nil
	})

	s.metrics.RecordTransition(ctx, ref.Kind.String(), from, newStatus, err)
	if err != nil {
		s.logger.Warn("document transition failed",
			zap.String("document", ref.String()),
			zap.String("to", newStatus),
			zap.Error(err),
		)
		return nil, s.fail(span, err)
	}
	s.logger.Info("document transitioned",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("document", ref.String()),
		zap.String("from", result.From),
		zap.String("to", result.To),
		zap.String("direction", result.Direction),
		zap.Int("posted", len(result.MovementIDs)),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// DeleteDocument removes a document, reversing its stock first when it is stock-impacting
func (s *StockTransitionService) DeleteDocument(ctx context.Context, actor shared.ActorContext, ref inventory.DocumentRef) (*TransitionResult, error) {
	ctx, span := s.ledger.tracer.Start(ctx, "StockTransitionService.DeleteDocument", trace.WithAttributes(
		attribute.String("document", ref.String()),
	))
	defer span.End()

	if err := actor.Validate(); err != nil {
		return nil, err
	}
	var result *TransitionResult
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		doc, err := repos.DocumentRepo().FindByRefForUpdate(ctx, actor.TenantID, ref)
		if err != nil {
			return err
		}
		plan, err := doc.PlanDelete()
		if err != nil {
			return err
		}
		result, err = s.execute(ctx, repos, actor, doc, plan, nil)
		if err != nil {
			return err
		}
		if err := repos.DocumentRepo().Delete(ctx, actor.TenantID, ref); err != nil {
			return shared.NewPersistenceError("delete document", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(span, err)
	}
	s.logger.Info("document deleted",
		zap.String("document", ref.String()),
		zap.String("direction", result.Direction),
		zap.Int("posted", len(result.MovementIDs)),
	)
	return result, nil
}

// DeleteItem removes one document item. Items of a stock-impacting document
// have their own postings reversed first; other locked documents refuse the change.
func (s *StockTransitionService) DeleteItem(ctx context.Context, actor shared.ActorContext, ref inventory.DocumentRef, itemID uuid.UUID) (*TransitionResult, error) {
	ctx, span := s.ledger.tracer.Start(ctx, "StockTransitionService.DeleteItem", trace.WithAttributes(
		attribute.String("document", ref.String()),
		attribute.String("item_id", itemID.String()),
	))
	defer span.End()

	if err := actor.Validate(); err != nil {
		return nil, err
	}
	var result *TransitionResult
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		doc, err := repos.DocumentRepo().FindByRefForUpdate(ctx, actor.TenantID, ref)
		if err != nil {
			return err
		}
		if !hasLine(doc, itemID) {
			return shared.NewDomainError(shared.CodeNotFound, "Item not found: "+itemID.String())
		}

		plan := inventory.TransitionPlan{From: doc.CurrentStatus(), To: doc.CurrentStatus(), Direction: inventory.DirectionNone}
		if !doc.ItemsEditable() {
			deletePlan, err := doc.PlanDelete()
			if err != nil {
				return err
			}
			if deletePlan.Direction != inventory.DirectionReverse {
				return inventory.ErrDocumentLocked
			}
			plan.Direction = inventory.DirectionReverse
			plan.ReverseType = deletePlan.ReverseType
		}

		result, err = s.execute(ctx, repos, actor, doc, plan, &itemID)
		if err != nil {
			return err
		}
		if err := doc.RemoveLine(itemID); err != nil {
			return err
		}
		if err := repos.DocumentRepo().DeleteItem(ctx, actor.TenantID, ref, itemID); err != nil {
			return shared.NewPersistenceError("delete document item", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(span, err)
	}
	return result, nil
}

// UpdateItem changes the entered quantity of one item, or records a count on
// an inventory session. Trade documents accept edits only while their items
// are editable; sessions accept counts until they are completed.
func (s *StockTransitionService) UpdateItem(ctx context.Context, actor shared.ActorContext, ref inventory.DocumentRef, itemID uuid.UUID, req UpdateItemRequest) (*DocumentResponse, error) {
	ctx, span := s.ledger.tracer.Start(ctx, "StockTransitionService.UpdateItem", trace.WithAttributes(
		attribute.String("document", ref.String()),
		attribute.String("item_id", itemID.String()),
	))
	defer span.End()

	if err := actor.Validate(); err != nil {
		return nil, err
	}
	var resp DocumentResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		doc, err := repos.DocumentRepo().FindByRefForUpdate(ctx, actor.TenantID, ref)
		if err != nil {
			return err
		}
		expectedVersion := doc.GetVersion()
		if err := doc.UpdateItemQuantity(itemID, toNullDecimal(req.Quantity)); err != nil {
			return err
		}
		doc.IncrementVersion()
		if err := repos.DocumentRepo().SaveTransition(ctx, doc, expectedVersion); err != nil {
			return shared.NewPersistenceError("save document item", err)
		}
		resp = ToDocumentResponse(doc)
		return nil
	})
	if err != nil {
		return nil, s.fail(span, err)
	}
	s.logger.Info("document item updated",
		zap.String("document", ref.String()),
		zap.String("item_id", itemID.String()),
	)
	return &resp, nil
}

// UpdateDocument changes the restock flag of a credit note or the
// returned-goods flag of a supplier credit note. Other kinds have no flags.
func (s *StockTransitionService) UpdateDocument(ctx context.Context, actor shared.ActorContext, ref inventory.DocumentRef, req UpdateDocumentRequest) (*DocumentResponse, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	var resp DocumentResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		doc, err := repos.DocumentRepo().FindByRefForUpdate(ctx, actor.TenantID, ref)
		if err != nil {
			return err
		}
		expectedVersion := doc.GetVersion()
		switch d := doc.(type) {
		case *trade.CreditNote:
			if req.ItemsReturned != nil {
				return shared.NewDomainError(shared.CodeInvalidInput, "items_returned_to_supplier_stock applies to supplier credit notes")
			}
			if req.RestockItems != nil {
				d.SetRestockItems(*req.RestockItems)
			}
		case *trade.SupplierCreditNote:
			if req.RestockItems != nil {
				return shared.NewDomainError(shared.CodeInvalidInput, "restock_items applies to credit notes")
			}
			if req.ItemsReturned != nil {
				d.SetItemsReturned(*req.ItemsReturned)
			}
		default:
			return shared.NewDomainError(shared.CodeInvalidInput, "Documents of kind "+ref.Kind.String()+" have no editable flags")
		}
		doc.IncrementVersion()
		if err := repos.DocumentRepo().SaveTransition(ctx, doc, expectedVersion); err != nil {
			return shared.NewPersistenceError("save document", err)
		}
		resp = ToDocumentResponse(doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateDocument stores a new draft document after checking its products exist
func (s *StockTransitionService) CreateDocument(ctx context.Context, actor shared.ActorContext, kind inventory.DocumentKind, req CreateDocumentRequest) (*DocumentResponse, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	doc, err := NewDocument(kind, actor.TenantID, req)
	if err != nil {
		return nil, err
	}
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := s.loadProducts(ctx, repos, actor.TenantID, doc.Lines()); err != nil {
			return err
		}
		if err := repos.DocumentRepo().Create(ctx, doc); err != nil {
			return shared.NewPersistenceError("create document", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := ToDocumentResponse(doc)
	return &resp, nil
}

// GetDocument loads a document with its items
func (s *StockTransitionService) GetDocument(ctx context.Context, tenantID uuid.UUID, ref inventory.DocumentRef) (*DocumentResponse, error) {
	var resp DocumentResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		doc, err := repos.DocumentRepo().FindByRef(ctx, tenantID, ref)
		if err != nil {
			return err
		}
		resp = ToDocumentResponse(doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// execute posts the stock effect of plan. itemID restricts a reversal to one item.
func (s *StockTransitionService) execute(
	ctx context.Context,
	repos TransactionalRepositories,
	actor shared.ActorContext,
	doc inventory.StockDocument,
	plan inventory.TransitionPlan,
	itemID *uuid.UUID,
) (*TransitionResult, error) {
	ref := doc.Ref()
	result := &TransitionResult{
		Document:    ref,
		From:        plan.From,
		To:          plan.To,
		Direction:   plan.Direction.String(),
		MovementIDs: []uuid.UUID{},
	}
	reason := fmt.Sprintf("%s %s: %s -> %s", ref.Kind, doc.Number(), plan.From, plan.To)

	var (
		postings   []inventory.StockPosting
		generation int
	)
	switch plan.Direction {
	case inventory.DirectionForward:
		postings = plan.Postings
		generation = doc.Generation() + 1
	case inventory.DirectionReverse:
		generation = doc.Generation()
		forwards, err := repos.MovementRepo().FindForward(ctx, actor.TenantID, ref, generation, itemID)
		if err != nil {
			return nil, shared.NewPersistenceError("load forward movements", err)
		}
		for _, m := range forwards {
			postings = append(postings, inventory.ReversalOf(m, plan.ReverseType))
		}
	default:
		return result, nil
	}

	for _, p := range postings {
		res, err := s.ledger.Post(ctx, repos, actor, PostingCommand{
			ProductID:         p.ProductID,
			Type:              p.Type,
			Quantity:          p.Quantity,
			Document:          ref,
			SourceItemID:      p.SourceItemID,
			Generation:        generation,
			Reason:            reason,
			TransactionUnitID: p.TransactionUnitID,
		})
		if err != nil {
			return nil, err
		}
		if res.Skipped {
			result.Skipped++
			continue
		}
		result.MovementIDs = append(result.MovementIDs, res.Movement.ID)
	}
	return result, nil
}

func (s *StockTransitionService) conversionService(ctx context.Context) (*catalog.UnitConversionService, error) {
	graph, err := s.units.Graph(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.NewUnitConversionService(graph), nil
}

func (s *StockTransitionService) loadProducts(ctx context.Context, repos TransactionalRepositories, tenantID uuid.UUID, lines []*inventory.StockLine) (map[uuid.UUID]*catalog.Product, error) {
	products := make(map[uuid.UUID]*catalog.Product)
	if len(lines) == 0 {
		return products, nil
	}
	ids := make([]uuid.UUID, 0, len(lines))
	seen := make(map[uuid.UUID]bool)
	for _, l := range lines {
		if !seen[l.ProductID] {
			seen[l.ProductID] = true
			ids = append(ids, l.ProductID)
		}
	}
	found, err := repos.ProductRepo().FindByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, shared.NewPersistenceError("load products", err)
	}
	for i := range found {
		products[found[i].ID] = &found[i]
	}
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			return nil, shared.NewDomainError(shared.CodeNotFound, "Product not found: "+id.String())
		}
	}
	return products, nil
}

// convertLines fills StockUnitQuantity on every line with a quantity and
// returns the first conversion error. Lines that cannot convert are left null.
func (s *StockTransitionService) convertLines(conv *catalog.UnitConversionService, lines []*inventory.StockLine, products map[uuid.UUID]*catalog.Product) error {
	var firstErr error
	for _, l := range lines {
		if !l.Quantity.Valid {
			l.StockUnitQuantity = decimal.NullDecimal{}
			continue
		}
		product := products[l.ProductID]
		qty, err := conv.Convert(l.Quantity.Decimal, l.TransactionUnitID, product.StockUnitID, product)
		if err != nil {
			l.StockUnitQuantity = decimal.NullDecimal{}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		l.StockUnitQuantity = decimal.NewNullDecimal(qty.Round(s.scale))
	}
	return firstErr
}

func (s *StockTransitionService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	var ite *inventory.IllegalTransitionError
	if errors.As(err, &ite) {
		span.SetAttributes(attribute.String("illegal_from", ite.From))
	}
	return err
}

func hasLine(doc inventory.StockDocument, itemID uuid.UUID) bool {
	for _, l := range doc.Lines() {
		if l.ID == itemID {
			return true
		}
	}
	return false
}
