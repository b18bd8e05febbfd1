package catalog

import (
	"context"

	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductService handles product-related business operations
type ProductService struct {
	productRepo catalog.ProductRepository
	units       *UnitService
	logger      *zap.Logger
}

// NewProductService creates a new ProductService
func NewProductService(productRepo catalog.ProductRepository, units *UnitService, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		productRepo: productRepo,
		units:       units,
		logger:      logger,
	}
}

// Create creates a product with its unit bindings and thresholds.
// The balance starts at zero; stock arrives through the ledger only.
func (s *ProductService) Create(ctx context.Context, actor shared.ActorContext, req CreateProductRequest) (*ProductResponse, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	exists, err := s.productRepo.ExistsByCode(ctx, actor.TenantID, req.Code)
	if err != nil {
		return nil, shared.NewPersistenceError("check product code", err)
	}
	if exists {
		return nil, shared.NewDomainError(shared.CodeAlreadyExists, "Product with this code already exists")
	}

	product, err := catalog.NewProduct(actor.TenantID, req.Code, req.Name, req.StockUnitID)
	if err != nil {
		return nil, err
	}
	conv, err := s.units.conversion(ctx)
	if err != nil {
		return nil, err
	}
	if err := product.BindUnits(conv, req.StockUnitID, req.PurchaseUnitID, req.SalesUnitID); err != nil {
		return nil, err
	}
	if err := product.SetThresholds(toNullDecimal(req.MinStock), toNullDecimal(req.MaxStock)); err != nil {
		return nil, err
	}
	createdBy := actor.ActorID
	product.CreatedBy = &createdBy

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, shared.NewPersistenceError("create product", err)
	}
	s.logger.Info("product created",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("product_id", product.ID.String()),
		zap.String("code", product.Code),
	)
	resp := ToProductResponse(product)
	return &resp, nil
}

// GetByID retrieves a product by ID
func (s *ProductService) GetByID(ctx context.Context, tenantID, productID uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByIDForTenant(ctx, tenantID, productID)
	if err != nil {
		return nil, err
	}
	resp := ToProductResponse(product)
	return &resp, nil
}
