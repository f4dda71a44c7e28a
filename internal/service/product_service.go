package service

import (
	"context"
	"fmt"
	"time"

	"shopdesk/internal/models"
	"shopdesk/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductStore is the persistence surface the product service uses.
// Satisfied by *store.Store.
type ProductStore interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetProducts(ctx context.Context) ([]models.Product, error)
	GetLowStockProducts(ctx context.Context) ([]models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	SetStock(ctx context.Context, productID int64, stock int) (int, error)
	AdjustStock(ctx context.Context, productID int64, delta int) (int, error)
	DeleteProduct(ctx context.Context, productID int64) error
}

// StockCache is the Redis surface for cached stock counts. Satisfied by
// *redisclient.Client; nil disables caching.
type StockCache interface {
	InitStock(ctx context.Context, productID int64, stock int) error
	GetStock(ctx context.Context, productID int64) (int, bool, error)
	AdjustStock(ctx context.Context, productID int64, adjustment int) (int, bool, error)
	DeleteStock(ctx context.Context, productID int64) error
}

// StockEvents is the publishing surface for stock mutations. Satisfied by
// *broker.EventPublisher; nil disables publishing.
type StockEvents interface {
	PublishStockAdjusted(ctx context.Context, event *models.StockAdjustedEvent) error
}

// ProductService handles the product catalog and its stock ledger. Postgres
// is authoritative; Redis mirrors the count for fast reads and is written
// through on every mutation.
type ProductService struct {
	store  ProductStore
	cache  StockCache
	events StockEvents
	logger *zap.Logger
}

// NewProductService creates a new product service
func NewProductService(store ProductStore, cache StockCache, events StockEvents) *ProductService {
	return &ProductService{
		store:  store,
		cache:  cache,
		events: events,
		logger: util.NamedLogger("products"),
	}
}

// CreateProductRequest carries a new product
type CreateProductRequest struct {
	Name      string          `json:"name" binding:"required"`
	Stock     int             `json:"stock" binding:"min=0"`
	Dimension string          `json:"dimension" binding:"omitempty,oneof=pcs kg ltr mtr box"`
	Threshold int             `json:"threshold" binding:"min=0"`
	Price     decimal.Decimal `json:"price" binding:"required"`
}

// UpdateProductRequest carries edits to a product's non-stock fields, plus
// an optional absolute stock correction
type UpdateProductRequest struct {
	Name      string          `json:"name" binding:"required"`
	Dimension string          `json:"dimension" binding:"omitempty,oneof=pcs kg ltr mtr box"`
	Threshold int             `json:"threshold" binding:"min=0"`
	Price     decimal.Decimal `json:"price" binding:"required"`
	Stock     *int            `json:"stock" binding:"omitempty,min=0"`
}

// CreateProduct inserts a product and seeds its cached stock
func (s *ProductService) CreateProduct(ctx context.Context, req *CreateProductRequest) (*models.Product, error) {
	if req.Price.IsNegative() {
		return nil, fmt.Errorf("price must not be negative")
	}

	product := &models.Product{
		Name:      req.Name,
		Stock:     req.Stock,
		Dimension: req.Dimension,
		Threshold: req.Threshold,
		Price:     req.Price,
	}

	if err := s.store.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.InitStock(ctx, product.ID, product.Stock); err != nil {
			s.logger.Warn("Failed to seed stock cache",
				zap.Int64("product_id", product.ID),
				zap.Error(err))
		}
	}

	s.logger.Info("Product created",
		zap.Int64("product_id", product.ID),
		zap.String("name", product.Name))
	return product, nil
}

// GetProduct retrieves a product
func (s *ProductService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	return s.store.GetProductByID(ctx, id)
}

// ListProducts retrieves all products
func (s *ProductService) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.store.GetProducts(ctx)
}

// ListLowStock retrieves products at or below their alert threshold
func (s *ProductService) ListLowStock(ctx context.Context) ([]models.Product, error) {
	return s.store.GetLowStockProducts(ctx)
}

// GetStock reads the cached stock count, falling back to Postgres and
// repopulating the cache on a miss
func (s *ProductService) GetStock(ctx context.Context, productID int64) (int, error) {
	if s.cache != nil {
		stock, ok, err := s.cache.GetStock(ctx, productID)
		if err != nil {
			s.logger.Warn("Stock cache read failed, falling back to DB",
				zap.Int64("product_id", productID),
				zap.Error(err))
		} else if ok {
			return stock, nil
		}
	}

	product, err := s.store.GetProductByID(ctx, productID)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.InitStock(ctx, productID, product.Stock); err != nil {
			s.logger.Warn("Failed to repopulate stock cache",
				zap.Int64("product_id", productID),
				zap.Error(err))
		}
	}
	return product.Stock, nil
}

// UpdateProduct updates catalog fields and, when a stock value is supplied,
// applies it as an absolute correction
func (s *ProductService) UpdateProduct(ctx context.Context, id int64, req *UpdateProductRequest) (*models.Product, error) {
	if req.Price.IsNegative() {
		return nil, fmt.Errorf("price must not be negative")
	}

	product, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	product.Name = req.Name
	product.Dimension = req.Dimension
	product.Threshold = req.Threshold
	product.Price = req.Price

	if err := s.store.UpdateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	if req.Stock != nil && *req.Stock != product.Stock {
		// An absolute correction is the delta between current and target.
		if _, err := s.AdjustStock(ctx, id, product.Stock-*req.Stock); err != nil {
			return nil, err
		}
		product.Stock = *req.Stock
	}

	return product, nil
}

// AdjustStock applies a signed adjustment (positive = consumed) to a
// product's stock, clamped at zero. Postgres commits first; the cache is
// written through afterwards and a StockAdjusted event is published.
func (s *ProductService) AdjustStock(ctx context.Context, productID int64, adjustment int) (int, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.AdjustStock")
	defer span.End()

	product, err := s.store.GetProductByID(ctx, productID)
	if err != nil {
		return 0, err
	}

	newStock, err := s.store.AdjustStock(ctx, productID, adjustment)
	if err != nil {
		return 0, fmt.Errorf("failed to adjust stock: %w", err)
	}

	if product.Stock-adjustment < 0 {
		util.StockClampedTotal.Inc()
	}

	if s.cache != nil {
		if _, ok, err := s.cache.AdjustStock(ctx, productID, adjustment); err != nil || !ok {
			// Missing or unreachable key: reset the cache from the ledger.
			if err := s.cache.InitStock(ctx, productID, newStock); err != nil {
				s.logger.Warn("Failed to write through stock cache",
					zap.Int64("product_id", productID),
					zap.Error(err))
			}
		}
	}

	if s.events != nil {
		event := &models.StockAdjustedEvent{
			BaseEvent:   newBaseEvent(models.EventTypeStockAdjusted, time.Now()),
			ProductID:   productID,
			ProductName: product.Name,
			Delta:       adjustment,
			NewStock:    newStock,
			Threshold:   product.Threshold,
		}
		if err := s.events.PublishStockAdjusted(ctx, event); err != nil {
			s.logger.Error("Failed to publish StockAdjusted event", zap.Error(err))
		}
	}

	return newStock, nil
}

// DeleteProduct removes a product and drops its cached stock
func (s *ProductService) DeleteProduct(ctx context.Context, productID int64) error {
	if err := s.store.DeleteProduct(ctx, productID); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.DeleteStock(ctx, productID); err != nil {
			s.logger.Warn("Failed to drop stock cache entry",
				zap.Int64("product_id", productID),
				zap.Error(err))
		}
	}
	return nil
}

// SyncStockToCache seeds the Redis stock mirror from Postgres, run at boot
func (s *ProductService) SyncStockToCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}

	products, err := s.store.GetProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to load products: %w", err)
	}

	for _, product := range products {
		if err := s.cache.InitStock(ctx, product.ID, product.Stock); err != nil {
			s.logger.Error("Failed to seed stock cache",
				zap.Int64("product_id", product.ID),
				zap.Error(err))
		}
	}

	s.logger.Info("Stock cache synced", zap.Int("count", len(products)))
	return nil
}
