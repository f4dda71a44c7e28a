package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"shopdesk/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// CreateProduct inserts a product
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (name, stock, dimension, threshold, price)
		VALUES ($1, GREATEST(0, $2), $3, $4, $5)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, p, query,
		p.Name, p.Stock, p.Dimension, p.Threshold, p.Price)
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProducts retrieves all products
func (s *Store) GetProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY id")
	return products, err
}

// GetProductsByIDs retrieves multiple products by IDs
func (s *Store) GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM products WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var products []models.Product
	err = s.db.SelectContext(ctx, &products, query, args...)
	return products, err
}

// GetLowStockProducts retrieves products at or below their alert threshold
func (s *Store) GetLowStockProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products WHERE threshold > 0 AND stock <= threshold ORDER BY stock")
	return products, err
}

// UpdateProduct updates product fields other than stock
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE products SET name = $1, dimension = $2, threshold = $3, price = $4,
		 updated_at = NOW() WHERE id = $5`,
		p.Name, p.Dimension, p.Threshold, p.Price, p.ID)
	return err
}

// SetStock sets a product's stock to an absolute value, clamped at zero
func (s *Store) SetStock(ctx context.Context, productID int64, stock int) (int, error) {
	var newStock int
	err := s.db.GetContext(ctx, &newStock,
		"UPDATE products SET stock = GREATEST(0, $1), updated_at = NOW() WHERE id = $2 RETURNING stock",
		stock, productID)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("product not found: %d", productID)
	}
	return newStock, err
}

// AdjustStock applies a signed delta to a product's stock. A positive delta
// means units consumed (stock decreases). The result is clamped at zero and
// returned.
func (s *Store) AdjustStock(ctx context.Context, productID int64, delta int) (int, error) {
	var newStock int
	err := s.db.GetContext(ctx, &newStock,
		"UPDATE products SET stock = GREATEST(0, stock - $1), updated_at = NOW() WHERE id = $2 RETURNING stock",
		delta, productID)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("product not found: %d", productID)
	}
	return newStock, err
}

// DeleteProduct removes a product
func (s *Store) DeleteProduct(ctx context.Context, productID int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", productID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("product not found: %d", productID)
	}
	return nil
}
