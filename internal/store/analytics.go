package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SalesSummary aggregates order counts and revenue for a date range
type SalesSummary struct {
	OrderCount  int             `db:"order_count" json:"order_count"`
	Revenue     decimal.Decimal `db:"revenue" json:"revenue"`
	PaidRevenue decimal.Decimal `db:"paid_revenue" json:"paid_revenue"`
	Outstanding decimal.Decimal `db:"outstanding" json:"outstanding"`
	Dispatched  int             `db:"dispatched" json:"dispatched"`
}

// GetSalesSummary computes the rollup for orders created in [from, to)
func (s *Store) GetSalesSummary(ctx context.Context, from, to time.Time) (*SalesSummary, error) {
	var sum SalesSummary
	err := s.db.GetContext(ctx, &sum, `
		SELECT COUNT(*) AS order_count,
		       COALESCE(SUM(total), 0) AS revenue,
		       COALESCE(SUM(total) FILTER (WHERE is_paid), 0) AS paid_revenue,
		       COALESCE(SUM(total) FILTER (WHERE NOT is_paid), 0) AS outstanding,
		       COUNT(*) FILTER (WHERE status = 'dispatched') AS dispatched
		FROM orders WHERE created_at >= $1 AND created_at < $2`,
		from, to)
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

// ProductSales is one row of the top-products rollup
type ProductSales struct {
	ProductID   int64           `db:"product_id" json:"product_id"`
	ProductName string          `db:"product_name" json:"product_name"`
	Quantity    int             `db:"quantity" json:"quantity"`
	Revenue     decimal.Decimal `db:"revenue" json:"revenue"`
}

// GetTopProducts ranks products by quantity sold in [from, to)
func (s *Store) GetTopProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductSales, error) {
	var rows []ProductSales
	err := s.db.SelectContext(ctx, &rows, `
		SELECT oi.product_id, oi.product_name,
		       SUM(oi.quantity) AS quantity,
		       SUM(oi.quantity * oi.price) AS revenue
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.created_at >= $1 AND o.created_at < $2
		GROUP BY oi.product_id, oi.product_name
		ORDER BY quantity DESC
		LIMIT $3`,
		from, to, limit)
	return rows, err
}

// StaffSales is one row of the per-staff leaderboard
type StaffSales struct {
	StaffID    int64           `db:"staff_id" json:"staff_id"`
	StaffName  string          `db:"staff_name" json:"staff_name"`
	OrderCount int             `db:"order_count" json:"order_count"`
	Revenue    decimal.Decimal `db:"revenue" json:"revenue"`
}

// GetStaffSales aggregates orders per creating staff member in [from, to)
func (s *Store) GetStaffSales(ctx context.Context, from, to time.Time) ([]StaffSales, error) {
	var rows []StaffSales
	err := s.db.SelectContext(ctx, &rows, `
		SELECT st.id AS staff_id, st.name AS staff_name,
		       COUNT(o.id) AS order_count,
		       COALESCE(SUM(o.total), 0) AS revenue
		FROM staff st
		LEFT JOIN orders o ON o.created_by = st.id
		     AND o.created_at >= $1 AND o.created_at < $2
		GROUP BY st.id, st.name
		ORDER BY revenue DESC`,
		from, to)
	return rows, err
}
