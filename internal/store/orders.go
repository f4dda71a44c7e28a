package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"shopdesk/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateOrderTx inserts an order and its line items in one transaction
func (s *Store) CreateOrderTx(ctx context.Context, order *models.Order) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (customer_name, customer_phone, customer_email, customer_address,
			status, payment_condition, priority, total, assigned_to, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	err = tx.GetContext(ctx, order, query,
		order.CustomerName, order.CustomerPhone, order.CustomerEmail, order.CustomerAddress,
		order.Status, order.PaymentCondition, order.Priority, order.Total,
		order.AssignedTo, order.CreatedBy)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	if err := insertItems(ctx, tx, order.ID, order.Items); err != nil {
		return err
	}

	return tx.Commit()
}

// ReplaceOrderTx updates an order row and replaces its line items in one
// transaction. Stock reconciliation happens outside, after commit.
func (s *Store) ReplaceOrderTx(ctx context.Context, order *models.Order) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE orders SET customer_name = $1, customer_phone = $2, customer_email = $3,
			customer_address = $4, status = $5, payment_condition = $6, priority = $7,
			total = $8, assigned_to = $9, dispatch_date = $10, updated_at = NOW()
		WHERE id = $11
		RETURNING updated_at`

	err = tx.GetContext(ctx, &order.UpdatedAt, query,
		order.CustomerName, order.CustomerPhone, order.CustomerEmail, order.CustomerAddress,
		order.Status, order.PaymentCondition, order.Priority, order.Total,
		order.AssignedTo, order.DispatchDate, order.ID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("order not found: %d", order.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM order_items WHERE order_id = $1", order.ID); err != nil {
		return fmt.Errorf("failed to clear order items: %w", err)
	}

	if err := insertItems(ctx, tx, order.ID, order.Items); err != nil {
		return err
	}

	return tx.Commit()
}

func insertItems(ctx context.Context, tx *sqlx.Tx, orderID int64, items []models.OrderItem) error {
	query := `
		INSERT INTO order_items (order_id, product_id, product_name, quantity, price, dimension)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	for i := range items {
		items[i].OrderID = orderID
		it := &items[i]
		if err := tx.GetContext(ctx, &it.ID, query,
			orderID, it.ProductID, it.ProductName, it.Quantity, it.Price, it.Dimension); err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}
	return nil
}

// GetOrderByID retrieves an order with its line items
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order not found: %d", id)
	}
	if err != nil {
		return nil, err
	}

	items, err := s.GetOrderItems(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

// GetOrderItems retrieves all line items for an order
func (s *Store) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// ListOrders retrieves orders, optionally bounded by creation date range
func (s *Store) ListOrders(ctx context.Context, from, to *time.Time) ([]models.Order, error) {
	query := "SELECT * FROM orders"
	args := []interface{}{}
	switch {
	case from != nil && to != nil:
		query += " WHERE created_at >= $1 AND created_at < $2"
		args = append(args, *from, *to)
	case from != nil:
		query += " WHERE created_at >= $1"
		args = append(args, *from)
	case to != nil:
		query += " WHERE created_at < $1"
		args = append(args, *to)
	}
	query += " ORDER BY created_at DESC"

	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders, query, args...)
	return orders, err
}

// ListOrdersByAssignee retrieves orders assigned to a staff member
func (s *Store) ListOrdersByAssignee(ctx context.Context, staffID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE assigned_to = $1 ORDER BY created_at DESC", staffID)
	return orders, err
}

// ListOrdersByCreator retrieves orders created by a staff member
func (s *Store) ListOrdersByCreator(ctx context.Context, staffID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE created_by = $1 ORDER BY created_at DESC", staffID)
	return orders, err
}

// ListVisibleOrders retrieves orders a staff member created or is assigned to
func (s *Store) ListVisibleOrders(ctx context.Context, staffID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE created_by = $1 OR assigned_to = $1 ORDER BY created_at DESC",
		staffID)
	return orders, err
}

// ListUnpaidDispatched retrieves dispatched orders that have not been paid
func (s *Store) ListUnpaidDispatched(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE status = $1 AND is_paid = false ORDER BY dispatch_date",
		models.OrderStatusDispatched)
	return orders, err
}

// UpdateOrderStatus sets an order's status. If dispatchDate is non-nil it is
// written too; an existing dispatch date is never overwritten.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status string, dispatchDate *time.Time) error {
	if dispatchDate != nil {
		_, err := s.db.ExecContext(ctx,
			`UPDATE orders SET status = $1,
			 dispatch_date = COALESCE(dispatch_date, $2), updated_at = NOW() WHERE id = $3`,
			status, *dispatchDate, orderID)
		return err
	}
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	return err
}

// SetDeliveryPerson assigns the delivery person for an order
func (s *Store) SetDeliveryPerson(ctx context.Context, orderID, staffID int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET delivery_person = $1, updated_at = NOW() WHERE id = $2",
		staffID, orderID)
	return err
}

// SetOrderPaid marks an order paid or unpaid
func (s *Store) SetOrderPaid(ctx context.Context, orderID int64, paid bool, paidAt *time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET is_paid = $1, paid_at = $2, updated_at = NOW() WHERE id = $3",
		paid, paidAt, orderID)
	return err
}

// DeleteOrderTx removes an order and its line items in one transaction
func (s *Store) DeleteOrderTx(ctx context.Context, orderID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM order_items WHERE order_id = $1", orderID); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", orderID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("order not found: %d", orderID)
	}

	return tx.Commit()
}
