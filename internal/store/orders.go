package store

import (
	"context"
	"database/sql"
	"fmt"

	"cylinder-service/internal/models"
)

// CreateOrder creates a new order
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (customer_id, delivery_address_id, warehouse_id, order_type, status,
			scheduled_date, subtotal, tax_percent, tax_amount, total_amount, exchange_empty_qty, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, order, query,
		order.CustomerID, order.DeliveryAddressID, order.WarehouseID, order.OrderType, order.Status,
		order.ScheduledDate, order.Subtotal, order.TaxPercent, order.TaxAmount, order.TotalAmount,
		order.ExchangeEmptyQty, order.IdempotencyKey)
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrderStatus updates order status
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	return err
}

// UpdateOrderTotals writes the derived monetary fields in one
// statement so total_amount can never drift from its parts.
func (s *Store) UpdateOrderTotals(ctx context.Context, orderID int64, subtotal, taxPercent, taxAmount, totalAmount float64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET subtotal = $1, tax_percent = $2, tax_amount = $3, total_amount = $4, updated_at = NOW()
		WHERE id = $5`,
		subtotal, taxPercent, taxAmount, totalAmount, orderID)
	return err
}

// GetOrdersByCustomerID retrieves orders for a customer
func (s *Store) GetOrdersByCustomerID(ctx context.Context, customerID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE customer_id = $1 ORDER BY created_at DESC", customerID)
	return orders, err
}

// CreateOrderLine creates a new order line
func (s *Store) CreateOrderLine(ctx context.Context, line *models.OrderLine) error {
	query := `
		INSERT INTO order_lines (order_id, product_id, product_name, quantity, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	return s.db.GetContext(ctx, &line.ID, query,
		line.OrderID, line.ProductID, line.ProductName, line.Quantity, line.UnitPrice, line.Subtotal)
}

// GetOrderLinesByOrderID retrieves all lines for an order
func (s *Store) GetOrderLinesByOrderID(ctx context.Context, orderID int64) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := s.db.SelectContext(ctx, &lines,
		"SELECT * FROM order_lines WHERE order_id = $1 ORDER BY id", orderID)
	return lines, err
}

// DeleteOrderLines removes every line of an order (purge on cancel)
func (s *Store) DeleteOrderLines(ctx context.Context, orderID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM order_lines WHERE order_id = $1", orderID)
	return err
}

// GetIdempotencyRecord retrieves a stored idempotency record by key hash
func (s *Store) GetIdempotencyRecord(ctx context.Context, keyHash string) (*models.IdempotencyRecord, error) {
	var rec models.IdempotencyRecord
	err := s.db.GetContext(ctx, &rec,
		"SELECT * FROM idempotency_keys WHERE key_hash = $1", keyHash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateIdempotencyRecord inserts an in-process record. Reports false
// when the key already exists.
func (s *Store) CreateIdempotencyRecord(ctx context.Context, keyHash string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO idempotency_keys (key_hash, status)
		VALUES ($1, $2)
		ON CONFLICT (key_hash) DO NOTHING`,
		keyHash, models.IdempotencyInProcess)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// CompleteIdempotencyRecord stores the final response for a key
func (s *Store) CompleteIdempotencyRecord(ctx context.Context, keyHash string, response []byte) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE idempotency_keys
		SET status = $1, response = $2, updated_at = NOW()
		WHERE key_hash = $3`,
		models.IdempotencyCompleted, response, keyHash)
	return err
}

// DeleteIdempotencyRecord removes a record so a failed request can be
// retried with the same key.
func (s *Store) DeleteIdempotencyRecord(ctx context.Context, keyHash string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM idempotency_keys WHERE key_hash = $1", keyHash)
	return err
}
