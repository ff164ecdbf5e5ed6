package datastore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shoplane/ordermail/models"
)

// OrderRepository reads orders from the storefront's tables. The storefront
// owns that schema; this service only needs the shape required to render
// emails, and never writes to it.
type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// GetOrderByID returns the order header plus its line items. Used both by
// the trigger endpoints and by requeue, which must re-fetch the order from
// its source of truth rather than reuse stale rendered content.
func (r *OrderRepository) GetOrderByID(ctx context.Context, orderID string) (*models.Order, error) {
	query := `
		SELECT id, customer_name, customer_email, status, shipping_address, total, created_at
		FROM orders
		WHERE id = $1
	`
	var o models.Order
	var status string
	err := r.db.QueryRowContext(ctx, query, orderID).Scan(
		&o.ID, &o.CustomerName, &o.CustomerEmail, &status, &o.ShippingAddress, &o.Total, &o.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("order not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get order by ID: %w", err)
	}
	o.Status = models.OrderStatus(status)

	items, err := r.getOrderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return &o, nil
}

func (r *OrderRepository) getOrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	query := `
		SELECT product_name, quantity, price
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_name ASC
	`
	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query items for order %s: %w", orderID, err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ProductName, &it.Quantity, &it.Price); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
