package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus values mirror the statuses the storefront writes to the orders
// table. The status-update email template only knows these six.
type OrderStatus string

const (
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusFailed     OrderStatus = "FAILED"
)

// Order is the read-only shape of an order as this service needs it: enough
// to render confirmation and status emails. The storefront owns the schema.
type Order struct {
	ID              string          `json:"id"`
	CustomerName    string          `json:"customer_name"`
	CustomerEmail   string          `json:"customer_email"`
	Status          OrderStatus     `json:"status"`
	ShippingAddress string          `json:"shipping_address"`
	Total           decimal.Decimal `json:"total"`
	CreatedAt       time.Time       `json:"created_at"`
	Items           []OrderItem     `json:"items,omitempty"`
}

type OrderItem struct {
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// OrderConfirmation is the payload the order-processing action hands to the
// email pipeline when an order is created.
type OrderConfirmation struct {
	OrderID         string          `json:"order_id"`
	Recipient       string          `json:"recipient"`
	Items           []OrderItem     `json:"items"`
	Total           decimal.Decimal `json:"total"`
	ShippingAddress string          `json:"shipping_address"`
}

// StatusUpdate is the payload for an order-status-change email.
type StatusUpdate struct {
	OrderID      string      `json:"order_id"`
	Recipient    string      `json:"recipient"`
	CustomerName string      `json:"customer_name"`
	NewStatus    OrderStatus `json:"new_status"`
}
