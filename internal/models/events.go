package models

import "time"

// Event types
const (
	EventTypeOrderCreated    = "ORDER_CREATED"
	EventTypeOrderUpdated    = "ORDER_UPDATED"
	EventTypeOrderDispatched = "ORDER_DISPATCHED"
	EventTypeOrderDeleted    = "ORDER_DELETED"
	EventTypeStockAdjusted   = "STOCK_ADJUSTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

// OrderCreatedEvent published when an order is created
type OrderCreatedEvent struct {
	BaseEvent
	OrderID   int64           `json:"order_id"`
	CreatedBy int64           `json:"created_by"`
	Total     string          `json:"total"`
	Items     []OrderItemData `json:"items"`
}

// OrderUpdatedEvent published after an order edit has been reconciled
type OrderUpdatedEvent struct {
	BaseEvent
	OrderID int64           `json:"order_id"`
	Total   string          `json:"total"`
	Items   []OrderItemData `json:"items"`
}

// OrderDispatchedEvent published when an order enters dispatched status
type OrderDispatchedEvent struct {
	BaseEvent
	OrderID      int64     `json:"order_id"`
	DispatchDate time.Time `json:"dispatch_date"`
}

// OrderDeletedEvent published when an order is removed and its stock returned
type OrderDeletedEvent struct {
	BaseEvent
	OrderID int64 `json:"order_id"`
}

// StockAdjustedEvent published for every stock mutation, consumed by the
// low-stock alert worker
type StockAdjustedEvent struct {
	BaseEvent
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Delta       int    `json:"delta"`
	NewStock    int    `json:"new_stock"`
	Threshold   int    `json:"threshold"`
}
