package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"shopdesk/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events to the order and stock
// topics
type EventPublisher struct {
	orders *Producer
	stock  *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(orders, stock *Producer) *EventPublisher {
	return &EventPublisher{orders: orders, stock: stock}
}

// PublishOrderCreated publishes OrderCreated to the order topic
func (ep *EventPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	return ep.orders.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishOrderUpdated publishes OrderUpdated to the order topic
func (ep *EventPublisher) PublishOrderUpdated(ctx context.Context, event *models.OrderUpdatedEvent) error {
	return ep.orders.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishOrderDispatched publishes OrderDispatched to the order topic
func (ep *EventPublisher) PublishOrderDispatched(ctx context.Context, event *models.OrderDispatchedEvent) error {
	return ep.orders.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishOrderDeleted publishes OrderDeleted to the order topic
func (ep *EventPublisher) PublishOrderDeleted(ctx context.Context, event *models.OrderDeletedEvent) error {
	return ep.orders.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishStockAdjusted publishes StockAdjusted to the stock topic, keyed by
// product so adjustments for one product stay ordered
func (ep *EventPublisher) PublishStockAdjusted(ctx context.Context, event *models.StockAdjustedEvent) error {
	return ep.stock.PublishEvent(ctx, fmt.Sprintf("product-%d", event.ProductID), event)
}

func orderKey(orderID int64) string {
	return fmt.Sprintf("order-%d", orderID)
}

// StockEventHandler routes stock-topic messages to a registered callback
type StockEventHandler struct {
	onStockAdjusted func(context.Context, *models.StockAdjustedEvent) error
}

// NewStockEventHandler creates a new stock event handler
func NewStockEventHandler() *StockEventHandler {
	return &StockEventHandler{}
}

// OnStockAdjusted registers a handler for StockAdjusted events
func (eh *StockEventHandler) OnStockAdjusted(handler func(context.Context, *models.StockAdjustedEvent) error) {
	eh.onStockAdjusted = handler
}

// HandleMessage decodes a message and dispatches it. Unknown event types are
// ignored so new producers do not wedge old consumers.
func (eh *StockEventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	if baseEvent.EventType != models.EventTypeStockAdjusted || eh.onStockAdjusted == nil {
		return nil
	}

	var event models.StockAdjustedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal StockAdjusted event: %w", err)
	}
	return eh.onStockAdjusted(ctx, &event)
}
