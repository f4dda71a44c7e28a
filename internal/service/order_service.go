package service

import (
	"context"
	"fmt"
	"time"

	"shopdesk/internal/auth"
	"shopdesk/internal/models"
	"shopdesk/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderStore is the persistence surface the order service uses. Satisfied
// by *store.Store; kept narrow so tests can substitute a fake.
type OrderStore interface {
	CreateOrderTx(ctx context.Context, order *models.Order) error
	ReplaceOrderTx(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	ListOrders(ctx context.Context, from, to *time.Time) ([]models.Order, error)
	ListOrdersByAssignee(ctx context.Context, staffID int64) ([]models.Order, error)
	ListOrdersByCreator(ctx context.Context, staffID int64) ([]models.Order, error)
	ListVisibleOrders(ctx context.Context, staffID int64) ([]models.Order, error)
	ListUnpaidDispatched(ctx context.Context) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status string, dispatchDate *time.Time) error
	SetDeliveryPerson(ctx context.Context, orderID, staffID int64) error
	SetOrderPaid(ctx context.Context, orderID int64, paid bool, paidAt *time.Time) error
	DeleteOrderTx(ctx context.Context, orderID int64) error
	GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
}

// OrderEvents is the publishing surface used by the order service.
// Satisfied by *broker.EventPublisher; nil disables publishing.
type OrderEvents interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishOrderUpdated(ctx context.Context, event *models.OrderUpdatedEvent) error
	PublishOrderDispatched(ctx context.Context, event *models.OrderDispatchedEvent) error
	PublishOrderDeleted(ctx context.Context, event *models.OrderDeletedEvent) error
}

// OrderService handles the order lifecycle and the edit reconciliation
type OrderService struct {
	store  OrderStore
	stock  StockAdjuster
	events OrderEvents
	logger *zap.Logger
	now    func() time.Time
}

// NewOrderService creates a new order service
func NewOrderService(store OrderStore, stock StockAdjuster, events OrderEvents) *OrderService {
	return &OrderService{
		store:  store,
		stock:  stock,
		events: events,
		logger: util.NamedLogger("orders"),
		now:    time.Now,
	}
}

// OrderItemRequest is one line item in a create or edit request
type OrderItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// CreateOrderRequest carries a new order
type CreateOrderRequest struct {
	CustomerName     string             `json:"customer_name" binding:"required"`
	CustomerPhone    string             `json:"customer_phone" binding:"required"`
	CustomerEmail    string             `json:"customer_email" binding:"omitempty,email"`
	CustomerAddress  string             `json:"customer_address"`
	PaymentCondition string             `json:"payment_condition" binding:"required,oneof=immediate days15 days30"`
	Priority         string             `json:"priority" binding:"omitempty,oneof=urgent normal"`
	AssignedTo       *int64             `json:"assigned_to"`
	Items            []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// UpdateOrderRequest carries the full edited order payload
type UpdateOrderRequest struct {
	CustomerName     string             `json:"customer_name" binding:"required"`
	CustomerPhone    string             `json:"customer_phone" binding:"required"`
	CustomerEmail    string             `json:"customer_email" binding:"omitempty,email"`
	CustomerAddress  string             `json:"customer_address"`
	Status           string             `json:"status" binding:"omitempty,oneof=pending dc invoice dispatched"`
	PaymentCondition string             `json:"payment_condition" binding:"required,oneof=immediate days15 days30"`
	Priority         string             `json:"priority" binding:"omitempty,oneof=urgent normal"`
	AssignedTo       *int64             `json:"assigned_to"`
	Items            []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// buildItems resolves request lines against the catalog, snapshotting
// product name, unit price and dimension onto each line.
func (s *OrderService) buildItems(ctx context.Context, reqItems []OrderItemRequest) ([]models.OrderItem, error) {
	ids := make([]int64, len(reqItems))
	for i, it := range reqItems {
		ids[i] = it.ProductID
	}

	products, err := s.store.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	byID := make(map[int64]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	items := make([]models.OrderItem, 0, len(reqItems))
	for _, it := range reqItems {
		product, ok := byID[it.ProductID]
		if !ok {
			return nil, fmt.Errorf("product not found: %d", it.ProductID)
		}
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("invalid quantity %d for product %d", it.Quantity, it.ProductID)
		}
		items = append(items, models.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    it.Quantity,
			Price:       product.Price,
			Dimension:   product.Dimension,
		})
	}
	return items, nil
}

// CreateOrder persists a new order and consumes stock for every line
func (s *OrderService) CreateOrder(ctx context.Context, actorID int64, req *CreateOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	items, err := s.buildItems(ctx, req.Items)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("invalid_items").Inc()
		return nil, err
	}

	order := &models.Order{
		CustomerName:     req.CustomerName,
		CustomerPhone:    req.CustomerPhone,
		CustomerEmail:    req.CustomerEmail,
		CustomerAddress:  req.CustomerAddress,
		Status:           models.OrderStatusPending,
		PaymentCondition: req.PaymentCondition,
		Priority:         priorityOrDefault(req.Priority),
		Total:            models.ItemsTotal(items),
		AssignedTo:       req.AssignedTo,
		CreatedBy:        actorID,
		Items:            items,
	}

	if err := s.store.CreateOrderTx(ctx, order); err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("created_by", actorID))

	// A new order consumes its full quantities.
	applyStockDeltas(ctx, s.stock, ComputeItemDeltas(nil, order.Items), s.logger)

	if s.events != nil {
		event := &models.OrderCreatedEvent{
			BaseEvent: newBaseEvent(models.EventTypeOrderCreated, s.now()),
			OrderID:   order.ID,
			CreatedBy: actorID,
			Total:     order.Total.String(),
			Items:     itemEventData(order.Items),
		}
		if err := s.events.PublishOrderCreated(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
		}
	}

	return order, nil
}

// UpdateOrder saves an edited order and reconciles inventory. The order row
// and its items are replaced transactionally first; if that fails nothing
// else runs and the error propagates. Stock adjustments then run per
// product, best-effort.
func (s *OrderService) UpdateOrder(ctx context.Context, orderID int64, req *UpdateOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.ReconcileLatency.Observe(time.Since(start).Seconds())
	}()

	existing, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	items, err := s.buildItems(ctx, req.Items)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("invalid_items").Inc()
		return nil, err
	}

	order := *existing
	order.CustomerName = req.CustomerName
	order.CustomerPhone = req.CustomerPhone
	order.CustomerEmail = req.CustomerEmail
	order.CustomerAddress = req.CustomerAddress
	order.PaymentCondition = req.PaymentCondition
	order.Priority = priorityOrDefault(req.Priority)
	order.AssignedTo = req.AssignedTo
	order.Items = items
	order.Total = models.ItemsTotal(items)
	if req.Status != "" {
		order.Status = req.Status
	}

	dispatchedNow := order.Status == models.OrderStatusDispatched && existing.DispatchDate == nil
	if dispatchedNow {
		now := s.now()
		order.DispatchDate = &now
	}

	if err := s.store.ReplaceOrderTx(ctx, &order); err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	util.OrdersUpdatedTotal.Inc()
	s.logger.Info("Order updated", zap.Int64("order_id", order.ID))

	applyStockDeltas(ctx, s.stock, ComputeItemDeltas(existing.Items, order.Items), s.logger)

	if s.events != nil {
		event := &models.OrderUpdatedEvent{
			BaseEvent: newBaseEvent(models.EventTypeOrderUpdated, s.now()),
			OrderID:   order.ID,
			Total:     order.Total.String(),
			Items:     itemEventData(order.Items),
		}
		if err := s.events.PublishOrderUpdated(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderUpdated event", zap.Error(err))
		}
	}

	if dispatchedNow {
		s.noteDispatched(ctx, order.ID, *order.DispatchDate)
	}

	return &order, nil
}

// SetStatus sets an order's status. Transitions are not validated for
// direction; entering dispatched stamps the dispatch date once.
func (s *OrderService) SetStatus(ctx context.Context, orderID int64, status string) (*models.Order, error) {
	existing, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	var dispatchDate *time.Time
	dispatchedNow := status == models.OrderStatusDispatched && existing.DispatchDate == nil
	if dispatchedNow {
		now := s.now()
		dispatchDate = &now
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID, status, dispatchDate); err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	s.logger.Info("Order status set",
		zap.Int64("order_id", orderID),
		zap.String("status", status))

	if dispatchedNow {
		s.noteDispatched(ctx, orderID, *dispatchDate)
	}

	return s.store.GetOrderByID(ctx, orderID)
}

func (s *OrderService) noteDispatched(ctx context.Context, orderID int64, dispatchDate time.Time) {
	util.OrdersDispatchedTotal.Inc()
	if s.events == nil {
		return
	}
	event := &models.OrderDispatchedEvent{
		BaseEvent:    newBaseEvent(models.EventTypeOrderDispatched, s.now()),
		OrderID:      orderID,
		DispatchDate: dispatchDate,
	}
	if err := s.events.PublishOrderDispatched(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderDispatched event", zap.Error(err))
	}
}

// AssignDeliveryPerson sets the delivery person. Decoupled from dispatching;
// the system does not require one before the other.
func (s *OrderService) AssignDeliveryPerson(ctx context.Context, orderID, staffID int64) error {
	return s.store.SetDeliveryPerson(ctx, orderID, staffID)
}

// MarkPaid flips the paid flag, stamping or clearing paid_at
func (s *OrderService) MarkPaid(ctx context.Context, orderID int64, paid bool) error {
	var paidAt *time.Time
	if paid {
		now := s.now()
		paidAt = &now
	}
	return s.store.SetOrderPaid(ctx, orderID, paid, paidAt)
}

// DeleteOrder removes an order and returns its line quantities to stock.
// The delete commits first; stock returns are best-effort after it.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID int64) error {
	ctx, span := util.StartSpan(ctx, "OrderService.DeleteOrder")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteOrderTx(ctx, orderID); err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return fmt.Errorf("failed to delete order: %w", err)
	}

	util.OrdersDeletedTotal.Inc()
	s.logger.Info("Order deleted", zap.Int64("order_id", orderID))

	applyStockDeltas(ctx, s.stock, ComputeItemDeltas(order.Items, nil), s.logger)

	if s.events != nil {
		event := &models.OrderDeletedEvent{
			BaseEvent: newBaseEvent(models.EventTypeOrderDeleted, s.now()),
			OrderID:   orderID,
		}
		if err := s.events.PublishOrderDeleted(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderDeleted event", zap.Error(err))
		}
	}

	return nil
}

// GetOrder retrieves an order with its line items
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	return s.store.GetOrderByID(ctx, orderID)
}

// ListOrders lists orders visible to the actor. Roles that see everything
// get the optional date range; plain staff get the orders they created or
// are assigned to.
func (s *OrderService) ListOrders(ctx context.Context, role string, actorID int64, from, to *time.Time) ([]models.Order, error) {
	if auth.SeesAllOrders(role) {
		return s.store.ListOrders(ctx, from, to)
	}
	return s.store.ListVisibleOrders(ctx, actorID)
}

// ListByAssignee lists orders assigned to a staff member
func (s *OrderService) ListByAssignee(ctx context.Context, staffID int64) ([]models.Order, error) {
	return s.store.ListOrdersByAssignee(ctx, staffID)
}

// ListByCreator lists orders created by a staff member
func (s *OrderService) ListByCreator(ctx context.Context, staffID int64) ([]models.Order, error) {
	return s.store.ListOrdersByCreator(ctx, staffID)
}

// DueOrders lists dispatched unpaid orders whose payment condition has run
// out as of now
func (s *OrderService) DueOrders(ctx context.Context) ([]models.Order, error) {
	orders, err := s.store.ListUnpaidDispatched(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	due := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if o.PaymentDue(now) {
			due = append(due, o)
		}
	}
	return due, nil
}

func priorityOrDefault(priority string) string {
	if priority == "" {
		return models.PriorityNormal
	}
	return priority
}

func newBaseEvent(eventType string, ts time.Time) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: ts,
	}
}

func itemEventData(items []models.OrderItem) []models.OrderItemData {
	data := make([]models.OrderItemData, 0, len(items))
	for _, it := range items {
		data = append(data, models.OrderItemData{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price.String(),
		})
	}
	return data
}
