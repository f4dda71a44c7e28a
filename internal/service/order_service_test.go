package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"shopdesk/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrderStore struct {
	products   map[int64]models.Product
	orders     map[int64]*models.Order
	nextID     int64
	replaceErr error
	createErr  error
}

func newFakeOrderStore(products ...models.Product) *fakeOrderStore {
	f := &fakeOrderStore{
		products: map[int64]models.Product{},
		orders:   map[int64]*models.Order{},
	}
	for _, p := range products {
		f.products[p.ID] = p
	}
	return f
}

func copyOrder(o *models.Order) *models.Order {
	cp := *o
	cp.Items = append([]models.OrderItem(nil), o.Items...)
	return &cp
}

func (f *fakeOrderStore) CreateOrderTx(ctx context.Context, order *models.Order) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	order.ID = f.nextID
	f.orders[order.ID] = copyOrder(order)
	return nil
}

func (f *fakeOrderStore) ReplaceOrderTx(ctx context.Context, order *models.Order) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	if _, ok := f.orders[order.ID]; !ok {
		return fmt.Errorf("order not found: %d", order.ID)
	}
	f.orders[order.ID] = copyOrder(order)
	return nil
}

func (f *fakeOrderStore) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, fmt.Errorf("order not found: %d", id)
	}
	return copyOrder(o), nil
}

func (f *fakeOrderStore) ListOrders(ctx context.Context, from, to *time.Time) ([]models.Order, error) {
	var out []models.Order
	for _, o := range f.orders {
		out = append(out, *copyOrder(o))
	}
	return out, nil
}

func (f *fakeOrderStore) ListOrdersByAssignee(ctx context.Context, staffID int64) ([]models.Order, error) {
	return nil, nil
}

func (f *fakeOrderStore) ListOrdersByCreator(ctx context.Context, staffID int64) ([]models.Order, error) {
	return nil, nil
}

func (f *fakeOrderStore) ListVisibleOrders(ctx context.Context, staffID int64) ([]models.Order, error) {
	return nil, nil
}

func (f *fakeOrderStore) ListUnpaidDispatched(ctx context.Context) ([]models.Order, error) {
	var out []models.Order
	for _, o := range f.orders {
		if o.Status == models.OrderStatusDispatched && !o.IsPaid {
			out = append(out, *copyOrder(o))
		}
	}
	return out, nil
}

func (f *fakeOrderStore) UpdateOrderStatus(ctx context.Context, orderID int64, status string, dispatchDate *time.Time) error {
	o, ok := f.orders[orderID]
	if !ok {
		return fmt.Errorf("order not found: %d", orderID)
	}
	o.Status = status
	if dispatchDate != nil && o.DispatchDate == nil {
		d := *dispatchDate
		o.DispatchDate = &d
	}
	return nil
}

func (f *fakeOrderStore) SetDeliveryPerson(ctx context.Context, orderID, staffID int64) error {
	o, ok := f.orders[orderID]
	if !ok {
		return fmt.Errorf("order not found: %d", orderID)
	}
	o.DeliveryPerson = &staffID
	return nil
}

func (f *fakeOrderStore) SetOrderPaid(ctx context.Context, orderID int64, paid bool, paidAt *time.Time) error {
	o, ok := f.orders[orderID]
	if !ok {
		return fmt.Errorf("order not found: %d", orderID)
	}
	o.IsPaid = paid
	o.PaidAt = paidAt
	return nil
}

func (f *fakeOrderStore) DeleteOrderTx(ctx context.Context, orderID int64) error {
	if _, ok := f.orders[orderID]; !ok {
		return fmt.Errorf("order not found: %d", orderID)
	}
	delete(f.orders, orderID)
	return nil
}

func (f *fakeOrderStore) GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	var out []models.Product
	seen := map[int64]bool{}
	for _, id := range ids {
		if p, ok := f.products[id]; ok && !seen[id] {
			out = append(out, p)
			seen[id] = true
		}
	}
	return out, nil
}

func product(id int64, name string, stock int, price int64) models.Product {
	return models.Product{
		ID:    id,
		Name:  name,
		Stock: stock,
		Price: decimal.NewFromInt(price),
	}
}

func newTestOrderService(st *fakeOrderStore, adj *fakeAdjuster) *OrderService {
	return NewOrderService(st, adj, nil)
}

func TestCreateOrderConsumesStockAndComputesTotal(t *testing.T) {
	st := newFakeOrderStore(
		product(1, "Widget", 10, 100),
		product(2, "Gadget", 4, 50),
	)
	adj := newFakeAdjuster(map[int64]int{1: 10, 2: 4})
	svc := newTestOrderService(st, adj)

	order, err := svc.CreateOrder(context.Background(), 42, &CreateOrderRequest{
		CustomerName:     "Acme",
		CustomerPhone:    "555-0100",
		PaymentCondition: models.PaymentImmediate,
		Items: []OrderItemRequest{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, int64(42), order.CreatedBy)
	assert.True(t, order.Total.Equal(decimal.NewFromInt(2*100+1*50)))
	assert.Equal(t, models.PriorityNormal, order.Priority)
	assert.Equal(t, "Widget", order.Items[0].ProductName)

	// Full quantities consumed.
	assert.Equal(t, []stockCall{{1, 2}, {2, 1}}, adj.calls)
	assert.Equal(t, 8, adj.stocks[1])
	assert.Equal(t, 3, adj.stocks[2])
}

func TestCreateOrderUnknownProduct(t *testing.T) {
	st := newFakeOrderStore(product(1, "Widget", 10, 100))
	adj := newFakeAdjuster(map[int64]int{1: 10})
	svc := newTestOrderService(st, adj)

	_, err := svc.CreateOrder(context.Background(), 42, &CreateOrderRequest{
		CustomerName:     "Acme",
		CustomerPhone:    "555-0100",
		PaymentCondition: models.PaymentImmediate,
		Items:            []OrderItemRequest{{ProductID: 99, Quantity: 1}},
	})
	require.Error(t, err)
	assert.Empty(t, adj.calls)
	assert.Empty(t, st.orders)
}

func seedOrder(t *testing.T, svc *OrderService, items []OrderItemRequest) *models.Order {
	t.Helper()
	order, err := svc.CreateOrder(context.Background(), 1, &CreateOrderRequest{
		CustomerName:     "Acme",
		CustomerPhone:    "555-0100",
		PaymentCondition: models.PaymentDays15,
		Items:            items,
	})
	require.NoError(t, err)
	return order
}

func TestUpdateOrderReconcilesIncrease(t *testing.T) {
	st := newFakeOrderStore(product(1, "Widget", 10, 100))
	adj := newFakeAdjuster(map[int64]int{1: 10})
	svc := newTestOrderService(st, adj)

	order := seedOrder(t, svc, []OrderItemRequest{{ProductID: 1, Quantity: 5}})
	assert.Equal(t, 5, adj.stocks[1])
	adj.calls = nil

	_, err := svc.UpdateOrder(context.Background(), order.ID, &UpdateOrderRequest{
		CustomerName:     "Acme",
		CustomerPhone:    "555-0100",
		PaymentCondition: models.PaymentDays15,
		Items:            []OrderItemRequest{{ProductID: 1, Quantity: 8}},
	})
	require.NoError(t, err)

	// qty 5 -> 8 is a delta of 3 more units consumed.
	assert.Equal(t, []stockCall{{1, 3}}, adj.calls)
	assert.Equal(t, 2, adj.stocks[1])

	saved, err := st.GetOrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, saved.Items[0].Quantity)
	assert.True(t, saved.Total.Equal(decimal.NewFromInt(800)))
}

func TestUpdateOrderRemovedLineReturnsStock(t *testing.T) {
	st := newFakeOrderStore(
		product(1, "Widget", 10, 100),
		product(2, "Gadget", 6, 50),
	)
	adj := newFakeAdjuster(map[int64]int{1: 10, 2: 6})
	svc := newTestOrderService(st, adj)

	order := seedOrder(t, svc, []OrderItemRequest{
		{ProductID: 1, Quantity: 5},
		{ProductID: 2, Quantity: 2},
	})
	adj.calls = nil

	_, err := svc.UpdateOrder(context.Background(), order.ID, &UpdateOrderRequest{
		CustomerName:     "Acme",
		CustomerPhone:    "555-0100",
		PaymentCondition: models.PaymentDays15,
		Items:            []OrderItemRequest{{ProductID: 1, Quantity: 5}},
	})
	require.NoError(t, err)

	// Product 1 unchanged: no call. Product 2 removed: 2 units returned.
	assert.Equal(t, []stockCall{{2, -2}}, adj.calls)
	assert.Equal(t, 6, adj.stocks[2])
}

func TestUpdateOrderIdenticalItemsNoStockCalls(t *testing.T) {
	st := newFakeOrderStore(product(1, "Widget", 10, 100))
	adj := newFakeAdjuster(map[int64]int{1: 10})
	svc := newTestOrderService(st, adj)

	order := seedOrder(t, svc, []OrderItemRequest{{ProductID: 1, Quantity: 5}})
	adj.calls = nil

	_, err := svc.UpdateOrder(context.Background(), order.ID, &UpdateOrderRequest{
		CustomerName:     "Acme",
		CustomerPhone:    "555-0100",
		PaymentCondition: models.PaymentDays15,
		Items:            []OrderItemRequest{{ProductID: 1, Quantity: 5}},
	})
	require.NoError(t, err)
	assert.Empty(t, adj.calls)
}

func TestUpdateOrderFailureMakesNoStockCalls(t *testing.T) {
	st := newFakeOrderStore(product(1, "Widget", 10, 100))
	adj := newFakeAdjuster(map[int64]int{1: 10})
	svc := newTestOrderService(st, adj)

	order := seedOrder(t, svc, []OrderItemRequest{{ProductID: 1, Quantity: 5}})
	adj.calls = nil

	st.replaceErr = errors.New("connection reset")
	_, err := svc.UpdateOrder(context.Background(), order.ID, &UpdateOrderRequest{
		CustomerName:     "Acme",
		CustomerPhone:    "555-0100",
		PaymentCondition: models.PaymentDays15,
		Items:            []OrderItemRequest{{ProductID: 1, Quantity: 8}},
	})
	require.Error(t, err)
	assert.Empty(t, adj.calls)

	// The stored order is untouched.
	saved, err := st.GetOrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, saved.Items[0].Quantity)
}

func TestUpdateOrderDispatchStampsDateOnce(t *testing.T) {
	st := newFakeOrderStore(product(1, "Widget", 10, 100))
	adj := newFakeAdjuster(map[int64]int{1: 10})
	svc := newTestOrderService(st, adj)

	firstDispatch := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return firstDispatch }

	order := seedOrder(t, svc, []OrderItemRequest{{ProductID: 1, Quantity: 5}})

	updated, err := svc.UpdateOrder(context.Background(), order.ID, &UpdateOrderRequest{
		CustomerName:     "Acme",
		CustomerPhone:    "555-0100",
		Status:           models.OrderStatusDispatched,
		PaymentCondition: models.PaymentDays15,
		Items:            []OrderItemRequest{{ProductID: 1, Quantity: 5}},
	})
	require.NoError(t, err)
	require.NotNil(t, updated.DispatchDate)
	assert.Equal(t, firstDispatch, *updated.DispatchDate)
	assert.Nil(t, updated.DeliveryPerson)

	// A later save while already dispatched keeps the original stamp.
	svc.now = func() time.Time { return firstDispatch.Add(48 * time.Hour) }
	again, err := svc.UpdateOrder(context.Background(), order.ID, &UpdateOrderRequest{
		CustomerName:     "Acme",
		CustomerPhone:    "555-0100",
		Status:           models.OrderStatusDispatched,
		PaymentCondition: models.PaymentDays15,
		Items:            []OrderItemRequest{{ProductID: 1, Quantity: 5}},
	})
	require.NoError(t, err)
	require.NotNil(t, again.DispatchDate)
	assert.Equal(t, firstDispatch, *again.DispatchDate)
}

func TestSetStatusDispatchAndBack(t *testing.T) {
	st := newFakeOrderStore(product(1, "Widget", 10, 100))
	adj := newFakeAdjuster(map[int64]int{1: 10})
	svc := newTestOrderService(st, adj)

	dispatchTime := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return dispatchTime }

	order := seedOrder(t, svc, []OrderItemRequest{{ProductID: 1, Quantity: 5}})

	dispatched, err := svc.SetStatus(context.Background(), order.ID, models.OrderStatusDispatched)
	require.NoError(t, err)
	require.NotNil(t, dispatched.DispatchDate)
	assert.Equal(t, dispatchTime, *dispatched.DispatchDate)

	// Backward move is accepted; the dispatch stamp survives.
	back, err := svc.SetStatus(context.Background(), order.ID, models.OrderStatusPending)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, back.Status)
	require.NotNil(t, back.DispatchDate)
	assert.Equal(t, dispatchTime, *back.DispatchDate)
}

func TestDeleteOrderReturnsStock(t *testing.T) {
	st := newFakeOrderStore(
		product(1, "Widget", 10, 100),
		product(2, "Gadget", 6, 50),
	)
	adj := newFakeAdjuster(map[int64]int{1: 10, 2: 6})
	svc := newTestOrderService(st, adj)

	order := seedOrder(t, svc, []OrderItemRequest{
		{ProductID: 1, Quantity: 3},
		{ProductID: 2, Quantity: 2},
	})
	adj.calls = nil

	require.NoError(t, svc.DeleteOrder(context.Background(), order.ID))

	assert.Equal(t, []stockCall{{1, -3}, {2, -2}}, adj.calls)
	assert.Equal(t, 10, adj.stocks[1])
	assert.Equal(t, 6, adj.stocks[2])

	_, err := svc.GetOrder(context.Background(), order.ID)
	assert.Error(t, err)
}

func TestDueOrders(t *testing.T) {
	st := newFakeOrderStore(product(1, "Widget", 100, 100))
	adj := newFakeAdjuster(map[int64]int{1: 100})
	svc := newTestOrderService(st, adj)

	dispatchTime := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return dispatchTime }

	order := seedOrder(t, svc, []OrderItemRequest{{ProductID: 1, Quantity: 1}})
	_, err := svc.SetStatus(context.Background(), order.ID, models.OrderStatusDispatched)
	require.NoError(t, err)

	// 10 days in: days15 not due yet.
	svc.now = func() time.Time { return dispatchTime.Add(10 * 24 * time.Hour) }
	due, err := svc.DueOrders(context.Background())
	require.NoError(t, err)
	assert.Empty(t, due)

	// 20 days in: due.
	svc.now = func() time.Time { return dispatchTime.Add(20 * 24 * time.Hour) }
	due, err = svc.DueOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, order.ID, due[0].ID)

	// Paid suppresses due regardless of dates.
	require.NoError(t, svc.MarkPaid(context.Background(), order.ID, true))
	due, err = svc.DueOrders(context.Background())
	require.NoError(t, err)
	assert.Empty(t, due)
}
