package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestItemsTotal(t *testing.T) {
	items := []OrderItem{
		{Quantity: 2, Price: decimal.NewFromInt(1000)},
		{Quantity: 1, Price: decimal.RequireFromString("499.50")},
	}

	assert.True(t, ItemsTotal(items).Equal(decimal.RequireFromString("2499.50")))
	assert.True(t, ItemsTotal(nil).Equal(decimal.Zero))
}

func TestProductLowStock(t *testing.T) {
	assert.True(t, (&Product{Stock: 3, Threshold: 5}).LowStock())
	assert.True(t, (&Product{Stock: 5, Threshold: 5}).LowStock())
	assert.False(t, (&Product{Stock: 6, Threshold: 5}).LowStock())
	// Zero threshold disables the alert.
	assert.False(t, (&Product{Stock: 0, Threshold: 0}).LowStock())
}

func TestPaymentDue(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	daysAgo := func(d int) *time.Time {
		ts := now.Add(-time.Duration(d) * 24 * time.Hour)
		return &ts
	}

	tests := []struct {
		name  string
		order Order
		want  bool
	}{
		{
			name:  "pending never due",
			order: Order{Status: OrderStatusPending, PaymentCondition: PaymentImmediate},
			want:  false,
		},
		{
			name: "immediate due on dispatch",
			order: Order{
				Status:           OrderStatusDispatched,
				PaymentCondition: PaymentImmediate,
				DispatchDate:     daysAgo(0),
			},
			want: true,
		},
		{
			name: "days15 not yet due",
			order: Order{
				Status:           OrderStatusDispatched,
				PaymentCondition: PaymentDays15,
				DispatchDate:     daysAgo(10),
			},
			want: false,
		},
		{
			name: "days15 due after 20 days",
			order: Order{
				Status:           OrderStatusDispatched,
				PaymentCondition: PaymentDays15,
				DispatchDate:     daysAgo(20),
			},
			want: true,
		},
		{
			name: "days15 due exactly on day 15",
			order: Order{
				Status:           OrderStatusDispatched,
				PaymentCondition: PaymentDays15,
				DispatchDate:     daysAgo(15),
			},
			want: true,
		},
		{
			name: "days30 not due at 20 days",
			order: Order{
				Status:           OrderStatusDispatched,
				PaymentCondition: PaymentDays30,
				DispatchDate:     daysAgo(20),
			},
			want: false,
		},
		{
			name: "paid suppresses due",
			order: Order{
				Status:           OrderStatusDispatched,
				PaymentCondition: PaymentDays15,
				DispatchDate:     daysAgo(20),
				IsPaid:           true,
			},
			want: false,
		},
		{
			name: "unknown condition treated as due",
			order: Order{
				Status:           OrderStatusDispatched,
				PaymentCondition: "",
				DispatchDate:     daysAgo(1),
			},
			want: true,
		},
		{
			name: "days15 without dispatch date not due",
			order: Order{
				Status:           OrderStatusDispatched,
				PaymentCondition: PaymentDays15,
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.order.PaymentDue(now))
		})
	}
}
