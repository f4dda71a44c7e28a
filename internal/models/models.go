package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Staff roles
const (
	RoleAdmin     = "admin"
	RoleStaff     = "staff"
	RoleExecutive = "executive"
)

// Staff represents an employee account
type Staff struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Phone        string    `db:"phone" json:"phone"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Product dimensions (units of measure)
const (
	DimensionPcs = "pcs"
	DimensionKg  = "kg"
	DimensionLtr = "ltr"
	DimensionMtr = "mtr"
	DimensionBox = "box"
)

// Product represents an inventory item. Stock never goes below zero;
// every write path clamps it.
type Product struct {
	ID        int64           `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Stock     int             `db:"stock" json:"stock"`
	Dimension string          `db:"dimension" json:"dimension,omitempty"`
	Threshold int             `db:"threshold" json:"threshold,omitempty"`
	Price     decimal.Decimal `db:"price" json:"price"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// LowStock reports whether the product is at or below its alert threshold.
// A zero threshold disables the alert.
func (p *Product) LowStock() bool {
	return p.Threshold > 0 && p.Stock <= p.Threshold
}

// Order statuses. The workflow is pending -> dc -> invoice -> dispatched,
// but any status may be set by an authorized actor; transitions are not
// validated for direction.
const (
	OrderStatusPending    = "pending"
	OrderStatusDC         = "dc"
	OrderStatusInvoice    = "invoice"
	OrderStatusDispatched = "dispatched"
)

// Payment conditions
const (
	PaymentImmediate = "immediate"
	PaymentDays15    = "days15"
	PaymentDays30    = "days30"
)

// Order priorities
const (
	PriorityUrgent = "urgent"
	PriorityNormal = "normal"
)

// Order represents a customer order
type Order struct {
	ID               int64           `db:"id" json:"id"`
	CustomerName     string          `db:"customer_name" json:"customer_name"`
	CustomerPhone    string          `db:"customer_phone" json:"customer_phone"`
	CustomerEmail    string          `db:"customer_email" json:"customer_email,omitempty"`
	CustomerAddress  string          `db:"customer_address" json:"customer_address,omitempty"`
	Status           string          `db:"status" json:"status"`
	PaymentCondition string          `db:"payment_condition" json:"payment_condition"`
	Priority         string          `db:"priority" json:"priority"`
	Total            decimal.Decimal `db:"total" json:"total"`
	IsPaid           bool            `db:"is_paid" json:"is_paid"`
	PaidAt           *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
	AssignedTo       *int64          `db:"assigned_to" json:"assigned_to,omitempty"`
	DeliveryPerson   *int64          `db:"delivery_person" json:"delivery_person,omitempty"`
	DispatchDate     *time.Time      `db:"dispatch_date" json:"dispatch_date,omitempty"`
	CreatedBy        int64           `db:"created_by" json:"created_by"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`

	Items []OrderItem `db:"-" json:"items,omitempty"`
}

// OrderItem is a line item owned by its order. Product name, price and
// dimension are snapshots taken when the line was written.
type OrderItem struct {
	ID          int64           `db:"id" json:"id"`
	OrderID     int64           `db:"order_id" json:"order_id"`
	ProductID   int64           `db:"product_id" json:"product_id"`
	ProductName string          `db:"product_name" json:"product_name"`
	Quantity    int             `db:"quantity" json:"quantity"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Dimension   string          `db:"dimension" json:"dimension,omitempty"`
}

// ItemsTotal sums quantity x unit price across line items.
func ItemsTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// PaymentDue reports whether payment on the order is due as of now.
// Only dispatched, unpaid orders can be due; an unrecognized or empty
// payment condition counts as due.
func (o *Order) PaymentDue(now time.Time) bool {
	if o.Status != OrderStatusDispatched || o.IsPaid {
		return false
	}
	if o.PaymentCondition == PaymentDays15 || o.PaymentCondition == PaymentDays30 {
		if o.DispatchDate == nil {
			return false
		}
		days := 15
		if o.PaymentCondition == PaymentDays30 {
			days = 30
		}
		return now.Sub(*o.DispatchDate) >= time.Duration(days)*24*time.Hour
	}
	return true
}

// Attendance statuses
const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
)

// Attendance records one staff member's presence for one day
type Attendance struct {
	ID       int64      `db:"id" json:"id"`
	StaffID  int64      `db:"staff_id" json:"staff_id"`
	Day      time.Time  `db:"day" json:"day"`
	CheckIn  time.Time  `db:"check_in" json:"check_in"`
	CheckOut *time.Time `db:"check_out" json:"check_out,omitempty"`
	Status   string     `db:"status" json:"status"`
}
