package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================================================
// ORDER STATUS
// =====================================================
const (
	OrderStatusPendingPayment = "PENDING_PAYMENT"
	OrderStatusPaid           = "PAID"
	OrderStatusPaymentFailed  = "PAYMENT_FAILED"
	OrderStatusCancelled      = "CANCELLED"
)

// =====================================================
// ORDER ENTITY
// =====================================================
type Order struct {
	ID          uuid.UUID `json:"id" db:"id"`
	OrderNumber string    `json:"order_number" db:"order_number"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	StoreID     uuid.UUID `json:"store_id" db:"store_id"`

	// Denormalized for receipt rendering; the snapshot freezes these.
	StoreName     string `json:"store_name" db:"store_name"`
	CustomerName  string `json:"customer_name" db:"customer_name"`
	CustomerEmail string `json:"customer_email" db:"customer_email"`

	Items []OrderItem `json:"items" db:"items"`

	// Pricing
	Subtotal decimal.Decimal `json:"subtotal" db:"subtotal"`
	Tax      decimal.Decimal `json:"tax" db:"tax"`
	Shipping decimal.Decimal `json:"shipping" db:"shipping"`
	Discount decimal.Decimal `json:"discount" db:"discount"`
	Total    decimal.Decimal `json:"total" db:"total"`
	Currency string          `json:"currency" db:"currency"`

	// Status tracking
	Status      string     `json:"status" db:"status"`
	PaidAt      *time.Time `json:"paid_at,omitempty" db:"paid_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type OrderItem struct {
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// IsPayable reports whether a success webhook may promote this order.
func (o *Order) IsPayable() bool {
	return o.Status == OrderStatusPendingPayment || o.Status == OrderStatusPaymentFailed
}
