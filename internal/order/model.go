package order

import "time"

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

type Order struct {
	ID                int64
	OrderNumber       string
	UserID            *int64
	Status            OrderStatus
	PaymentStatus     PaymentStatus
	PaystackReference *string
	PaidAt            *time.Time
	PaymentMethod     *string
	CouponCode        *string
	TotalAmount       float64
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Items             []OrderItem
}

type OrderItem struct {
	ID        int64
	OrderID   int64
	VariantID string
	Quantity  int
}

// IsSettled reports whether the payment outcome is final.
func (o *Order) IsSettled() bool {
	return o.PaymentStatus != PaymentStatusPending
}

func (o *Order) Reference() string {
	if o.PaystackReference == nil {
		return ""
	}
	return *o.PaystackReference
}
