package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeOrderCancelled = "order.cancelled"
)

type Event struct {
	ID         string    `json:"event_id"`
	Type       string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

func New(eventType string, payload any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

type CancelReason string

const (
	ReasonPaymentFailed  CancelReason = "payment_failed"
	ReasonPaymentTimeout CancelReason = "payment_timeout"
)

// OrderCancelled is emitted once per order, after the pending→cancelled
// transition has committed.
type OrderCancelled struct {
	OrderID     int64        `json:"order_id"`
	OrderNumber string       `json:"order_number"`
	UserID      *int64       `json:"user_id,omitempty"`
	CouponCode  string       `json:"coupon_code,omitempty"`
	Reason      CancelReason `json:"reason"`
}
