package notification

import (
	"context"
	"time"

	"orderkeeper-be/internal/events"
	"orderkeeper-be/internal/logger"

	"go.uber.org/zap"
)

// CancellationNotice is what the mailer receives for a cancelled order.
type CancellationNotice struct {
	EventID     string              `json:"eventId"`
	OrderID     int64               `json:"orderId"`
	OrderNumber string              `json:"orderNumber"`
	UserID      int64               `json:"userId"`
	Reason      events.CancelReason `json:"reason"`
	CancelledAt time.Time           `json:"cancelledAt"`
}

type Notifier interface {
	NotifyOrderCancelled(ctx context.Context, n CancellationNotice) error
}

// LogNotifier only logs. It is used when no broker is configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (LogNotifier) NotifyOrderCancelled(ctx context.Context, n CancellationNotice) error {
	logger.FromCtx(ctx).Info("order cancellation notice",
		zap.String("order_number", n.OrderNumber),
		zap.Int64("user_id", n.UserID),
		zap.String("reason", string(n.Reason)),
	)
	return nil
}
