package reconcile

import (
	"context"
	"fmt"
	"time"

	"orderkeeper-be/internal/events"
	"orderkeeper-be/internal/logger"
	"orderkeeper-be/internal/order"
	"orderkeeper-be/internal/scheduler"

	"go.uber.org/zap"
)

const (
	JobOrderCancellation = "order-cancellation"

	DefaultReapBatchSize = 100
)

// Reaper expires pending orders that outlived the payment timeout. Coupon
// and notification compensations run on the order.cancelled event.
type Reaper struct {
	orders    order.Service
	batchSize int
	now       func() time.Time
}

func NewReaper(orders order.Service, batchSize int) *Reaper {
	if batchSize <= 0 {
		batchSize = DefaultReapBatchSize
	}
	return &Reaper{
		orders:    orders,
		batchSize: batchSize,
		now:       time.Now,
	}
}

func (r *Reaper) Name() string {
	return JobOrderCancellation
}

func (r *Reaper) Run(ctx context.Context) (*scheduler.Stats, error) {
	log := logger.FromCtx(ctx).With(zap.String("layer", "reaper"))

	orders, err := r.orders.ListExpired(ctx, r.now(), r.batchSize)
	if err != nil {
		return nil, fmt.Errorf("list expired orders: %w", err)
	}

	stats := &scheduler.Stats{RecordsChecked: len(orders)}

	for _, o := range orders {
		cancelled, err := r.orders.MarkFailed(ctx, o, events.ReasonPaymentTimeout)
		if err != nil {
			stats.RecordsFailed++
			log.Error("failed to cancel expired order",
				zap.String("order_number", o.OrderNumber),
				zap.Error(err),
			)
			continue
		}
		if cancelled {
			stats.RecordsProcessed++
		}
	}

	return stats, nil
}
