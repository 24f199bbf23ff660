package discount

import (
	"context"
	"fmt"

	"orderkeeper-be/internal/events"
)

// CancellationHandler returns the order.cancelled subscriber that restores
// the coupon an order consumed. Orders without a coupon are ignored.
func CancellationHandler(repo Repository) events.Handler {
	return func(ctx context.Context, e events.Event) error {
		payload, ok := e.Payload.(events.OrderCancelled)
		if !ok {
			return fmt.Errorf("unexpected payload %T for %s", e.Payload, e.Type)
		}
		if payload.CouponCode == "" {
			return nil
		}

		_, err := repo.DecrementUsage(ctx, payload.CouponCode)
		return err
	}
}
