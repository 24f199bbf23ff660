package notification

import (
	"context"
	"fmt"

	"orderkeeper-be/internal/events"
	"orderkeeper-be/internal/logger"

	"go.uber.org/zap"
)

// CancellationHandler notifies the owner of a cancelled order. Guest orders
// are skipped. dedupe may be nil; when Redis is unreachable the notice is sent
// anyway.
func CancellationHandler(n Notifier, dedupe Deduper) events.Handler {
	return func(ctx context.Context, e events.Event) error {
		payload, ok := e.Payload.(events.OrderCancelled)
		if !ok {
			return fmt.Errorf("unexpected payload %T for %s", e.Payload, e.Type)
		}
		if payload.UserID == nil {
			return nil
		}

		log := logger.FromCtx(ctx).With(
			zap.String("layer", "notification"),
			zap.String("event_id", e.ID),
			zap.String("order_number", payload.OrderNumber),
		)

		if dedupe != nil {
			first, err := dedupe.FirstSeen(ctx, e.ID)
			if err != nil {
				log.Warn("dedupe check failed, sending anyway", zap.Error(err))
			} else if !first {
				log.Info("notice already sent for event")
				return nil
			}
		}

		return n.NotifyOrderCancelled(ctx, CancellationNotice{
			EventID:     e.ID,
			OrderID:     payload.OrderID,
			OrderNumber: payload.OrderNumber,
			UserID:      *payload.UserID,
			Reason:      payload.Reason,
			CancelledAt: e.OccurredAt,
		})
	}
}
