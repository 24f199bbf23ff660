package order

import (
	"context"
	"errors"
	"time"

	"orderkeeper-be/internal/events"
	"orderkeeper-be/internal/logger"

	"go.uber.org/zap"
)

// Service is the single entry point for settling an order's payment. The
// poller, the reaper and the webhook all go through it, so every path shares
// the same claim and emits the same compensation events.
type Service interface {
	ListAwaitingVerification(ctx context.Context, now time.Time, limit int) ([]*Order, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*Order, error)

	MarkPaid(ctx context.Context, o *Order, channel string) (bool, error)
	MarkFailed(ctx context.Context, o *Order, reason events.CancelReason) (bool, error)

	ConfirmByReference(ctx context.Context, reference, channel string) (*Order, bool, error)
	FailByReference(ctx context.Context, reference string) (*Order, bool, error)
}

type service struct {
	repo   Repository
	events events.Publisher
	now    func() time.Time
}

func NewService(repo Repository, publisher events.Publisher) Service {
	return &service{
		repo:   repo,
		events: publisher,
		now:    time.Now,
	}
}

func (s *service) ListAwaitingVerification(ctx context.Context, now time.Time, limit int) ([]*Order, error) {
	from, to := VerificationWindow(now)
	return s.repo.FindAwaitingVerification(ctx, from, to, limit)
}

func (s *service) ListExpired(ctx context.Context, now time.Time, limit int) ([]*Order, error) {
	return s.repo.FindExpiredPending(ctx, ReapCutoff(now), limit)
}

func (s *service) MarkPaid(ctx context.Context, o *Order, channel string) (bool, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "MarkPaid"),
		zap.String("order_number", o.OrderNumber),
	)

	claimed, err := s.repo.ConfirmPaid(ctx, o.ID, channel, s.now())
	if err != nil {
		return false, err
	}
	if !claimed {
		log.Info("paid transition skipped, order already settled")
		return false, nil
	}

	o.Status = StatusProcessing
	o.PaymentStatus = PaymentStatusPaid
	o.PaymentMethod = &channel

	log.Info("order paid", zap.String("channel", channel))
	return true, nil
}

// MarkFailed cancels a pending order and, only when this call performed the
// transition, emits order.cancelled for the compensation handlers.
func (s *service) MarkFailed(ctx context.Context, o *Order, reason events.CancelReason) (bool, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "MarkFailed"),
		zap.String("order_number", o.OrderNumber),
		zap.String("reason", string(reason)),
	)

	cancelled, err := s.repo.CancelPending(ctx, o.ID)
	if err != nil {
		return false, err
	}
	if !cancelled {
		log.Info("cancellation skipped, order already settled")
		return false, nil
	}

	o.Status = StatusCancelled
	o.PaymentStatus = PaymentStatusFailed

	payload := events.OrderCancelled{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		Reason:      reason,
	}
	if o.CouponCode != nil {
		payload.CouponCode = *o.CouponCode
	}
	s.events.Publish(ctx, events.New(events.TypeOrderCancelled, payload))

	log.Info("order cancelled")
	return true, nil
}

func (s *service) ConfirmByReference(ctx context.Context, reference, channel string) (*Order, bool, error) {
	o, err := s.repo.GetByReference(ctx, reference)
	if err != nil {
		return nil, false, err
	}
	claimed, err := s.MarkPaid(ctx, o, channel)
	return o, claimed, err
}

func (s *service) FailByReference(ctx context.Context, reference string) (*Order, bool, error) {
	o, err := s.repo.GetByReference(ctx, reference)
	if err != nil {
		return nil, false, err
	}
	if o.IsSettled() {
		return o, false, nil
	}
	cancelled, err := s.MarkFailed(ctx, o, events.ReasonPaymentFailed)
	return o, cancelled, err
}

// IsNotFound reports whether err means the order does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound)
}
