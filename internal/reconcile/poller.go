package reconcile

import (
	"context"
	"fmt"
	"time"

	"orderkeeper-be/internal/events"
	"orderkeeper-be/internal/logger"
	"orderkeeper-be/internal/order"
	"orderkeeper-be/internal/payment"
	"orderkeeper-be/internal/scheduler"

	"go.uber.org/zap"
)

const (
	JobPaymentVerification = "payment-verification"

	DefaultVerifyBatchSize = 50
)

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeSettled
)

// Poller re-checks pending orders with the payment provider once the
// customer's grace period has passed, and settles them before the reaper
// would expire them.
type Poller struct {
	orders    order.Service
	gateway   payment.Gateway
	batchSize int
	now       func() time.Time
}

func NewPoller(orders order.Service, gateway payment.Gateway, batchSize int) *Poller {
	if batchSize <= 0 {
		batchSize = DefaultVerifyBatchSize
	}
	return &Poller{
		orders:    orders,
		gateway:   gateway,
		batchSize: batchSize,
		now:       time.Now,
	}
}

func (p *Poller) Name() string {
	return JobPaymentVerification
}

// Run processes one batch. Orders are handled one by one; a failing order is
// counted and logged and the batch moves on. Only the candidate query can fail
// the run.
func (p *Poller) Run(ctx context.Context) (*scheduler.Stats, error) {
	log := logger.FromCtx(ctx).With(zap.String("layer", "poller"))

	orders, err := p.orders.ListAwaitingVerification(ctx, p.now(), p.batchSize)
	if err != nil {
		return nil, fmt.Errorf("list orders awaiting verification: %w", err)
	}

	stats := &scheduler.Stats{RecordsChecked: len(orders)}

	for _, o := range orders {
		res, err := p.verify(ctx, o)
		if err != nil {
			stats.RecordsFailed++
			log.Error("order verification failed",
				zap.String("order_number", o.OrderNumber),
				zap.String("reference", o.Reference()),
				zap.Error(err),
			)
			continue
		}
		if res == outcomeSettled {
			stats.RecordsProcessed++
		}
	}

	return stats, nil
}

func (p *Poller) verify(ctx context.Context, o *order.Order) (outcome, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "poller"),
		zap.String("order_number", o.OrderNumber),
		zap.String("reference", o.Reference()),
	)

	v, err := p.gateway.Verify(ctx, o.Reference())
	if err != nil {
		return outcomeSkipped, err
	}

	switch {
	case v.Status == payment.VerificationSuccess:
		expected := payment.ToMinorUnit(o.TotalAmount)
		if v.Amount != expected {
			log.Warn("gateway amount differs from order total",
				zap.Int64("gateway_amount", v.Amount),
				zap.Int64("order_amount", expected),
				zap.String("currency", v.Currency),
			)
		}

		claimed, err := p.orders.MarkPaid(ctx, o, v.Channel)
		if err != nil {
			return outcomeSkipped, err
		}
		if !claimed {
			return outcomeSkipped, nil
		}
		return outcomeSettled, nil

	case v.Status.IsTerminalFailure():
		cancelled, err := p.orders.MarkFailed(ctx, o, events.ReasonPaymentFailed)
		if err != nil {
			return outcomeSkipped, err
		}
		if !cancelled {
			return outcomeSkipped, nil
		}
		log.Info("order cancelled after failed payment", zap.String("gateway_status", string(v.Status)))
		return outcomeSettled, nil

	case v.Status.IsInFlight():
		log.Debug("payment still in progress")
		return outcomeSkipped, nil

	default:
		log.Warn("unknown gateway status, leaving order pending", zap.String("gateway_status", string(v.Status)))
		return outcomeSkipped, nil
	}
}
