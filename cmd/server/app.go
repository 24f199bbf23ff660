package main

import (
	"context"
	"database/sql"
	"io"
	"net/http"
	"time"

	"orderkeeper-be/internal/config"
	"orderkeeper-be/internal/discount"
	"orderkeeper-be/internal/events"
	"orderkeeper-be/internal/httpapi"
	"orderkeeper-be/internal/inventory"
	"orderkeeper-be/internal/logger"
	"orderkeeper-be/internal/metrics"
	"orderkeeper-be/internal/notification"
	"orderkeeper-be/internal/order"
	"orderkeeper-be/internal/payment"
	"orderkeeper-be/internal/payment/webhook"
	"orderkeeper-be/internal/reconcile"
	"orderkeeper-be/internal/scheduler"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// app holds everything main starts and stops.
type app struct {
	bus       *events.Bus
	runner    *scheduler.Runner
	scheduler scheduler.Scheduler
	router    http.Handler
	closers   []io.Closer
}

func newApp(cfg *config.Config, database *sql.DB) *app {
	log := logger.L()
	a := &app{}

	a.bus = events.NewBus(256, 2)

	a.bus.Subscribe(events.TypeOrderCancelled, "discount",
		discount.CancellationHandler(discount.NewRepository(database)))

	var notifier notification.Notifier = notification.NewLogNotifier()
	if len(cfg.KafkaBrokers) > 0 {
		k := notification.NewKafkaNotifier(cfg.KafkaBrokers, cfg.NotificationTopic)
		a.closers = append(a.closers, k)
		notifier = k
		log.Info("cancellation notices go to kafka",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.NotificationTopic),
		)
	}

	var dedupe notification.Deduper
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		a.closers = append(a.closers, rdb)
		dedupe = notification.NewRedisDeduper(rdb)
	}
	a.bus.Subscribe(events.TypeOrderCancelled, "notification",
		notification.CancellationHandler(notifier, dedupe))

	orderSvc := order.NewService(
		order.NewRepository(database, inventory.NewLedger()),
		a.bus,
	)
	gateway := payment.NewPaystackGateway(cfg.PaystackSecretKey, cfg.PaystackBaseURL, cfg.PaystackRPS)

	a.runner = scheduler.NewRunner(metrics.NewRegistry())
	a.runner.Register(reconcile.NewPoller(orderSvc, gateway, cfg.VerifyBatchSize))
	a.runner.Register(reconcile.NewReaper(orderSvc, cfg.ReapBatchSize))

	a.scheduler = scheduler.NewTickerScheduler()
	scheduler.Schedule(a.scheduler, a.runner, map[string]time.Duration{
		reconcile.JobPaymentVerification: cfg.VerifyInterval,
		reconcile.JobOrderCancellation:   cfg.ReapInterval,
	})

	hook := webhook.NewWebhookHandler(orderSvc, cfg.PaystackSecretKey)
	a.router = httpapi.NewRouter(&httpapi.Handler{
		Jobs:    a.runner,
		DB:      database,
		Webhook: hook.PaystackWebhookHandler,
	}, cfg.JWTSecret)

	return a
}

func (a *app) start(ctx context.Context) {
	a.scheduler.Start(ctx)
}

// stop halts the jobs first, then drains the event bus so pending
// compensations still reach Kafka and Redis before those clients close.
func (a *app) stop() {
	a.scheduler.Stop()
	a.bus.Close()
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			logger.L().Warn("failed to close client", zap.Error(err))
		}
	}
}
