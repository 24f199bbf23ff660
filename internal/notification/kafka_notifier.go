package notification

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"orderkeeper-be/internal/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes cancellation notices for the mailer service.
// Messages are keyed by user so one user's notices stay ordered.
type KafkaNotifier struct {
	w       messageWriter
	timeout time.Duration
}

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		timeout: 10 * time.Second,
	}
}

func (k *KafkaNotifier) NotifyOrderCancelled(ctx context.Context, n CancellationNotice) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "notification"),
		zap.String("method", "NotifyOrderCancelled"),
		zap.String("order_number", n.OrderNumber),
	)

	value, err := json.Marshal(n)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	err = k.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(n.UserID, 10)),
		Value: value,
		Time:  n.CancelledAt,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(n.EventID)},
			{Key: "type", Value: []byte("order.cancelled")},
		},
	})
	if err != nil {
		log.Error("failed to publish cancellation notice", zap.Error(err))
		return err
	}

	log.Debug("cancellation notice published")
	return nil
}

func (k *KafkaNotifier) Close() error {
	return k.w.Close()
}
