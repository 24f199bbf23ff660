package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"orderkeeper-be/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestBus_PublishDeliversToSubscribers(t *testing.T) {
	bus := NewBus(8, 1)

	var mu sync.Mutex
	var got []string

	bus.Subscribe(TypeOrderCancelled, "first", func(ctx context.Context, e Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, "first:"+e.Payload.(OrderCancelled).OrderNumber)
		return nil
	})
	bus.Subscribe(TypeOrderCancelled, "second", func(ctx context.Context, e Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, "second:"+e.Payload.(OrderCancelled).OrderNumber)
		return nil
	})
	bus.Subscribe("other.event", "unrelated", func(ctx context.Context, e Event) error {
		t.Error("unrelated handler must not run")
		return nil
	})

	bus.Publish(context.Background(), New(TypeOrderCancelled, OrderCancelled{OrderNumber: "ORD-1"}))
	bus.Close()

	assert.Equal(t, []string{"first:ORD-1", "second:ORD-1"}, got)
}

func TestBus_HandlerFailureIsIsolated(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	restore := logger.Replace(zap.New(core))
	defer restore()

	bus := NewBus(8, 1)

	var calls int32
	bus.Subscribe(TypeOrderCancelled, "failing", func(ctx context.Context, e Event) error {
		return errors.New("smtp down")
	})
	bus.Subscribe(TypeOrderCancelled, "panicking", func(ctx context.Context, e Event) error {
		panic("boom")
	})
	bus.Subscribe(TypeOrderCancelled, "healthy", func(ctx context.Context, e Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	bus.Publish(context.Background(), New(TypeOrderCancelled, OrderCancelled{OrderID: 1}))
	bus.Publish(context.Background(), New(TypeOrderCancelled, OrderCancelled{OrderID: 2}))
	bus.Close()

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	failures := observed.FilterMessage("event handler failed").All()
	require.Len(t, failures, 4)
	assert.Equal(t, "failing", failures[0].ContextMap()["handler"])
	assert.Equal(t, "panicking", failures[1].ContextMap()["handler"])
	assert.Contains(t, failures[1].ContextMap()["error"], "handler panic: boom")
}

func TestBus_HandlerContextKeepsValuesButNotCancellation(t *testing.T) {
	bus := NewBus(8, 1)

	var runID string
	var ctxErr error
	bus.Subscribe(TypeOrderCancelled, "inspect", func(ctx context.Context, e Event) error {
		_, runID = logger.JobRunFrom(ctx)
		ctxErr = ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(logger.WithJobRun(context.Background(), "order-cancellation", "run-7"))
	bus.Publish(ctx, New(TypeOrderCancelled, OrderCancelled{OrderID: 1}))
	cancel()
	bus.Close()

	assert.Equal(t, "run-7", runID)
	assert.NoError(t, ctxErr)
}

func TestBus_PublishAfterCloseIsDropped(t *testing.T) {
	bus := NewBus(1, 1)

	var calls int32
	bus.Subscribe(TypeOrderCancelled, "count", func(ctx context.Context, e Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	bus.Close()
	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), New(TypeOrderCancelled, OrderCancelled{OrderID: 1}))
	})
	bus.Close()

	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestNew(t *testing.T) {
	e := New(TypeOrderCancelled, OrderCancelled{OrderID: 9, Reason: ReasonPaymentTimeout})

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, TypeOrderCancelled, e.Type)
	assert.False(t, e.OccurredAt.IsZero())
	assert.Equal(t, ReasonPaymentTimeout, e.Payload.(OrderCancelled).Reason)
}
