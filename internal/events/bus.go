package events

import (
	"context"
	"fmt"
	"sync"

	"orderkeeper-be/internal/logger"

	"go.uber.org/zap"
)

// Handler consumes one event. A returned error is logged and dropped.
type Handler func(ctx context.Context, e Event) error

type Publisher interface {
	Publish(ctx context.Context, e Event)
}

type subscription struct {
	name    string
	handler Handler
}

type delivery struct {
	ctx   context.Context
	event Event
}

// Bus is an in-process, fire-and-forget event bus. Publishers never see
// handler failures: every handler runs on the bus workers, isolated from the
// others and from panics.
type Bus struct {
	subMu sync.RWMutex
	subs  map[string][]subscription

	// mu guards closed against concurrent Publish/Close.
	mu       sync.RWMutex
	queue    chan delivery
	closed   bool
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewBus(buffer, workers int) *Bus {
	if buffer <= 0 {
		buffer = 256
	}
	if workers <= 0 {
		workers = 1
	}

	b := &Bus{
		subs:  make(map[string][]subscription),
		queue: make(chan delivery, buffer),
	}

	for i := 0; i < workers; i++ {
		b.wg.Add(1)
		go b.work()
	}
	return b
}

func (b *Bus) Subscribe(eventType, name string, h Handler) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	b.subs[eventType] = append(b.subs[eventType], subscription{name: name, handler: h})
}

// Publish enqueues e. It blocks only while the queue is full, and gives up
// when ctx is done. The handlers get ctx's values but not its cancellation.
func (b *Bus) Publish(ctx context.Context, e Event) {
	log := logger.FromCtx(ctx).With(
		zap.String("event_id", e.ID),
		zap.String("event_type", e.Type),
	)

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		log.Error("event bus closed, dropping event")
		return
	}

	select {
	case b.queue <- delivery{ctx: context.WithoutCancel(ctx), event: e}:
		log.Debug("event published")
	case <-ctx.Done():
		log.Error("event dropped, context done", zap.Error(ctx.Err()))
	}
}

// Close stops accepting events and waits until queued ones are handled.
func (b *Bus) Close() {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		close(b.queue)
		b.mu.Unlock()
	})
	b.wg.Wait()
}

func (b *Bus) work() {
	defer b.wg.Done()
	for d := range b.queue {
		b.dispatch(d.ctx, d.event)
	}
}

func (b *Bus) dispatch(ctx context.Context, e Event) {
	b.subMu.RLock()
	subs := append([]subscription(nil), b.subs[e.Type]...)
	b.subMu.RUnlock()

	for _, s := range subs {
		if err := safeCall(ctx, s.handler, e); err != nil {
			logger.FromCtx(ctx).Error("event handler failed",
				zap.String("handler", s.name),
				zap.String("event_id", e.ID),
				zap.String("event_type", e.Type),
				zap.Error(err),
			)
		}
	}
}

func safeCall(ctx context.Context, h Handler, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, e)
}
