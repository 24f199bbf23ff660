package scheduler

import (
	"context"
	"sync"
	"time"

	"orderkeeper-be/internal/logger"

	"go.uber.org/zap"
)

// Scheduler calls handlers on fixed intervals. Each handler runs in its own
// goroutine and is invoked synchronously per tick, so slow runs delay the
// next tick instead of overlapping it.
type Scheduler interface {
	Every(interval time.Duration, name string, handler func(ctx context.Context))
	Start(ctx context.Context)
	Stop()
}

type task struct {
	name     string
	interval time.Duration
	handler  func(ctx context.Context)
}

type tickerScheduler struct {
	mu     sync.Mutex
	tasks  []task
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTickerScheduler() Scheduler {
	return &tickerScheduler{}
}

// Every registers handler. Registrations after Start are ignored.
func (s *tickerScheduler) Every(interval time.Duration, name string, handler func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		logger.L().Warn("scheduler already started, task ignored", zap.String("task", name))
		return
	}
	s.tasks = append(s.tasks, task{name: name, interval: interval, handler: handler})
}

func (s *tickerScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)

	for _, t := range s.tasks {
		s.wg.Add(1)
		go s.loop(ctx, t)
	}
}

// Stop cancels the running handlers and waits for them to return.
func (s *tickerScheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *tickerScheduler) loop(ctx context.Context, t task) {
	defer s.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	logger.L().Info("scheduled task started",
		zap.String("task", t.name),
		zap.Duration("interval", t.interval),
	)

	for {
		select {
		case <-ctx.Done():
			logger.L().Info("scheduled task stopped", zap.String("task", t.name))
			return
		case <-ticker.C:
			t.handler(ctx)
		}
	}
}

// Schedule registers every job of r on sched at its interval. Errors are
// already logged by the runner; ErrJobRunning only happens when a run-now
// request holds the job.
func Schedule(sched Scheduler, r *Runner, intervals map[string]time.Duration) {
	for _, name := range r.Names() {
		interval, ok := intervals[name]
		if !ok || interval <= 0 {
			logger.L().Warn("no interval configured, job not scheduled", zap.String("job", name))
			continue
		}
		jobName := name
		sched.Every(interval, jobName, func(ctx context.Context) {
			_, _ = r.Run(ctx, jobName)
		})
	}
}
