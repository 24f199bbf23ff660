package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"orderkeeper-be/internal/logger"
	"orderkeeper-be/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type entry struct {
	job     Job
	running sync.Mutex

	mu   sync.Mutex
	last *Stats
}

// Runner owns the registered jobs. Scheduled ticks and run-now requests both
// go through Run, so a job never overlaps itself.
type Runner struct {
	mu      sync.RWMutex
	jobs    map[string]*entry
	metrics *metrics.Registry
}

func NewRunner(reg *metrics.Registry) *Runner {
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	return &Runner{
		jobs:    make(map[string]*entry),
		metrics: reg,
	}
}

func (r *Runner) Register(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.Name()] = &entry{job: job}
}

func (r *Runner) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes the named job synchronously and returns its stats. It returns
// ErrJobRunning without waiting if another run of the same job is in flight.
func (r *Runner) Run(ctx context.Context, name string) (*Stats, error) {
	r.mu.RLock()
	e, ok := r.jobs[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}

	if !e.running.TryLock() {
		logger.FromCtx(ctx).Warn("job run skipped, previous run still in progress",
			zap.String("job", name),
		)
		return nil, ErrJobRunning
	}
	defer e.running.Unlock()

	runID := uuid.NewString()
	ctx = logger.WithJobRun(ctx, name, runID)
	log := logger.FromCtx(ctx)

	counters := r.metrics.Job(name)
	counters.Runs.Inc()

	timer := metrics.StartTimer()
	log.Info("job started")

	stats, err := e.job.Run(ctx)
	if stats == nil {
		stats = &Stats{}
	}
	stats.JobName = name
	stats.StartedAt = timer.Started()
	stats.DurationMs = timer.Duration().Milliseconds()

	counters.Checked.Add(uint64(stats.RecordsChecked))
	counters.Processed.Add(uint64(stats.RecordsProcessed))
	counters.Failed.Add(uint64(stats.RecordsFailed))

	fields := []zap.Field{
		zap.Int("records_checked", stats.RecordsChecked),
		zap.Int("records_processed", stats.RecordsProcessed),
		zap.Int("records_failed", stats.RecordsFailed),
		zap.Int64("duration_ms", stats.DurationMs),
	}

	if err != nil {
		stats.Error = err.Error()
		counters.Failures.Inc()
		log.Error("job failed", append(fields, zap.Error(err))...)
	} else {
		log.Info("job finished", fields...)
	}

	e.mu.Lock()
	last := *stats
	e.last = &last
	e.mu.Unlock()

	return stats, err
}

// LastStats returns a copy of the most recent run of every job that has run
// at least once, sorted by job name.
func (r *Runner) LastStats() []Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Stats, 0, len(r.jobs))
	for _, e := range r.jobs {
		e.mu.Lock()
		if e.last != nil {
			out = append(out, *e.last)
		}
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobName < out[j].JobName })
	return out
}

func (r *Runner) Totals() []metrics.JobSnapshot {
	return r.metrics.Snapshot()
}
