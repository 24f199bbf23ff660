package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type Counter struct {
	value uint64
}

func (c *Counter) Inc() {
	atomic.AddUint64(&c.value, 1)
}

func (c *Counter) Add(n uint64) {
	atomic.AddUint64(&c.value, n)
}

func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.value)
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Started() time.Time {
	return t.start
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// JobCounters accumulates totals for one job across runs.
type JobCounters struct {
	Runs      Counter
	Failures  Counter
	Checked   Counter
	Processed Counter
	Failed    Counter
}

// JobSnapshot is a point-in-time copy of JobCounters.
type JobSnapshot struct {
	Job              string `json:"job"`
	Runs             uint64 `json:"runs"`
	Failures         uint64 `json:"failures"`
	RecordsChecked   uint64 `json:"recordsChecked"`
	RecordsProcessed uint64 `json:"recordsProcessed"`
	RecordsFailed    uint64 `json:"recordsFailed"`
}

type Registry struct {
	mu   sync.Mutex
	jobs map[string]*JobCounters
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*JobCounters)}
}

// Job returns the counters for name, creating them on first use.
func (r *Registry) Job(name string) *JobCounters {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.jobs[name]
	if !ok {
		c = &JobCounters{}
		r.jobs[name] = c
	}
	return c
}

// Snapshot returns the totals of every job, sorted by name.
func (r *Registry) Snapshot() []JobSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]JobSnapshot, 0, len(r.jobs))
	for name, c := range r.jobs {
		out = append(out, JobSnapshot{
			Job:              name,
			Runs:             c.Runs.Load(),
			Failures:         c.Failures.Load(),
			RecordsChecked:   c.Checked.Load(),
			RecordsProcessed: c.Processed.Load(),
			RecordsFailed:    c.Failed.Load(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Job < out[j].Job })
	return out
}
