package scheduler

import (
	"context"
	"time"
)

// Job is one batch operation run on an interval or on demand.
type Job interface {
	Name() string
	Run(ctx context.Context) (*Stats, error)
}

// Stats describes a single run.
type Stats struct {
	JobName          string    `json:"jobName"`
	RecordsChecked   int       `json:"recordsChecked"`
	RecordsProcessed int       `json:"recordsProcessed"`
	RecordsFailed    int       `json:"recordsFailed"`
	DurationMs       int64     `json:"durationMs"`
	StartedAt        time.Time `json:"startedAt"`
	Error            string    `json:"error,omitempty"`
}
