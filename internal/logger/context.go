package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	jobNameKey   ctxKey = "job"
	runIDKey     ctxKey = "run_id"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// WithJobRun tags ctx with the job name and the id of the current run.
func WithJobRun(ctx context.Context, job, runID string) context.Context {
	ctx = context.WithValue(ctx, jobNameKey, job)
	return context.WithValue(ctx, runIDKey, runID)
}

func JobRunFrom(ctx context.Context) (job, runID string) {
	job, _ = ctx.Value(jobNameKey).(string)
	runID, _ = ctx.Value(runIDKey).(string)
	return job, runID
}

// FromCtx returns logger with request_id, job and run_id added when present.
func FromCtx(ctx context.Context) *zap.Logger {
	l := L()
	if reqID := RequestIDFrom(ctx); reqID != "" {
		l = l.With(zap.String("request_id", reqID))
	}
	if job, runID := JobRunFrom(ctx); job != "" {
		l = l.With(zap.String("job", job), zap.String("run_id", runID))
	}
	return l
}
