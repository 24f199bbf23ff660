package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"orderkeeper-be/internal/logger"
	"orderkeeper-be/internal/metrics"
	appmw "orderkeeper-be/internal/middleware"
	"orderkeeper-be/internal/scheduler"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type JobRunner interface {
	Names() []string
	Run(ctx context.Context, name string) (*scheduler.Stats, error)
	LastStats() []scheduler.Stats
	Totals() []metrics.JobSnapshot
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	Jobs    JobRunner
	DB      Pinger
	Webhook http.HandlerFunc
}

type JobsResponse struct {
	Jobs     []string              `json:"jobs"`
	LastRuns []scheduler.Stats     `json:"lastRuns"`
	Totals   []metrics.JobSnapshot `json:"totals"`
}

func NewRouter(h *Handler, adminSecret string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(logger.RequestIDMiddleware)
	r.Use(logger.LoggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(appmw.RateLimitMiddleware)

	r.Get("/healthz", h.health)
	r.Get("/jobs", h.listJobs)
	r.With(appmw.RequireAdmin(adminSecret)).Post("/jobs/{name}/run", h.runJob)

	if h.Webhook != nil {
		r.Post("/webhook/paystack", h.Webhook)
	}
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.PingContext(ctx); err != nil {
			logger.FromCtx(r.Context()).Error("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) listJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, JobsResponse{
		Jobs:     h.Jobs.Names(),
		LastRuns: h.Jobs.LastStats(),
		Totals:   h.Jobs.Totals(),
	})
}

// runJob runs the job synchronously. The run is detached from the request's
// cancellation so a client disconnect does not abort a batch halfway.
func (h *Handler) runJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	log := logger.FromCtx(r.Context()).With(zap.String("layer", "httpapi"), zap.String("job", name))

	uid, _ := appmw.UserIDFromContext(r.Context())
	log.Info("manual job run requested", zap.Int64("user_id", uid))

	stats, err := h.Jobs.Run(context.WithoutCancel(r.Context()), name)
	switch {
	case errors.Is(err, scheduler.ErrUnknownJob):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, scheduler.ErrJobRunning):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error(), "stats": stats})
	default:
		writeJSON(w, http.StatusOK, stats)
	}
}
