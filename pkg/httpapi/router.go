package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/sendlater/sendlater/pkg/queue"
	"github.com/sendlater/sendlater/pkg/scheduler"
)

// SchedulerService is the slice of pkg/scheduler the handlers call.
type SchedulerService interface {
	ScheduleOne(ctx context.Context, p scheduler.ScheduleParams) (uuid.UUID, error)
	ScheduleBulk(ctx context.Context, p scheduler.BulkParams) ([]uuid.UUID, error)
	Cancel(ctx context.Context, id uuid.UUID) error
}

// QueueStats reports queue depth for the health endpoint.
type QueueStats interface {
	Counts(ctx context.Context) (queue.Counts, error)
}

// Deps collects everything the API needs. Health check funcs may be nil,
// in which case the corresponding probe is skipped.
type Deps struct {
	Scheduler  SchedulerService
	Emails     scheduler.EmailStore
	Senders    scheduler.SenderStore
	Queue      QueueStats
	PGCheck    func(context.Context) error
	RedisCheck func(context.Context) error
	Logger     *slog.Logger
}

// NewRouter builds the HTTP handler for the service.
func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	h := &handlers{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Route("/emails", func(r chi.Router) {
			r.Post("/schedule", h.scheduleEmail)
			r.Post("/schedule/bulk", h.scheduleBulk)
			r.Get("/scheduled", h.listScheduled)
			r.Get("/sent", h.listSent)
			r.Get("/{id}", h.getEmail)
			r.Delete("/{id}", h.cancelEmail)
		})
		r.Route("/senders", func(r chi.Router) {
			r.Post("/", h.createSender)
			r.Get("/", h.listSenders)
			r.Get("/{id}", h.getSender)
			r.Patch("/{id}", h.updateSender)
			r.Delete("/{id}", h.deleteSender)
		})
		r.Get("/health", h.health)
	})

	return r
}

type handlers struct {
	deps Deps
}
