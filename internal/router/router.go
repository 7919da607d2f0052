package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"org-lifecycle/internal/config"
	"org-lifecycle/internal/handler"
	"org-lifecycle/internal/middleware"
)

type Handlers struct {
	Transfer      *handler.TransferHandler
	DeleteRequest *handler.DeleteRequestHandler
	Cleanup       *handler.CleanupHandler
	Docs          *handler.DocsHandler
}

// HealthFunc reports whether the database answers.
type HealthFunc func(ctx context.Context) error

// New wires the HTTP surface. gatherer may be nil to leave /metrics off.
func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers, health HealthFunc, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AdminRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if health != nil {
			if err := health(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("database unavailable"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/openapi.yaml", h.Docs.OpenAPI)
	r.Get("/swagger", h.Docs.SwaggerUI)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(authMiddleware.RequireAuth)

		api.Group(func(timed chi.Router) {
			timed.Use(middleware.Timeout(cfg.RequestTimeout))

			timed.Route("/transfers", func(tr chi.Router) {
				tr.Post("/", h.Transfer.Create)
				tr.Get("/pending", h.Transfer.ListPending)
				tr.Get("/{id}", h.Transfer.Get)
				tr.Post("/{id}/approve", h.Transfer.Approve)
				tr.Post("/{id}/deny", h.Transfer.Deny)
			})

			timed.Route("/delete-requests", func(dr chi.Router) {
				dr.Post("/", h.DeleteRequest.Create)
				dr.Get("/pending", h.DeleteRequest.ListPending)
				dr.Get("/latest", h.DeleteRequest.Latest)
				dr.Get("/{id}", h.DeleteRequest.Get)
				dr.Post("/{id}/approve", h.DeleteRequest.Approve)
				dr.Post("/{id}/deny", h.DeleteRequest.Deny)
			})

			timed.Get("/admin/cleanup/tasks", h.Cleanup.ListTasks)
		})

		// A manual run may outlast REQUEST_TIMEOUT; it is bounded by the
		// server write timeout instead.
		api.Post("/admin/cleanup/run", h.Cleanup.Run)
	})

	return r
}
