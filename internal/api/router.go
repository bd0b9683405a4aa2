package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rewired-gh/iskwatch/internal/api/middleware"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestLogger(s.config.Verbose))
	r.Use(middleware.PrometheusMiddleware)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.NoStore)

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", s.listAlerts)
			r.Post("/", s.createAlert)
			r.Delete("/", s.clearAlerts)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getAlert)
				r.Patch("/", s.updateAlert)
				r.Delete("/", s.removeAlert)
				r.Post("/toggle", s.toggleAlert)
				r.Post("/check", s.checkAlert)
			})
		})

		r.Post("/check", s.checkAll)

		r.Route("/monitor", func(r chi.Router) {
			r.Post("/start", s.startMonitor)
			r.Post("/stop", s.stopMonitor)
		})

		r.Get("/history", s.listHistory)
		r.Delete("/history", s.clearHistory)

		r.Route("/triggered", func(r chi.Router) {
			r.Get("/", s.listTriggered)
			r.Delete("/", s.dismissTriggered)
			r.Delete("/{id}", s.dismissOne)
		})

		r.Get("/settings", s.getSettings)
		r.Patch("/settings", s.updateSettings)

		r.Get("/notifications/permission", s.getPermission)
		r.Post("/notifications/permission", s.requestPermission)

		r.Get("/stats", s.stats)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		OK(w, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		JSONError(w, ErrNotFound)
	})

	return r
}
