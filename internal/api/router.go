// Package api implements the HTTP command/query surface over a
// roof.Controller (spec §6): status and health queries, configuration
// read/replace, motion commands, and a Server-Sent Events status feed.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the router for svc: RealIP so a proxied client
// address survives into logs, a request logger, and Recoverer so a
// handler panic during a motion command never takes the whole process
// down.
func NewRouter(svc *Service, log *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", svc.handleGetStatus)
		r.Get("/status/stream", svc.handleStatusStream)
		r.Get("/health", svc.handleHealth)
		r.Get("/config", svc.handleGetConfig)
		r.Put("/config", svc.handlePutConfig)
		r.Post("/roof/open", svc.handleOpen)
		r.Post("/roof/close", svc.handleClose)
		r.Post("/roof/stop", svc.handleStop)
		r.Post("/roof/clear-fault", svc.handleClearFault)
	})
	return r
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
			)
		})
	}
}
