package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sonixlabs/waveform-engine/internal/scheduler"
)

// server bundles the daemon's HTTP dependencies.
type server struct {
	scheduler *scheduler.Scheduler
	logger    *slog.Logger
}

// routes configures the router with all endpoints and middleware.
func (s *server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/waveforms", s.handleSubmit)
		r.Get("/waveforms/stream", s.handleStream)
		r.Delete("/tasks/{taskID}", s.handleCancel)
		r.Get("/stats", s.handleStats)
	})

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
