package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Silicom-11/synaplink-engine/internal/observability"
	"github.com/Silicom-11/synaplink-engine/internal/ratelimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *ratelimit.RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(MetricsMiddleware)
	r.Use(RateLimitMiddleware(rl))
	r.Use(IdempotencyKeyMiddleware)

	r.Get("/v1/venues/{venueID}/cabins", h.ListCabins)
	r.Post("/v1/holds", h.CreateHold)
	r.Post("/v1/holds/{id}/confirm", h.ConfirmHold)
	r.Post("/v1/reservations/{id}/cancel", h.CancelReservation)
	r.Get("/v1/users/{userID}/reservations", h.ListReservations)
	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
