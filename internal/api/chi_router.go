// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/animerec/internal/middleware"
)

// SetupChi builds the HTTP router.
func (h *Handler) SetupChi() http.Handler {
	mw := NewChiMiddleware(ChiMiddlewareConfigFromServer(h.cfg.Server))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(mw.CORS())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.RateLimit())
		r.Use(middleware.PrometheusMetrics)
		r.Use(h.latency.Middleware)

		// The websocket handshake must not carry the JSON headers.
		r.Get("/ws", h.WebSocket)

		r.Group(func(r chi.Router) {
			r.Use(APISecurityHeaders())
			r.Use(chimiddleware.Compress(5, "application/json"))

			r.Get("/predict", h.Predict)
			r.Get("/recommend/users/{userID}", h.Recommend)
			r.Get("/similar/items/{itemID}", h.SimilarItems)

			r.Post("/train", h.Train)
			r.Get("/jobs", h.ListJobs)
			r.Get("/jobs/{jobID}", h.GetJob)

			r.Route("/models", func(r chi.Router) {
				r.Get("/", h.ListModels)
				r.Put("/active", h.SelectModel)
				r.Get("/compare", h.CompareModels)
				r.Get("/{name}/history", h.ModelHistory)
			})

			r.Route("/ratings", func(r chi.Router) {
				r.Post("/", h.UpsertRatings)
				r.Get("/stats", h.RatingStats)
				r.Delete("/users/{userID}", h.DeleteUserRatings)
			})

			r.Get("/stats", h.Stats)
		})
	})

	return r
}
