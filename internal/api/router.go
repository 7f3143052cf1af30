// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/coursescope/internal/middleware"
	"github.com/tomtom215/coursescope/internal/models"
)

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a Router.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	return &Router{handler: handler, chiMiddleware: mw}
}

// SetupChi returns the root handler.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, &models.APIError{Code: "NOT_FOUND", Message: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, &models.APIError{Code: "METHOD_NOT_ALLOWED", Message: "method not allowed"})
	})

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(middleware.PrometheusMetrics)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(middleware.PrometheusMetrics)

		r.Route("/batches", func(r chi.Router) {
			r.Post("/", router.handler.SubmitBatch)
			r.Get("/", router.handler.ListBatches)
			r.Get("/{id}", router.handler.GetBatch)
			r.Delete("/{id}", router.handler.DeleteBatch)
			r.Get("/{id}/progress", router.handler.BatchProgress)
			r.Get("/{id}/results", router.handler.BatchResults)
		})

		r.Route("/courses/{courseID}", func(r chi.Router) {
			r.Post("/audit", router.handler.AuditCourse)
			r.Get("/audit", router.handler.LatestCourseAudit)
			r.Get("/outline", router.handler.CourseOutline)
		})

		r.Post("/audits/run", router.handler.RunAudits)

		r.Route("/debug", func(r chi.Router) {
			r.Get("/config", router.handler.DebugConfig)
			r.Get("/connection", router.handler.DebugConnection)
			r.Get("/courses/{courseID}", router.handler.DebugCourse)
		})

		r.Get("/ws", router.handler.WebSocket)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
