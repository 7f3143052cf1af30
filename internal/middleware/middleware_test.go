// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/coursescope/internal/logging"
	"github.com/tomtom215/coursescope/internal/metrics"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		incoming   string
		correlates string
		keep       bool
	}{
		{"generated", "", "", false},
		{"upstream kept", "req-123", "corr-9", true},
		{"unsafe replaced", "bad id\nwith newline", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotRequestID, gotCorrelationID string
			h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotRequestID = logging.RequestIDFromContext(r.Context())
				gotCorrelationID = logging.CorrelationIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			if tt.correlates != "" {
				req.Header.Set(CorrelationIDHeader, tt.correlates)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if gotRequestID == "" || rec.Header().Get(RequestIDHeader) != gotRequestID {
				t.Errorf("request id %q, header %q", gotRequestID, rec.Header().Get(RequestIDHeader))
			}
			if tt.keep && gotRequestID != tt.incoming {
				t.Errorf("request id = %q, want %q", gotRequestID, tt.incoming)
			}
			if !tt.keep && gotRequestID == tt.incoming {
				t.Errorf("request id %q should have been replaced", gotRequestID)
			}
			if gotCorrelationID == "" {
				t.Error("correlation id missing")
			}
			if tt.correlates != "" && gotCorrelationID != tt.correlates {
				t.Errorf("correlation id = %q, want %q", gotCorrelationID, tt.correlates)
			}
		})
	}
}

func TestPrometheusMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics)
	r.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, "/items/{id}", "418")
	before := testutil.ToFloat64(counter)

	for _, path := range []string{"/items/1", "/items/2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("requests recorded under pattern = %v, want 2", got)
	}
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	t.Parallel()

	h := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/x", nil))
	if rec.Code != http.StatusCreated || rec.Body.String() != "ok" {
		t.Errorf("response = %d %q", rec.Code, rec.Body.String())
	}
}
