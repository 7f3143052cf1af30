// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/coursescope/internal/logging"
)

// DebugConfig handles GET /debug/config. The token itself is never returned.
func (h *Handler) DebugConfig(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	out := DebugConfig{
		BaseURL:  logging.RedactURL(h.canvas.BaseURL()),
		LogLevel: logging.GetLevel().String(),
	}
	if h.config != nil {
		out.TokenSet = h.config.Canvas.Token != ""
		out.Backend = h.config.Database.Backend
	}
	respondSuccess(w, http.StatusOK, out, start)
}

// DebugConnection handles GET /debug/connection. A failed connection is a
// successful diagnostic, so the status is always 200.
func (h *Handler) DebugConnection(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	report := h.canvas.TestConnection(r.Context())
	report.URL = logging.RedactURL(report.URL)
	respondSuccess(w, http.StatusOK, report, start)
}

// DebugCourse handles GET /debug/courses/{courseID}.
func (h *Handler) DebugCourse(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	courseID, err := courseIDParam(chi.URLParam(r, "courseID"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	probe := h.canvas.ProbeCourse(r.Context(), courseID)
	for i := range probe.Endpoints {
		probe.Endpoints[i].URL = logging.RedactURL(probe.Endpoints[i].URL)
	}
	respondSuccess(w, http.StatusOK, probe, start)
}
