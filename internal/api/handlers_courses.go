// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// AuditCourse handles POST /courses/{courseID}/audit: audit one course now
// and store the result outside any batch.
func (h *Handler) AuditCourse(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	courseID, err := courseIDParam(chi.URLParam(r, "courseID"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	result, err := h.batches.RunCourse(r.Context(), courseID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, result, start)
}

// LatestCourseAudit handles GET /courses/{courseID}/audit.
func (h *Handler) LatestCourseAudit(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	courseID, err := courseIDParam(chi.URLParam(r, "courseID"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	result, err := h.batches.StandaloneResult(r.Context(), courseID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, result, start)
}

// RunAudits handles POST /audits/run. Per-course failures are reported in
// the outcomes; the request itself succeeds.
func (h *Handler) RunAudits(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req CourseIDsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	ids, err := req.ids()
	if err != nil {
		respondErr(w, r, err)
		return
	}

	outcomes, err := h.batches.RunMany(r.Context(), ids)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondList(w, outcomes, len(outcomes), start)
}

// CourseOutline handles GET /courses/{courseID}/outline. Outlines are cached
// for a minute; ?refresh=true bypasses the cache.
func (h *Handler) CourseOutline(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	courseID, err := courseIDParam(chi.URLParam(r, "courseID"))
	if err != nil {
		respondErr(w, r, err)
		return
	}

	key := strconv.FormatInt(courseID, 10)
	if r.URL.Query().Get("refresh") != "true" {
		if outline, ok := h.outlines.Get(key); ok {
			w.Header().Set("X-Cache", "HIT")
			respondList(w, outline, len(outline), start)
			return
		}
	}

	outline, err := h.canvas.Outline(r.Context(), courseID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	h.outlines.Add(key, outline)
	w.Header().Set("X-Cache", "MISS")
	respondList(w, outline, len(outline), start)
}
