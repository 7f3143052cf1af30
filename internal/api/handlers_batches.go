// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/coursescope/internal/validation"
)

// SubmitBatch handles POST /batches. The batch runs in the background; the
// response is the batch as created.
func (h *Handler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
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

	// Enqueueing outlives the request if the client disconnects.
	b, err := h.batches.Submit(context.WithoutCancel(r.Context()), ids)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/batches/"+b.ID)
	respondSuccess(w, http.StatusAccepted, b, start)
}

// ListBatches handles GET /batches.
func (h *Handler) ListBatches(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	limit := getIntParam(r, "limit", defaultListLimit)
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	batches, err := h.batches.ListBatches(r.Context(), limit)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondList(w, batches, len(batches), start)
}

// GetBatch handles GET /batches/{id}.
func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, ok := h.batchID(w, r)
	if !ok {
		return
	}
	b, err := h.batches.Batch(r.Context(), id)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, b, start)
}

// BatchProgress handles GET /batches/{id}/progress.
func (h *Handler) BatchProgress(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, ok := h.batchID(w, r)
	if !ok {
		return
	}
	p, err := h.batches.Progress(r.Context(), id)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, p, start)
}

// BatchResults handles GET /batches/{id}/results.
func (h *Handler) BatchResults(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, ok := h.batchID(w, r)
	if !ok {
		return
	}
	results, err := h.batches.Results(r.Context(), id)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondList(w, results, len(results), start)
}

// DeleteBatch handles DELETE /batches/{id}.
func (h *Handler) DeleteBatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, ok := h.batchID(w, r)
	if !ok {
		return
	}
	if err := h.batches.DeleteBatch(r.Context(), id); err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"deleted": id}, start)
}

func (h *Handler) batchID(w http.ResponseWriter, r *http.Request) (string, bool) {
	p := batchIDParam{ID: chi.URLParam(r, "id")}
	if verr := validation.ValidateStruct(&p); verr != nil {
		respondErr(w, r, verr)
		return "", false
	}
	return p.ID, true
}
