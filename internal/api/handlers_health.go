// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/coursescope/internal/models"
)

const readyTimeout = 2 * time.Second

// HealthLive handles GET /health/live. It only proves the process serves
// HTTP.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	respondSuccess(w, http.StatusOK, h.health("alive", ""), start)
}

// HealthReady handles GET /health/ready. The store must answer a ping.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := h.batches.Ping(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, &models.APIError{
			Code:    "SERVICE_UNAVAILABLE",
			Message: "store is not reachable",
			Details: map[string]interface{}{"store": err.Error()},
		})
		return
	}
	respondSuccess(w, http.StatusOK, h.health("ready", "ok"), start)
}

func (h *Handler) health(status, store string) Health {
	out := Health{
		Status:        status,
		Store:         store,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}
	if h.wsHub != nil {
		out.WSClients = h.wsHub.GetClientCount()
	}
	return out
}
