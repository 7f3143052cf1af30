// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/coursescope/internal/batch"
	"github.com/tomtom215/coursescope/internal/canvas"
	"github.com/tomtom215/coursescope/internal/logging"
	"github.com/tomtom215/coursescope/internal/models"
	"github.com/tomtom215/coursescope/internal/validation"
)

const maxBodyBytes = 1 << 20

// respondJSON writes the envelope. Responses describe live batch state, so
// they are never cached.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Debug().Err(err).Msg("failed to write JSON response")
	}
}

func respondSuccess(w http.ResponseWriter, status int, data interface{}, start time.Time) {
	respondJSON(w, status, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

func respondList(w http.ResponseWriter, data interface{}, count int, start time.Time) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
			Count:       count,
		},
	})
}

func respondError(w http.ResponseWriter, status int, apiErr *models.APIError) {
	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    apiErr,
	})
}

// respondErr maps a service error to its status code and error code.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status, apiErr := classify(err)
	event := logging.Ctx(r.Context()).Warn()
	if status >= http.StatusInternalServerError {
		event = logging.Ctx(r.Context()).Error()
	}
	event.Err(err).Str("code", apiErr.Code).Int("status", status).Msg("request failed")
	respondError(w, status, apiErr)
}

func classify(err error) (int, *models.APIError) {
	var (
		reqErr      *validation.RequestValidationError
		valErr      *models.ValidationError
		upstreamErr *canvas.UpstreamError
		persistErr  *models.PersistenceError
	)

	switch {
	case errors.As(err, &reqErr):
		v := reqErr.ToAPIError()
		return http.StatusBadRequest, &models.APIError{Code: v.Code, Message: v.Message, Details: v.Details}
	case errors.As(err, &valErr):
		apiErr := &models.APIError{Code: "VALIDATION_ERROR", Message: valErr.Message}
		if valErr.Field != "" {
			apiErr.Details = map[string]interface{}{"field": valErr.Field}
		}
		return http.StatusBadRequest, apiErr
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, &models.APIError{Code: "NOT_FOUND", Message: "resource not found"}
	case errors.As(err, &upstreamErr):
		return http.StatusBadGateway, &models.APIError{
			Code:    "UPSTREAM_ERROR",
			Message: "Canvas request failed",
			Details: map[string]interface{}{
				"status": upstreamErr.StatusCode,
				"url":    logging.RedactURL(upstreamErr.URL),
			},
		}
	case errors.As(err, &persistErr):
		return http.StatusInternalServerError, &models.APIError{
			Code:    "PERSISTENCE_ERROR",
			Message: "storage operation failed: " + persistErr.Op,
		}
	case errors.Is(err, batch.ErrPoolStopped):
		return http.StatusServiceUnavailable, &models.APIError{Code: "SERVICE_UNAVAILABLE", Message: "audit workers are shutting down"}
	default:
		return http.StatusInternalServerError, &models.APIError{Code: "INTERNAL_ERROR", Message: "internal server error"}
	}
}

// decodeJSON reads a size-limited JSON body into v and validates it.
func decodeJSON(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return &models.ValidationError{Field: "body", Message: "could not read request body"}
	}
	if len(body) > maxBodyBytes {
		return &models.ValidationError{Field: "body", Message: fmt.Sprintf("request body exceeds %d bytes", maxBodyBytes)}
	}
	if len(body) == 0 {
		return &models.ValidationError{Field: "body", Message: "request body is required"}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &models.ValidationError{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	if verr := validation.ValidateStruct(v); verr != nil {
		return verr
	}
	return nil
}

// courseIDParam parses the {courseID} path segment.
func courseIDParam(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &models.ValidationError{Field: "courseID", Message: fmt.Sprintf("%q is not a positive course id", logging.SanitizeValue(raw))}
	}
	return id, nil
}

// getIntParam reads an integer query parameter, falling back on absence or
// a parse failure.
func getIntParam(r *http.Request, key string, defaultValue int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return v
}
