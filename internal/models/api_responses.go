// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package models

import (
	"time"
)

// APIResponse is the envelope returned by every HTTP endpoint.
//
// Status is "success" or "error". Error is populated only on failure.
//
//	{
//	  "status": "success",
//	  "data": {"processed": 3, "total": 10, "percent": 30, "status": "running"},
//	  "metadata": {"timestamp": "2026-03-01T12:00:00Z", "query_time_ms": 2}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response timing. Count is set on list responses.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Count       int       `json:"count,omitempty"`
}

// APIError is the machine-readable error body. Code is one of
// VALIDATION_ERROR, NOT_FOUND, METHOD_NOT_ALLOWED, RATE_LIMITED,
// UPSTREAM_ERROR, PERSISTENCE_ERROR, SERVICE_UNAVAILABLE or INTERNAL_ERROR.
// Details carries the upstream status and redacted url for UPSTREAM_ERROR
// and the offending field for VALIDATION_ERROR.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
