// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

/*
Package api exposes the audit engine over HTTP using the chi router.

Routes (all under /api/v1 except /metrics):

	GET    /health/live                  liveness
	GET    /health/ready                 readiness, pings the store
	POST   /batches                      submit {"course_ids":[...]} or {"raw":"1, 2 3"}
	GET    /batches                      list, ?limit= (default 20, max 100)
	GET    /batches/{id}                 batch snapshot
	GET    /batches/{id}/progress        processed/total/percent/status
	GET    /batches/{id}/results         results ordered by course id
	DELETE /batches/{id}                 delete a finished batch and its results
	POST   /courses/{courseID}/audit     synchronous standalone audit
	GET    /courses/{courseID}/audit     latest standalone result
	GET    /courses/{courseID}/outline   modules with their items
	POST   /audits/run                   synchronous multi-course run
	GET    /debug/config                 Canvas base URL, token presence, log level
	GET    /debug/connection             Canvas connection test
	GET    /debug/courses/{courseID}     per-endpoint probe
	GET    /ws                           websocket progress stream
	GET    /metrics                      Prometheus

Every JSON response uses the models.APIResponse envelope. Errors are mapped
to status codes in respondErr:

	*models.ValidationError, *validation.RequestValidationError  400 VALIDATION_ERROR
	models.ErrNotFound                                           404 NOT_FOUND
	*canvas.UpstreamError                                        502 UPSTREAM_ERROR
	*models.PersistenceError                                     500 PERSISTENCE_ERROR
	batch.ErrPoolStopped                                         503 SERVICE_UNAVAILABLE
	anything else                                                500 INTERNAL_ERROR

Middleware order: request id, real IP, request logging, panic recovery,
CORS, then per-group rate limiting and Prometheus metrics.
*/
package api
