// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

/*
Package metrics registers the Prometheus collectors exported at /metrics.

Collectors are package-level and registered on the default registry through
promauto, so any package may record into them without wiring.

# Available Metrics

HTTP:
  - coursescope_api_requests_total (method, endpoint, status)
  - coursescope_api_request_duration_seconds (method, endpoint)
  - coursescope_api_requests_in_flight
  - coursescope_api_rate_limit_hits_total (endpoint)

Canvas upstream:
  - coursescope_canvas_requests_total (status)
  - coursescope_canvas_request_duration_seconds
  - coursescope_canvas_retries_total (reason)
  - coursescope_canvas_pages_total (collection)
  - coursescope_circuit_breaker_state (name): 0 closed, 1 half-open, 2 open
  - coursescope_circuit_breaker_transitions_total (name, from, to)

Audits and batches:
  - coursescope_audit_task_duration_seconds (outcome)
  - coursescope_audit_tasks_total (outcome)
  - coursescope_batches_submitted_total
  - coursescope_batches_completed_total (status)
  - coursescope_active_batches
  - coursescope_batch_jobs_queued
  - coursescope_workers_busy

Storage, events and WebSocket:
  - coursescope_store_operation_duration_seconds (backend, operation)
  - coursescope_store_errors_total (backend, operation)
  - coursescope_events_published_total (topic)
  - coursescope_events_publish_errors_total (topic)
  - coursescope_websocket_connections
  - coursescope_websocket_messages_sent_total
  - coursescope_websocket_errors_total (type)
*/
package metrics
