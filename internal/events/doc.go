// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

// Package events carries batch lifecycle events on Watermill.
//
// Publisher implements batch.EventPublisher. Every event goes to an
// in-process GoChannel; when events.nats_url is configured the same message
// is also published to core NATS for consumers outside the process. Topics:
//
//	audit.batch.progress
//	audit.batch.finished
//
// Bridge is a supervised service that subscribes to the in-process topics
// and hands each event to the websocket hub.
//
// Publishing never fails the caller: errors are logged and counted.
package events
