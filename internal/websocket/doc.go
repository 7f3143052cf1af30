// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

// Package websocket pushes batch progress to browser clients.
//
// A Hub owns the set of connected clients. Each Client runs a read pump and a
// write pump on a gorilla/websocket connection. Batch lifecycle events reach
// the hub through BroadcastBatchEvent and are delivered to every client whose
// subscription matches the event's batch.
//
// # Messages
//
// Server to client:
//
//	{"type":"batch_progress","data":{...BatchEvent}}
//	{"type":"batch_finished","data":{...BatchEvent}}
//	{"type":"pong","data":null}
//
// Client to server:
//
//	{"type":"subscribe","data":{"batch_id":"..."}}
//	{"type":"unsubscribe"}
//	{"type":"ping"}
//
// A client without a subscription receives every batch's events.
//
// # Determinism
//
// The hub loop gives shutdown priority over client lifecycle events, and
// lifecycle events priority over broadcasts. Broadcast fan-out visits
// clients in id order.
package websocket
