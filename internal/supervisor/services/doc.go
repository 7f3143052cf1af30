// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

/*
Package services adapts components to suture.Service.

Each wrapper implements Serve(ctx) error and String():

  - HTTPServerService: binds its listener, serves, and drains with Shutdown on cancel
  - WebSocketHubService: websocket.Hub.RunWithContext
  - PoolService: the audit worker pool; a pool that has drained is never
    restarted
  - BridgeService: the event bus to websocket bridge
*/
package services
