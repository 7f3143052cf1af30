// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

/*
Package supervisor runs the long-lived components under a suture v4 tree.

	coursescope (root)
	├── data-layer       audit worker pool
	├── messaging-layer  websocket hub, event bridge
	└── api-layer        HTTP server

A crashing service is restarted by its layer supervisor with suture's
failure backoff. Events from every layer are logged through sutureslog on
the zerolog slog adapter.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.MustAdd(supervisor.LayerData, services.NewPoolService(orchestrator.Pool()))
	tree.MustAdd(supervisor.LayerMessaging, services.NewWebSocketHubService(hub))
	tree.MustAdd(supervisor.LayerMessaging, services.NewBridgeService(bridge))
	tree.MustAdd(supervisor.LayerAPI, services.NewHTTPServerService(server, server.Addr, 10*time.Second))
	err = tree.Serve(ctx)
*/
package supervisor
