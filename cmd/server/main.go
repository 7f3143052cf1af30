// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/tomtom215/coursescope/internal/api"
	"github.com/tomtom215/coursescope/internal/bootstrap"
	"github.com/tomtom215/coursescope/internal/config"
	"github.com/tomtom215/coursescope/internal/events"
	"github.com/tomtom215/coursescope/internal/logging"
	"github.com/tomtom215/coursescope/internal/metrics"
	"github.com/tomtom215/coursescope/internal/supervisor"
	"github.com/tomtom215/coursescope/internal/supervisor/services"
	ws "github.com/tomtom215/coursescope/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	envFile := bootstrap.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	metrics.SetAppInfo(version, runtime.Version())

	logging.Info().
		Str("version", version).
		Str("env_file", envFile).
		Str("canvas_url", logging.RedactURL(cfg.Canvas.BaseURL)).
		Str("backend", cfg.Database.Backend).
		Int("workers", cfg.Audit.Workers).
		Msg("Starting CourseScope")

	engine, err := bootstrap.NewEngine(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize audit engine")
	}

	if err := run(cfg, engine); err != nil {
		logging.Error().Err(err).Msg("Server stopped with error")
	}

	if err := engine.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing audit engine")
	}
	logging.Info().Msg("CourseScope stopped")
}

func run(cfg *config.Config, engine *bootstrap.Engine) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  shutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	hub := ws.NewHub(cfg.Events.Buffer)
	bridge := events.NewBridge(engine.Events.Subscriber(), hub)

	handler := api.NewHandler(engine.Orchestrator, engine.Canvas, hub, cfg)
	router := api.NewRouter(handler, api.NewChiMiddleware(api.MiddlewareConfigFrom(cfg.Security)))

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		// Synchronous audits can take longer than a read.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	tree.MustAdd(supervisor.LayerData, services.NewPoolService(engine.Orchestrator.Pool()))
	tree.MustAdd(supervisor.LayerMessaging, services.NewWebSocketHubService(hub))
	tree.MustAdd(supervisor.LayerMessaging, services.NewBridgeService(bridge))
	tree.MustAdd(supervisor.LayerAPI, services.NewHTTPServerService(server, server.Addr, shutdownTimeout))

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	err = tree.Serve(ctx)

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
