// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

// Package bootstrap wires the audit engine for the binaries: .env loading,
// store selection and the canvas, events and orchestrator graph.
package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/tomtom215/coursescope/internal/audit"
	"github.com/tomtom215/coursescope/internal/batch"
	"github.com/tomtom215/coursescope/internal/canvas"
	"github.com/tomtom215/coursescope/internal/config"
	"github.com/tomtom215/coursescope/internal/database"
	"github.com/tomtom215/coursescope/internal/events"
	"github.com/tomtom215/coursescope/internal/kvstore"
	"github.com/tomtom215/coursescope/internal/logging"
)

// maxDotEnvDepth bounds the search for .env upwards from the working
// directory.
const maxDotEnvDepth = 5

// LoadDotEnv loads the nearest .env file into the environment. Variables
// already set win. It returns the path loaded, or "" if none was found.
func LoadDotEnv() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for i := 0; i < maxDotEnvDepth; i++ {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				logging.Warn().Err(err).Str("path", envPath).Msg("could not load .env")
				return ""
			}
			return envPath
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
	return ""
}

// OpenStore opens the batch store selected by cfg.Backend.
func OpenStore(cfg *config.DatabaseConfig) (batch.Store, error) {
	switch cfg.Backend {
	case config.BackendDuckDB:
		return database.New(cfg)
	case config.BackendBadger:
		return kvstore.Open(cfg.BadgerPath)
	default:
		return nil, fmt.Errorf("unknown database backend %q", cfg.Backend)
	}
}

// Engine is the wired audit engine.
type Engine struct {
	Canvas       *canvas.Client
	Store        batch.Store
	Events       *events.Publisher
	Orchestrator *batch.Orchestrator
}

// NewEngine builds the Canvas client, store, event publisher and
// orchestrator. A *models.ConfigurationError from the Canvas settings is
// returned unwrapped so callers can treat it as fatal.
func NewEngine(cfg *config.Config) (*Engine, error) {
	client, err := canvas.NewClient(&cfg.Canvas)
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	publisher, err := events.NewPublisher(cfg.Events)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("create event publisher: %w", err)
	}

	aggregator := audit.NewAggregator(client, cfg.Audit.CollectionParallelism)
	orchestrator := batch.NewOrchestrator(store, aggregator, cfg.Audit, batch.WithPublisher(publisher))

	return &Engine{
		Canvas:       client,
		Store:        store,
		Events:       publisher,
		Orchestrator: orchestrator,
	}, nil
}

// Close releases the publisher and the store. Call it after the worker pool
// has stopped.
func (e *Engine) Close() error {
	return errors.Join(e.Events.Close(), e.Store.Close())
}
