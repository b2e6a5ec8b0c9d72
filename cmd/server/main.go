// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/tomtom215/animerec/internal/api"
	"github.com/tomtom215/animerec/internal/config"
	"github.com/tomtom215/animerec/internal/database"
	"github.com/tomtom215/animerec/internal/logging"
	"github.com/tomtom215/animerec/internal/metrics"
	"github.com/tomtom215/animerec/internal/supervisor"
	"github.com/tomtom215/animerec/internal/supervisor/services"
	ws "github.com/tomtom215/animerec/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

//nolint:gocyclo // sequential setup steps
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(cfg.Logging.ToLogging())
	metrics.SetAppInfo(version, runtime.Version())

	logging.Info().
		Str("version", version).
		Str("db_path", cfg.Database.Path).
		Str("model_dir", cfg.Storage.ModelDir).
		Msg("Starting animerec with supervisor tree")

	db, err := database.New(&cfg.Database, logging.WithComponent("database"))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	if cfg.Database.SeedDemoData {
		n, err := db.SeedDemoData(context.Background(), cfg.Recommend.Scale)
		if err != nil {
			logging.Error().Err(err).Msg("Failed to seed demo data")
		} else if n > 0 {
			logging.Info().Int("ratings", n).Msg("Seeded demo ratings")
		}
	}

	rec, err := initRecommend(context.Background(), cfg, db)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to initialize recommendation components")
		return
	}
	defer rec.Close()

	hub := ws.NewHub(logging.WithComponent("websocket"))
	relay, closeEvents := initEvents(cfg, rec.Bus, hub)
	defer closeEvents()

	handler, err := api.NewHandler(api.Deps{
		Config:  cfg,
		Service: rec.Service,
		Trainer: rec.Orchestrator,
		DB:      db,
		Hub:     hub,
	})
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create API handler")
		return
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler.SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       2 * time.Minute,
	}

	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), treeCfg)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create supervisor tree")
		return
	}

	tree.AddDataService(services.NewMaintenanceService("duckdb-checkpoint", 10*time.Minute,
		db.Checkpoint, logging.Logger()))
	if rec.Badger != nil && cfg.Storage.JobsDir != "" {
		tree.AddDataService(services.NewMaintenanceService("badger-gc", 15*time.Minute,
			services.BadgerValueLogGC(rec.Badger, 0.5), logging.Logger()))
	}
	if cfg.Scheduler.Enabled || cfg.Scheduler.TrainOnStartup {
		retrain := services.RetrainConfig{
			TrainOnStartup: cfg.Scheduler.TrainOnStartup,
			Models:         cfg.Scheduler.Models,
			JobTimeout:     cfg.Training.Timeout,
		}
		if cfg.Scheduler.Enabled {
			retrain.Interval = cfg.Scheduler.Interval
		}
		tree.AddDataService(services.NewRetrainService(rec.Orchestrator, retrain, logging.Logger()))
	}

	tree.AddMessagingService(hub)
	tree.AddMessagingService(relay)

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout, logging.Logger()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	var treeErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Received shutdown signal, waiting for supervisor to finish...")
		treeErr = <-errCh
	case treeErr = <-errCh:
	}
	stop()
	if treeErr != nil && !errors.Is(treeErr, context.Canceled) {
		logging.Error().Err(treeErr).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
