// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

/*
Package main is the entry point for the animerec server.

animerec trains collaborative filtering models (user and item KNN, neural
collaborative filtering and hybrids of them) on explicit user-item ratings
and serves rating predictions, top-N recommendations and similar items over
a JSON API.

# Application Architecture

The server runs under a Suture v4 supervisor tree:

	RootSupervisor ("animerec")
	├── DataSupervisor ("data-layer")
	│   ├── duckdb-checkpoint
	│   ├── badger-gc (when JOBS_DIR is set)
	│   └── retrain-scheduler (when RETRAIN_ENABLED or RETRAIN_ON_STARTUP)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── WebSocket Hub (training progress)
	│   └── Event Relay (bus to hub, optionally to NATS)
	└── APISupervisor ("api-layer")
	    └── HTTP Server

Component initialization order:

 1. Configuration: Koanf v2 with defaults, YAML file and environment
 2. Logging: zerolog with JSON or console output
 3. Database: DuckDB ratings table and model registry
 4. Artifacts and job records: gob files and Badger
 5. Serving: recommend.Service with stored models restored
 6. Training: orchestrator behind a circuit-broken rating source
 7. Events: Watermill bus, relay and WebSocket hub
 8. HTTP Server: Chi router with middleware stack
 9. Supervisor Tree

# Configuration

	Priority: Environment variables > Config file > Defaults

Core environment variables:

	HTTP_PORT=8090
	LOG_LEVEL=info               # trace, debug, info, warn, error
	LOG_FORMAT=json              # json or console
	DUCKDB_PATH=/data/animerec.duckdb
	MODEL_DIR=/data/models
	JOBS_DIR=/data/jobs          # empty keeps job records in memory
	SEED_DEMO_DATA=false
	RATING_MIN=1 RATING_MAX=10
	RETRAIN_ENABLED=false RETRAIN_INTERVAL=24h RETRAIN_MODELS=hybrid
	RETRAIN_ON_STARTUP=false

# Build Tags

	go build ./cmd/server              # Standard build
	go build -tags nats ./cmd/server   # Forward job events to NATS (NATS_URL)

# Signal Handling

On SIGINT or SIGTERM the supervisor tree is cancelled: the HTTP server
drains in-flight requests, WebSocket clients are closed, then the training
orchestrator, the event bus, Badger and DuckDB are closed in that order.
*/
package main
