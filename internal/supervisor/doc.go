// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

/*
Package supervisor provides process supervision for animerec using suture v4.

Services are grouped into three layers so a failing component restarts
without taking its neighbours down:

	RootSupervisor ("animerec")
	├── DataSupervisor ("data-layer")
	│   ├── duckdb-checkpoint     periodic CHECKPOINT of the rating store
	│   ├── badger-gc             value log GC of the job store (durable jobs only)
	│   └── retrain-scheduler     scheduled and startup training
	├── MessagingSupervisor ("messaging-layer")
	│   ├── websocket-hub         fan-out of job progress to browsers
	│   └── event-relay           bus subscriber feeding the hub and NATS
	└── APISupervisor ("api-layer")
	    └── http-server

Supervisor lifecycle events (service panics, backoff, restarts) are logged
through sutureslog, which receives an slog.Logger backed by the global
zerolog logger.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddAPIService(services.NewHTTPServerService(srv, 30*time.Second, logger))
	errCh := tree.ServeBackground(ctx)
*/
package supervisor
