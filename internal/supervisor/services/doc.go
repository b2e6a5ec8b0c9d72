// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

/*
Package services provides suture.Service wrappers for animerec components.

Each wrapper implements suture's context-driven Serve method and names
itself through fmt.Stringer for supervisor logs:

  - HTTPServerService: ListenAndServe with graceful Shutdown on cancel
  - RetrainService: submits training jobs on startup and on an interval
  - MaintenanceService: runs a periodic task such as a DuckDB checkpoint or
    Badger value log GC

The websocket hub and the event relay implement suture.Service themselves
and are added to the tree directly.
*/
package services
