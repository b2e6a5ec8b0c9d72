// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

/*
Package middleware provides the HTTP middleware used by the API router.

Key Components:

  - RequestID: propagates or generates X-Request-ID and seeds the logging
    context with request and correlation IDs
  - AccessLog: one structured zerolog line per request
  - PrometheusMetrics: request counters, latency histograms and the
    in-flight gauge, labelled by chi route pattern
  - LatencyTracker: a sliding window of recent request latencies with
    per-route percentiles, served by the stats endpoint

All middleware has the func(http.Handler) http.Handler shape so it can be
passed straight to chi's Use and With:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog)
	r.Use(middleware.PrometheusMetrics)
	r.Use(tracker.Middleware)

Route patterns are used as metric labels instead of raw paths, so
/api/v1/recommend/users/42 and /api/v1/recommend/users/43 share one series.
*/
package middleware
