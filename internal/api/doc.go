// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

/*
Package api exposes the recommendation engine over HTTP.

The router is built on go-chi/chi/v5. Global middleware assigns request IDs,
resolves the client address, recovers panics and applies CORS (go-chi/cors).
Every /api/v1 route additionally passes through rate limiting
(go-chi/httprate), security headers, Prometheus instrumentation and the
latency tracker.

Endpoints:

	GET    /health/live                         liveness probe
	GET    /health/ready                        readiness probe (database ping)
	GET    /metrics                             Prometheus exposition

	GET    /api/v1/predict?user_id=&item_id=    single rating prediction
	GET    /api/v1/recommend/users/{userID}     top-N list for a user
	GET    /api/v1/similar/items/{itemID}       item neighbours
	POST   /api/v1/train                        start a training job (202)
	GET    /api/v1/jobs                         recent jobs, newest first
	GET    /api/v1/jobs/{jobID}                 job status
	GET    /api/v1/models                       served and registered models
	PUT    /api/v1/models/active                select the serving model
	GET    /api/v1/models/compare               best model per metric
	GET    /api/v1/models/{name}/history        registered versions
	POST   /api/v1/ratings                      upsert ratings
	GET    /api/v1/ratings/stats                rating store statistics
	DELETE /api/v1/ratings/users/{userID}       forget a user's ratings
	GET    /api/v1/stats                        serving and latency statistics
	GET    /api/v1/ws?job_id=                   live training progress

Responses share one envelope:

	{"success": true, "data": {...}, "meta": {"request_id": "...", ...}}
	{"success": false, "error": {"code": "NOT_FOUND", "message": "..."}}

Domain errors are mapped to status codes in one place (writeDomainError), so
handlers only decide what to call.
*/
package api
