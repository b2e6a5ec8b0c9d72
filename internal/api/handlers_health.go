// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/animerec/internal/middleware"
	"github.com/tomtom215/animerec/internal/recommend"
)

// StatsResponse is the body of GET /api/v1/stats.
type StatsResponse struct {
	Serving       recommend.ServiceStats  `json:"serving"`
	Routes        []middleware.RouteStats `json:"routes"`
	RunningJob    string                  `json:"running_job,omitempty"`
	WSClients     int                     `json:"websocket_clients"`
	UptimeSeconds float64                 `json:"uptime_seconds"`
}

// HealthLive handles liveness probe requests.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady reports 200 once the rating store answers. Readiness does not
// require a loaded model.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	dbConnected := h.db != nil && h.db.Ping(r.Context()) == nil
	active := h.service.Active()

	data := map[string]interface{}{
		"database_connected": dbConnected,
		"active_model":       active,
		"model_loaded":       active != "",
		"training_running":   h.trainer.Running() != "",
		"uptime":             time.Since(h.startTime).Seconds(),
	}
	if !dbConnected {
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "not ready", data)
		return
	}
	rw.Success(data)
}

// Stats handles GET /api/v1/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		Serving:       h.service.Stats(),
		Routes:        h.latency.Stats(),
		RunningJob:    h.trainer.Running(),
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}
	if h.hub != nil {
		resp.WSClients = h.hub.ClientCount()
	}
	NewResponseWriter(w, r).Success(resp)
}
