// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/animerec/internal/config"
	"github.com/tomtom215/animerec/internal/database"
	"github.com/tomtom215/animerec/internal/logging"
	"github.com/tomtom215/animerec/internal/middleware"
	"github.com/tomtom215/animerec/internal/recommend"
	"github.com/tomtom215/animerec/internal/recommend/training"
	ws "github.com/tomtom215/animerec/internal/websocket"
)

// Deps are the collaborators of the HTTP handlers. Service and Trainer are
// required. Without DB the ratings, registry and readiness checks report
// 503. Without Hub the websocket endpoint reports 503.
type Deps struct {
	Config  *config.Config
	Service *recommend.Service
	Trainer *training.Orchestrator
	DB      *database.DB
	Hub     *ws.Hub
	Latency *middleware.LatencyTracker
}

// Handler serves the API endpoints.
type Handler struct {
	cfg       *config.Config
	service   *recommend.Service
	trainer   *training.Orchestrator
	db        *database.DB
	hub       *ws.Hub
	latency   *middleware.LatencyTracker
	startTime time.Time
}

// NewHandler validates deps and builds a Handler.
func NewHandler(deps Deps) (*Handler, error) {
	if deps.Service == nil || deps.Trainer == nil {
		return nil, errors.New("api: service and trainer are required")
	}
	cfg := deps.Config
	if cfg == nil {
		cfg = config.Default()
	}
	latency := deps.Latency
	if latency == nil {
		latency = middleware.NewLatencyTracker(1000, middleware.DefaultSlowThreshold)
	}
	return &Handler{
		cfg:       cfg,
		service:   deps.Service,
		trainer:   deps.Trainer,
		db:        deps.DB,
		hub:       deps.Hub,
		latency:   latency,
		startTime: time.Now(),
	}, nil
}

// requireDB writes 503 and returns false when no database is configured.
func (h *Handler) requireDB(rw *ResponseWriter) bool {
	if h.db == nil {
		rw.ServiceUnavailable(ErrCodeServiceUnavailable, "rating store unavailable")
		return false
	}
	return true
}

// getUpgrader creates a WebSocket upgrader with origin checking and timeouts.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      h.checkWebSocketOrigin,
	}
}

// checkWebSocketOrigin admits browsers whose Origin is in the CORS list.
// Requests without an Origin header are rejected.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Ctx(r.Context()).Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}
	for _, allowed := range h.cfg.Server.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Ctx(r.Context()).Warn().Str("origin", sanitizeLogValue(origin)).
		Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// WebSocket upgrades the connection and streams training progress. An
// optional job_id query parameter limits updates to one job.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		NewResponseWriter(w, r).ServiceUnavailable(ErrCodeServiceUnavailable, "websocket service unavailable")
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}
	ws.NewClient(h.hub, conn, r.URL.Query().Get("job_id")).Start()
}

// sanitizeLogValue strips control characters and truncates s for logging.
func sanitizeLogValue(s string) string {
	const maxLen = 200
	out := make([]rune, 0, len(s))
	for _, c := range s {
		if c < 0x20 || c == 0x7f {
			continue
		}
		out = append(out, c)
		if len(out) == maxLen {
			break
		}
	}
	return string(out)
}
