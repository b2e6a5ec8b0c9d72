// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

// Package websocket streams training job progress to browser clients.
//
// The Hub is a training.Sink fed by the event relay. Each client may
// restrict itself to one job with the job_id query parameter.
package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/animerec/internal/metrics"
	"github.com/tomtom215/animerec/internal/recommend/training"
)

// Message types for WebSocket communication
const (
	MessageTypeJobProgress = "training_progress"
	MessageTypePing        = "ping"
	MessageTypePong        = "pong"
)

// Message represents a WebSocket message
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub maintains the set of active clients and broadcasts job updates.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan training.Job
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	logger     zerolog.Logger
}

var _ training.Sink = (*Hub)(nil)

// NewHub creates a new Hub
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan training.Job, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     logger.With().Str("component", "websocket-hub").Logger(),
	}
}

// Serve runs the hub until ctx is canceled, then closes every client.
// Client lifecycle events are handled before broadcasts.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAllClients()
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.register:
			h.add(client)
			continue
		case client := <-h.unregister:
			h.remove(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.closeAllClients()
			return ctx.Err()
		case client := <-h.register:
			h.add(client)
		case client := <-h.unregister:
			h.remove(client)
		case job := <-h.broadcast:
			h.broadcastToClients(job)
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (h *Hub) String() string {
	return "websocket-hub"
}

// JobUpdated implements training.Sink. It never blocks; updates are dropped
// when the broadcast queue is full.
//
//nolint:gocritic // training.Sink passes jobs by value
func (h *Hub) JobUpdated(job training.Job) {
	select {
	case h.broadcast <- job:
	default:
		h.logger.Warn().Str("job_id", job.ID).Msg("broadcast channel full, dropping job update")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	n := len(h.clients)
	h.mu.Unlock()
	metrics.WSConnections.Set(float64(n))
	h.logger.Info().Int("total_clients", n).Str("job_filter", client.jobID).Msg("websocket client connected")
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.WSConnections.Set(float64(n))
	h.logger.Info().Int("total_clients", n).Msg("websocket client disconnected")
}

// sortedClientsLocked orders clients by id. Must be called with mu held.
func (h *Hub) sortedClientsLocked() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// broadcastToClients sends the job to every interested client. Clients
// whose send buffer is full are disconnected.
//
//nolint:gocritic // job copied once per broadcast
func (h *Hub) broadcastToClients(job training.Job) {
	h.mu.Lock()
	defer h.mu.Unlock()

	msg := Message{Type: MessageTypeJobProgress, Data: job}
	for _, client := range h.sortedClientsLocked() {
		if !client.wants(job.ID) {
			continue
		}
		select {
		case client.send <- msg:
			metrics.WSMessagesSent.Inc()
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
	metrics.WSConnections.Set(float64(len(h.clients)))
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.sortedClientsLocked() {
		close(client.send)
		delete(h.clients, client)
	}
	metrics.WSConnections.Set(0)
	h.logger.Info().Msg("closed all websocket clients during shutdown")
}
