// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package main

import (
	"github.com/tomtom215/animerec/internal/config"
	"github.com/tomtom215/animerec/internal/events"
	"github.com/tomtom215/animerec/internal/logging"
	ws "github.com/tomtom215/animerec/internal/websocket"
)

// initEvents creates the relay that fans job events out to WebSocket
// clients and, in nats builds with NATS_URL set, to a NATS subject. The
// returned func closes the NATS publisher.
func initEvents(cfg *config.Config, bus *events.Bus, hub *ws.Hub) (*events.Relay, func()) {
	logger := logging.WithComponent("events")
	relay := events.NewRelay(bus, logger, hub)

	if cfg.Events.NATSURL == "" {
		return relay, func() {}
	}
	if !events.NATSAvailable {
		logger.Warn().Msg("NATS_URL is set but this binary was built without -tags nats")
		return relay, func() {}
	}

	pub, err := events.NewNATSPublisher(cfg.Events.NATSURL, logger)
	if err != nil {
		logger.Error().Err(err).Msg("NATS forwarding disabled")
		return relay, func() {}
	}
	relay.Forward(pub, cfg.Events.Topic)
	logger.Info().Str("subject", cfg.Events.Topic).Msg("Forwarding job events to NATS")

	return relay, func() {
		if err := pub.Close(); err != nil {
			logger.Error().Err(err).Msg("Error closing NATS publisher")
		}
	}
}
