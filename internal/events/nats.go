// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

//go:build nats

package events

import (
	"fmt"
	"time"

	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSAvailable reports whether this binary was built with NATS support.
const NATSAvailable = true

// NewNATSPublisher connects a core NATS publisher (no JetStream) to url.
// The message UUID is sent as Nats-Msg-Id.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewNATSPublisher(url string, logger zerolog.Logger) (message.Publisher, error) {
	wmLogger := NewWatermillLogger(logger.With().Str("component", "nats").Logger())

	opts := []natsgo.Option{
		natsgo.Name("animerec"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: opts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}
	return &msgIDPublisher{pub}, nil
}

type msgIDPublisher struct {
	message.Publisher
}

func (p *msgIDPublisher) Publish(topic string, msgs ...*message.Message) error {
	for _, m := range msgs {
		if m.Metadata.Get(natsgo.MsgIdHdr) == "" {
			m.Metadata.Set(natsgo.MsgIdHdr, m.UUID)
		}
	}
	return p.Publisher.Publish(topic, msgs...)
}
