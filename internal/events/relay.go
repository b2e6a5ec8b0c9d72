// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/tomtom215/animerec/internal/metrics"
	"github.com/tomtom215/animerec/internal/recommend/training"
)

// Relay consumes the bus and fans job updates out. It is a suture service.
type Relay struct {
	bus    *Bus
	sinks  []training.Sink
	logger zerolog.Logger

	forward      message.Publisher
	forwardTopic string
}

// NewRelay delivers every job event on bus to sinks.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRelay(bus *Bus, logger zerolog.Logger, sinks ...training.Sink) *Relay {
	return &Relay{
		bus:    bus,
		sinks:  sinks,
		logger: logger.With().Str("component", "event-relay").Logger(),
	}
}

// Forward copies every message to pub under topic, e.g. a NATS subject.
func (r *Relay) Forward(pub message.Publisher, topic string) {
	r.forward = pub
	r.forwardTopic = topic
}

// Serve runs until ctx is canceled.
func (r *Relay) Serve(ctx context.Context) error {
	msgs, err := r.bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	r.logger.Info().Str("topic", r.bus.Topic()).Int("sinks", len(r.sinks)).Msg("event relay started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return ctx.Err()
			}
			r.handle(msg)
			msg.Ack()
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (r *Relay) String() string {
	return "event-relay"
}

func (r *Relay) handle(msg *message.Message) {
	event, err := DecodeJobEvent(msg)
	if err != nil {
		r.logger.Warn().Err(err).Msg("dropping malformed job event")
		return
	}
	for _, s := range r.sinks {
		s.JobUpdated(event.Job)
	}

	if r.forward == nil {
		return
	}
	out := message.NewMessage(msg.UUID, msg.Payload)
	out.Metadata = msg.Metadata
	err = r.forward.Publish(r.forwardTopic, out)
	metrics.RecordEventPublish(r.forwardTopic, err)
	if err != nil {
		r.logger.Warn().Err(err).Str("topic", r.forwardTopic).Msg("failed to forward job event")
	}
}
