// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"

	"github.com/tomtom215/animerec/internal/metrics"
	"github.com/tomtom215/animerec/internal/recommend/training"
)

// Bus is the in-process job event topic.
type Bus struct {
	pubsub *gochannel.GoChannel
	topic  string
	logger zerolog.Logger
}

var _ training.Sink = (*Bus)(nil)

// NewBus creates a bus publishing on topic. Publish waits for subscribers to
// acknowledge, so consumers see one job's updates in order.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBus(topic string, logger zerolog.Logger) *Bus {
	logger = logger.With().Str("component", "events").Logger()
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer:            64,
			BlockPublishUntilSubscriberAck: true,
		}, NewWatermillLogger(logger)),
		topic:  topic,
		logger: logger,
	}
}

// Topic returns the topic name.
func (b *Bus) Topic() string {
	return b.topic
}

// JobUpdated implements training.Sink.
//
//nolint:gocritic // training.Sink passes jobs by value
func (b *Bus) JobUpdated(job training.Job) {
	event := NewJobEvent(job)
	msg, err := event.Message()
	if err == nil {
		err = b.pubsub.Publish(b.topic, msg)
	}
	metrics.RecordEventPublish(b.topic, err)
	if err != nil {
		b.logger.Warn().Err(err).Str("job_id", job.ID).Msg("failed to publish job event")
	}
}

// Subscribe returns the message stream of the topic. The stream closes when
// ctx is canceled or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, b.topic)
}

// Close closes the bus and every subscription.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}
