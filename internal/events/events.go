// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

// Package events carries training job updates from the orchestrator to
// in-process consumers and, optionally, to NATS.
//
// The orchestrator writes to a Bus (a training.Sink). The Bus publishes a
// JSON JobEvent on a watermill gochannel topic. A Relay subscribes to that
// topic and hands each decoded job to its sinks (the websocket hub) and
// forwards the raw message to an external publisher when one is configured.
package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/animerec/internal/recommend/training"
)

// TypeJobUpdated is the event type of every job change.
const TypeJobUpdated = "training.job.updated"

// Metadata keys set on published messages.
const (
	MetadataType   = "event_type"
	MetadataJobID  = "job_id"
	MetadataModel  = "model"
	MetadataStatus = "status"
)

// JobEvent is the payload of one job update.
type JobEvent struct {
	EventID    string       `json:"event_id"`
	Type       string       `json:"type"`
	OccurredAt time.Time    `json:"occurred_at"`
	Job        training.Job `json:"job"`
}

// NewJobEvent wraps job with a fresh event id.
//
//nolint:gocritic // jobs are passed by value across the sink boundary
func NewJobEvent(job training.Job) JobEvent {
	return JobEvent{
		EventID:    uuid.NewString(),
		Type:       TypeJobUpdated,
		OccurredAt: time.Now().UTC(),
		Job:        job,
	}
}

// Message encodes the event as a watermill message.
func (e *JobEvent) Message() (*message.Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode job event: %w", err)
	}
	msg := message.NewMessage(e.EventID, data)
	msg.Metadata.Set(MetadataType, e.Type)
	msg.Metadata.Set(MetadataJobID, e.Job.ID)
	msg.Metadata.Set(MetadataModel, e.Job.ModelName)
	msg.Metadata.Set(MetadataStatus, string(e.Job.Status))
	return msg, nil
}

// DecodeJobEvent parses a message produced by JobEvent.Message.
func DecodeJobEvent(msg *message.Message) (JobEvent, error) {
	var e JobEvent
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		return JobEvent{}, fmt.Errorf("decode job event %s: %w", msg.UUID, err)
	}
	if e.Type != TypeJobUpdated {
		return JobEvent{}, fmt.Errorf("decode job event %s: unexpected type %q", msg.UUID, e.Type)
	}
	return e, nil
}
