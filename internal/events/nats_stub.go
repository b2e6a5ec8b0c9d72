// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

//go:build !nats

package events

import (
	"errors"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
)

// NATSAvailable reports whether this binary was built with NATS support.
const NATSAvailable = false

// ErrNATSUnavailable is returned by NewNATSPublisher in builds without the
// nats tag.
var ErrNATSUnavailable = errors.New("NATS publisher not available: build with -tags=nats")

// NewNATSPublisher always fails. Build with -tags=nats for NATS support.
//
//nolint:gocritic // signature matches the nats build
func NewNATSPublisher(_ string, _ zerolog.Logger) (message.Publisher, error) {
	return nil, ErrNATSUnavailable
}
