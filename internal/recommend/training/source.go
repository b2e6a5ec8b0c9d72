// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package training

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/animerec/internal/recommend"
)

// RatingSource supplies the raw ratings a job trains on.
type RatingSource interface {
	LoadInteractions(ctx context.Context) ([]recommend.Interaction, error)
}

// SliceSource serves a fixed set of ratings.
type SliceSource []recommend.Interaction

// LoadInteractions returns a copy of the slice.
func (s SliceSource) LoadInteractions(ctx context.Context) ([]recommend.Interaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]recommend.Interaction(nil), s...), nil
}

// BreakerConfig configures BreakerSource.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failed loads that opens
	// the breaker.
	FailureThreshold uint32 `json:"failure_threshold" koanf:"failure_threshold" validate:"min=1"`

	// Timeout is how long the breaker stays open before a trial load.
	Timeout time.Duration `json:"timeout" koanf:"timeout"`

	// OnStateChange is called after every transition, e.g. to export the
	// breaker state as a metric.
	OnStateChange func(name, from, to string) `json:"-" koanf:"-"`
}

// DefaultBreakerConfig opens after 3 failures for 30 seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 3, Timeout: 30 * time.Second}
}

// BreakerSource guards a RatingSource with a circuit breaker.
type BreakerSource struct {
	source  RatingSource
	breaker *gobreaker.CircuitBreaker[[]recommend.Interaction]
	logger  zerolog.Logger
}

// NewBreakerSource wraps source.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBreakerSource(source RatingSource, cfg BreakerConfig, logger zerolog.Logger) *BreakerSource {
	if cfg.FailureThreshold == 0 {
		hook := cfg.OnStateChange
		cfg = DefaultBreakerConfig()
		cfg.OnStateChange = hook
	}
	b := &BreakerSource{
		source: source,
		logger: logger.With().Str("component", "rating_source").Logger(),
	}
	b.breaker = gobreaker.NewCircuitBreaker[[]recommend.Interaction](gobreaker.Settings{
		Name:    "rating-source",
		Timeout: cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(name, from.String(), to.String())
			}
		},
	})
	return b
}

// LoadInteractions loads through the breaker. An open breaker returns
// gobreaker.ErrOpenState without touching the source.
func (b *BreakerSource) LoadInteractions(ctx context.Context) ([]recommend.Interaction, error) {
	rows, err := b.breaker.Execute(func() ([]recommend.Interaction, error) {
		return b.source.LoadInteractions(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("load interactions: %w", err)
	}
	return rows, nil
}

// State returns the breaker state name.
func (b *BreakerSource) State() string {
	return b.breaker.State().String()
}
