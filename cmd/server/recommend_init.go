// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/tomtom215/animerec/internal/config"
	"github.com/tomtom215/animerec/internal/database"
	"github.com/tomtom215/animerec/internal/events"
	"github.com/tomtom215/animerec/internal/logging"
	"github.com/tomtom215/animerec/internal/metrics"
	"github.com/tomtom215/animerec/internal/recommend"
	"github.com/tomtom215/animerec/internal/recommend/storage"
	"github.com/tomtom215/animerec/internal/recommend/training"
)

// RecommendComponents holds the serving and training components.
type RecommendComponents struct {
	Service      *recommend.Service
	Orchestrator *training.Orchestrator
	Bus          *events.Bus
	Badger       *badger.DB
}

// Close stops training first so no job writes to a closed store.
func (c *RecommendComponents) Close() {
	if c.Orchestrator != nil {
		c.Orchestrator.Close()
	}
	if c.Bus != nil {
		if err := c.Bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}
	if c.Badger != nil {
		if err := c.Badger.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing job store")
		}
	}
}

// initRecommend builds the serving service, restores stored models and
// creates the training orchestrator.
func initRecommend(ctx context.Context, cfg *config.Config, db *database.DB) (*RecommendComponents, error) {
	logger := logging.WithComponent("recommend")
	c := &RecommendComponents{}

	svc, err := recommend.NewService(&cfg.Recommend, logger)
	if err != nil {
		return nil, fmt.Errorf("create recommend service: %w", err)
	}
	svc.SetObserver(metrics.Recorder{})
	c.Service = svc

	artifacts, err := storage.NewStore(cfg.Storage.ModelDir)
	if err != nil {
		return nil, fmt.Errorf("open model store: %w", err)
	}

	c.Badger, err = training.OpenBadger(cfg.Storage.JobsDir)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}

	c.Bus = events.NewBus(cfg.Events.Topic, logging.WithComponent("events"))

	breaker := cfg.Breaker
	breaker.OnStateChange = metrics.RecordBreakerTransition
	source := training.NewBreakerSource(db, breaker, logger)

	c.Orchestrator, err = training.New(ctx, cfg.Training, training.Deps{
		Source:    source,
		Trainers:  training.DefaultRegistry(cfg.Training.Models),
		Artifacts: artifacts,
		Jobs:      training.NewBadgerJobStore(c.Badger),
		Registry:  db,
		Publisher: svc,
		Sinks:     []training.Sink{c.Bus, metrics.Recorder{}},
	}, logging.WithComponent("training"))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("create training orchestrator: %w", err)
	}

	restored, err := c.Orchestrator.RestoreLatest(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Model restore incomplete")
	}
	activateStoredModel(ctx, cfg, db, svc, logger)

	logger.Info().
		Int("restored", restored).
		Str("active", svc.Active()).
		Strs("trainable", c.Orchestrator.Models()).
		Msg("Recommendation engine initialized")
	return c, nil
}

// activateStoredModel selects the model the registry marks active, falling
// back to the configured default. Restore already activated some model when
// any was loaded, so a miss here only logs.
//
//nolint:gocritic // logger passed by value
func activateStoredModel(ctx context.Context, cfg *config.Config, db *database.DB, svc *recommend.Service, logger zerolog.Logger) {
	name, err := db.ActiveModel(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Could not read active model from registry")
	}
	if name == "" {
		name = cfg.Recommend.DefaultModel
	}
	if name == "" || svc.Active() == name {
		return
	}
	if err := svc.SetActive(name); err != nil {
		if errors.Is(err, recommend.ErrUnknownModel) {
			logger.Info().Str("model", name).Msg("Preferred model not trained yet")
			return
		}
		logger.Warn().Err(err).Str("model", name).Msg("Could not activate stored model")
	}
}
