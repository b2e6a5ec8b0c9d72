// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package services

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// MaintenanceTask is one periodic housekeeping step.
type MaintenanceTask func(ctx context.Context) error

// MaintenanceService runs a task on a fixed interval. Task errors are logged
// and the next tick tries again.
type MaintenanceService struct {
	name     string
	interval time.Duration
	task     MaintenanceTask
	logger   zerolog.Logger
}

// NewMaintenanceService creates a periodic task runner. A non-positive
// interval defaults to 5m.
//
//nolint:gocritic // zerolog.Logger is passed by value
func NewMaintenanceService(name string, interval time.Duration, task MaintenanceTask, logger zerolog.Logger) *MaintenanceService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &MaintenanceService{
		name:     name,
		interval: interval,
		task:     task,
		logger:   logger.With().Str("service", name).Logger(),
	}
}

// Serve runs the task every interval until ctx is cancelled.
func (m *MaintenanceService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := m.task(ctx); err != nil {
				m.logger.Warn().Err(err).Msg("maintenance task failed")
				continue
			}
			m.logger.Debug().Dur("duration", time.Since(start)).Msg("maintenance task finished")
		}
	}
}

func (m *MaintenanceService) String() string {
	return m.name
}

// BadgerValueLogGC returns a task that rewrites value log files until Badger
// reports nothing left to collect.
func BadgerValueLogGC(db *badger.DB, discardRatio float64) MaintenanceTask {
	return func(ctx context.Context) error {
		for ctx.Err() == nil {
			err := db.RunValueLogGC(discardRatio)
			if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) ||
				errors.Is(err, badger.ErrGCInMemoryMode) {
				return nil
			}
			if err != nil {
				return err
			}
		}
		return ctx.Err()
	}
}
