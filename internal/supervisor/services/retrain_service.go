// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/animerec/internal/recommend"
	"github.com/tomtom215/animerec/internal/recommend/training"
)

// JobRunner is the part of the training orchestrator the scheduler uses.
type JobRunner interface {
	Submit(ctx context.Context, modelName string) (*training.Job, error)
	Wait(ctx context.Context, id string) (*training.Job, error)
}

// RetrainConfig controls scheduled training.
type RetrainConfig struct {
	// TrainOnStartup runs one cycle as soon as the service starts.
	TrainOnStartup bool

	// Interval between cycles. Zero disables the schedule.
	Interval time.Duration

	// Models are trained one after another in each cycle.
	Models []string

	// JobTimeout bounds how long one cycle waits for a job.
	// Default: 30m.
	JobTimeout time.Duration
}

// CycleResult summarizes one scheduled cycle.
type CycleResult struct {
	Completed int
	Failed    int
	Skipped   int
}

// RetrainService submits training jobs on startup and on a fixed interval.
type RetrainService struct {
	runner JobRunner
	config RetrainConfig
	logger zerolog.Logger

	// cycles receives each result when non-nil. Used by tests.
	cycles chan<- CycleResult
}

// NewRetrainService creates the scheduler.
//
//nolint:gocritic // zerolog.Logger is passed by value
func NewRetrainService(runner JobRunner, cfg RetrainConfig, logger zerolog.Logger) *RetrainService {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Minute
	}
	return &RetrainService{
		runner: runner,
		config: cfg,
		logger: logger.With().Str("service", "retrain-scheduler").Logger(),
	}
}

// Serve runs until ctx is cancelled. Failed jobs are logged and retried on
// the next tick; they never stop the service.
func (s *RetrainService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("train_on_startup", s.config.TrainOnStartup).
		Dur("interval", s.config.Interval).
		Strs("models", s.config.Models).
		Msg("retrain scheduler starting")

	if s.config.TrainOnStartup {
		s.runCycle(ctx)
	}

	if s.config.Interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("retrain scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *RetrainService) runCycle(ctx context.Context) {
	start := time.Now()
	var res CycleResult

	for _, model := range s.config.Models {
		if ctx.Err() != nil {
			break
		}
		switch s.trainOne(ctx, model) {
		case training.StatusCompleted:
			res.Completed++
		case training.StatusFailed:
			res.Failed++
		default:
			res.Skipped++
		}
	}

	s.logger.Info().
		Int("completed", res.Completed).
		Int("failed", res.Failed).
		Int("skipped", res.Skipped).
		Dur("duration", time.Since(start)).
		Msg("scheduled training cycle finished")

	if s.cycles != nil {
		select {
		case s.cycles <- res:
		case <-ctx.Done():
		}
	}
}

// trainOne returns the final job status, or "" when the job was not run or
// did not finish in time.
func (s *RetrainService) trainOne(ctx context.Context, model string) training.Status {
	job, err := s.runner.Submit(ctx, model)
	switch {
	case errors.Is(err, recommend.ErrConflictingJob):
		s.logger.Info().Str("model", model).Msg("training already running, skipping scheduled job")
		return ""
	case err != nil:
		s.logger.Warn().Err(err).Str("model", model).Msg("scheduled training not submitted")
		return ""
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	done, err := s.runner.Wait(waitCtx, job.ID)
	if err != nil {
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("stopped waiting for scheduled job")
		return ""
	}
	if done.Status == training.StatusFailed {
		s.logger.Warn().Str("job_id", done.ID).Str("error", done.Error).Msg("scheduled training failed")
	}
	return done.Status
}

func (s *RetrainService) String() string {
	return "retrain-scheduler"
}
