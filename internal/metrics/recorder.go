// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package metrics

import (
	"time"

	"github.com/tomtom215/animerec/internal/recommend"
	"github.com/tomtom215/animerec/internal/recommend/training"
)

// Recorder feeds serving and training events into the collectors.
// It implements recommend.Observer and training.Sink.
type Recorder struct{}

var (
	_ recommend.Observer = Recorder{}
	_ training.Sink      = Recorder{}
)

// ObservePrediction implements recommend.Observer.
func (Recorder) ObservePrediction(model string, status recommend.PredictionStatus) {
	Predictions.WithLabelValues(model, status.String()).Inc()
}

// ObserveRecommend implements recommend.Observer.
func (Recorder) ObserveRecommend(model string, fallback bool, elapsed time.Duration) {
	RecommendDuration.WithLabelValues(model).Observe(elapsed.Seconds())
	if fallback {
		RecommendFallbacks.WithLabelValues(model).Inc()
	}
}

// JobUpdated implements training.Sink. Counters move once per job, on the
// terminal update.
//
//nolint:gocritic // training.Sink passes jobs by value
func (Recorder) JobUpdated(job training.Job) {
	switch {
	case job.Status == training.StatusRunning:
		TrainingRunning.Set(1)
		return
	case !job.Status.Terminal():
		return
	}

	TrainingRunning.Set(0)
	TrainingJobs.WithLabelValues(job.ModelName, string(job.Status)).Inc()
	if d := job.Duration(); d > 0 {
		TrainingDuration.WithLabelValues(job.ModelName).Observe(d.Seconds())
	}
	if job.Status != training.StatusCompleted || job.Metrics == nil {
		return
	}
	ModelVersion.WithLabelValues(job.ModelName).Set(float64(job.Version))
	for name, value := range job.Metrics.Metrics() {
		ModelMetric.WithLabelValues(job.ModelName, name).Set(value)
	}
}
