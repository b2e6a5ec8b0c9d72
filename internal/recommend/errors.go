// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package recommend

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownEntity reports an id that is absent from a model's identifier map.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrInsufficientData reports that no qualifying neighbor or signal exists.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrConflictingJob rejects a training request while another job is active.
	ErrConflictingJob = errors.New("another training job is already running")

	// ErrTrainingFailed is wrapped by every TrainingError.
	ErrTrainingFailed = errors.New("training failed")

	// ErrValidation reports malformed hyperparameters or input data.
	ErrValidation = errors.New("validation error")

	// ErrEmptyDataset reports an empty training set. It matches ErrValidation.
	ErrEmptyDataset = fmt.Errorf("%w: empty training set", ErrValidation)

	// ErrNotTrained reports use of a model or service before a model was published.
	ErrNotTrained = errors.New("model not trained")

	// ErrUnknownModel reports a model name missing from the registry.
	ErrUnknownModel = fmt.Errorf("%w: unknown model", ErrValidation)

	// ErrJobNotFound reports an unknown training job id.
	ErrJobNotFound = errors.New("training job not found")
)

// TrainingError records the pipeline step that failed and its cause.
type TrainingError struct {
	Step  string
	Cause error
}

// Error implements error.
func (e *TrainingError) Error() string {
	return fmt.Sprintf("training failed during %s: %v", e.Step, e.Cause)
}

// Unwrap exposes both ErrTrainingFailed and the underlying cause to errors.Is.
func (e *TrainingError) Unwrap() []error {
	return []error{ErrTrainingFailed, e.Cause}
}
