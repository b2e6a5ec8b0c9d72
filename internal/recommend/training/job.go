// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package training

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/animerec/internal/recommend/evaluation"
)

// Status is the lifecycle state of a training job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// canMove reports whether s -> next is a legal transition.
func (s Status) canMove(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusRunning || next == StatusFailed
	case StatusRunning:
		return next == StatusRunning || next.Terminal()
	default:
		return false
	}
}

// Pipeline steps, used as TrainingError.Step and in progress events.
const (
	StepLoad     = "load"
	StepSplit    = "split"
	StepFit      = "fit"
	StepEvaluate = "evaluate"
	StepPersist  = "persist"
	StepRegistry = "registry"
)

// Progress reached at the start of each step.
const (
	progressLoad     = 5
	progressSplit    = 15
	progressFit      = 25
	progressEvaluate = 60
	progressPersist  = 80
	progressRegistry = 90
	progressDone     = 100
)

const (
	stepInitializing = "Initializing..."
	stepCompleted    = "Training completed successfully!"
	stepFailed       = "Training failed"
)

// Job is the record of one training run.
type Job struct {
	ID          string             `json:"job_id"`
	ModelName   string             `json:"model_name"`
	Status      Status             `json:"status"`
	Progress    int                `json:"progress"`
	CurrentStep string             `json:"current_step"`
	CreatedAt   time.Time          `json:"created_at"`
	StartedAt   *time.Time         `json:"started_at,omitempty"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	Metrics     *evaluation.Report `json:"metrics,omitempty"`

	// Version is the artifact version written by a completed job.
	Version int    `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Duration is the time from start to completion, or zero while unfinished.
func (j *Job) Duration() time.Duration {
	if j.StartedAt == nil || j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(*j.StartedAt)
}

func (j *Job) clone() *Job {
	c := *j
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	if j.Metrics != nil {
		m := *j.Metrics
		c.Metrics = &m
	}
	return &c
}

// NewJobID builds train_{model}_{yyyymmdd_hhmmss}_{8 hex chars}.
func NewJobID(model string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("train_%s_%s_%s", model, now.UTC().Format("20060102_150405"), suffix)
}

// update is one change to a job record, applied by the orchestrator's
// applier goroutine in the order it was sent.
type update struct {
	jobID    string
	status   Status
	progress int
	step     string
	report   *evaluation.Report
	version  int
	err      string
	at       time.Time
}

// apply folds u into j. Progress never decreases and illegal status moves
// are ignored. It reports whether j changed.
func (u *update) apply(j *Job) bool {
	if j.Status.Terminal() {
		return false
	}
	if u.status != "" && u.status != j.Status {
		if !j.Status.canMove(u.status) {
			return false
		}
		j.Status = u.status
		switch u.status {
		case StatusRunning:
			t := u.at
			j.StartedAt = &t
		case StatusCompleted, StatusFailed:
			t := u.at
			j.CompletedAt = &t
		}
	}
	if u.progress > j.Progress {
		j.Progress = u.progress
	}
	if u.step != "" {
		j.CurrentStep = u.step
	}
	if u.report != nil {
		j.Metrics = u.report
	}
	if u.version > 0 {
		j.Version = u.version
	}
	if u.err != "" {
		j.Error = u.err
	}
	return true
}
