// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package training

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/animerec/internal/recommend"
	"github.com/tomtom215/animerec/internal/recommend/algorithms"
	"github.com/tomtom215/animerec/internal/recommend/evaluation"
	"github.com/tomtom215/animerec/internal/recommend/ratings"
	"github.com/tomtom215/animerec/internal/recommend/split"
	"github.com/tomtom215/animerec/internal/recommend/storage"
	"github.com/tomtom215/animerec/internal/validation"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("training orchestrator closed")

// defaultKeepFinished is the number of terminal jobs kept in memory.
const defaultKeepFinished = 16

// Config contains the pipeline settings shared by every job.
type Config struct {
	Scale      recommend.RatingScale `json:"scale" koanf:"scale"`
	Split      split.Options         `json:"split" koanf:"split"`
	Evaluation evaluation.Options    `json:"evaluation" koanf:"evaluation"`
	Models     ModelsConfig          `json:"models" koanf:"models"`

	// KeepVersions prunes older artifacts of a model after a save.
	// Zero keeps everything.
	KeepVersions int `json:"keep_versions" koanf:"keep_versions" validate:"min=0"`

	// ActivateOnComplete makes a freshly trained model the active one.
	ActivateOnComplete bool `json:"activate_on_complete" koanf:"activate_on_complete"`

	// Timeout bounds one job. Zero means no limit.
	Timeout time.Duration `json:"timeout" koanf:"timeout" validate:"min=0"`

	// DefaultListLimit is used by Jobs when the caller passes no limit.
	DefaultListLimit int `json:"default_list_limit" koanf:"default_list_limit" validate:"min=1"`
}

// DefaultConfig returns the standard pipeline settings.
func DefaultConfig() Config {
	return Config{
		Scale:            recommend.DefaultRatingScale(),
		Split:            split.DefaultOptions(),
		Evaluation:       evaluation.DefaultOptions(),
		Models:           DefaultModelsConfig(),
		KeepVersions:     5,
		Timeout:          2 * time.Hour,
		DefaultListLimit: 10,
	}
}

// Validate checks the configuration.
//
//nolint:gocritic // value receiver keeps configs immutable
func (c Config) Validate() error {
	if err := c.Scale.Validate(); err != nil {
		return err
	}
	if verr := validation.ValidateStruct(&c); verr != nil {
		return fmt.Errorf("%w: %s", recommend.ErrValidation, verr.Error())
	}
	return nil
}

// Publisher receives every successfully trained model.
// recommend.Service implements it.
type Publisher interface {
	Publish(p recommend.Predictor, version int, activate bool) error
}

// FallbackSetter is implemented by publishers that serve a popularity
// ranking to users the active model cannot handle.
type FallbackSetter interface {
	SetFallback(p recommend.Predictor)
}

// ModelRecord is the registry entry of one trained artifact.
type ModelRecord struct {
	Name      string             `json:"name"`
	Version   int                `json:"version"`
	JobID     string             `json:"job_id"`
	TrainedAt time.Time          `json:"trained_at"`
	Metrics   *evaluation.Report `json:"metrics"`
	Active    bool               `json:"active"`
}

// ModelRegistry records trained artifacts and their evaluation metrics.
type ModelRegistry interface {
	RecordModel(ctx context.Context, rec ModelRecord) error
}

// Sink receives a copy of a job after every change.
type Sink interface {
	JobUpdated(job Job)
}

// Deps are the collaborators of an Orchestrator. Source, Trainers, Artifacts
// and Jobs are required.
type Deps struct {
	Source    RatingSource
	Trainers  *Registry
	Artifacts *storage.Store
	Jobs      JobStore

	Registry  ModelRegistry
	Publisher Publisher
	Sinks     []Sink
}

// Orchestrator runs training jobs one at a time.
//
// Submit records a pending job and starts a worker goroutine. Workers send
// every change through the updates channel to one applier goroutine, which
// is the only writer of job records. A second Submit while a job is pending
// or running fails with recommend.ErrConflictingJob.
type Orchestrator struct {
	cfg    Config
	deps   Deps
	logger zerolog.Logger

	mu     sync.Mutex
	jobs   map[string]*Job
	done   map[string]chan struct{}
	active string
	closed bool

	// finished holds ids of persisted terminal jobs, oldest first. Only the
	// last keepFinished stay in jobs and done; older ones are read back
	// from the JobStore.
	finished     []string
	keepFinished int

	updates     chan update
	workers     sync.WaitGroup
	applierDone chan struct{}

	now func() time.Time
}

// New creates an orchestrator and starts its applier. Jobs left pending or
// running by a previous process are marked failed.
//
//nolint:gocritic // config and logger passed by value are intentional
func New(ctx context.Context, cfg Config, deps Deps, logger zerolog.Logger) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid training config: %w", err)
	}
	if deps.Source == nil || deps.Trainers == nil || deps.Artifacts == nil || deps.Jobs == nil {
		return nil, fmt.Errorf("%w: source, trainers, artifacts and jobs are required", recommend.ErrValidation)
	}

	o := &Orchestrator{
		cfg:          cfg,
		deps:         deps,
		logger:       logger.With().Str("component", "training").Logger(),
		jobs:         make(map[string]*Job),
		done:         make(map[string]chan struct{}),
		keepFinished: defaultKeepFinished,
		updates:      make(chan update, 64),
		applierDone:  make(chan struct{}),
		now:          time.Now,
	}
	if err := o.failInterrupted(ctx); err != nil {
		return nil, err
	}

	go o.applyLoop()
	return o, nil
}

func (o *Orchestrator) failInterrupted(ctx context.Context) error {
	stored, err := o.deps.Jobs.List(ctx, 0)
	if err != nil {
		return fmt.Errorf("list stored jobs: %w", err)
	}
	for _, j := range stored {
		if j.Status.Terminal() {
			continue
		}
		u := update{status: StatusFailed, step: stepFailed, err: "interrupted by restart", at: o.now()}
		u.apply(j)
		if err := o.deps.Jobs.Put(ctx, j); err != nil {
			return fmt.Errorf("fail interrupted job %s: %w", j.ID, err)
		}
		o.logger.Warn().Str("job_id", j.ID).Msg("marked interrupted job as failed")
	}
	return nil
}

// Models lists the trainable model names.
func (o *Orchestrator) Models() []string {
	return o.deps.Trainers.Names()
}

// Submit starts a training job for modelName.
func (o *Orchestrator) Submit(ctx context.Context, modelName string) (*Job, error) {
	trainer, err := o.deps.Trainers.Get(modelName)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrClosed
	}
	if o.active != "" {
		running := o.active
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", recommend.ErrConflictingJob, running)
	}

	now := o.now()
	job := &Job{
		ID:          NewJobID(modelName, now),
		ModelName:   modelName,
		Status:      StatusPending,
		CurrentStep: stepInitializing,
		CreatedAt:   now,
	}
	o.jobs[job.ID] = job
	o.done[job.ID] = make(chan struct{})
	o.active = job.ID
	snapshot := job.clone()
	o.workers.Add(1)
	o.mu.Unlock()

	if err := o.deps.Jobs.Put(ctx, snapshot); err != nil {
		o.logger.Error().Err(err).Str("job_id", job.ID).Msg("failed to store job record")
	}
	o.notify(snapshot)

	o.logger.Info().
		Str("job_id", job.ID).
		Str("model", modelName).
		Msg("training job submitted")

	// The job outlives the request that submitted it.
	go o.run(context.WithoutCancel(ctx), job.ID, trainer)
	return snapshot, nil
}

// Job returns the current record of a job.
func (o *Orchestrator) Job(ctx context.Context, id string) (*Job, error) {
	o.mu.Lock()
	j, ok := o.jobs[id]
	if ok {
		c := j.clone()
		o.mu.Unlock()
		return c, nil
	}
	o.mu.Unlock()

	return o.deps.Jobs.Get(ctx, id)
}

// Jobs lists the most recent jobs, newest first.
func (o *Orchestrator) Jobs(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = o.cfg.DefaultListLimit
	}
	return o.deps.Jobs.List(ctx, limit)
}

// Running returns the id of the pending or running job, or "".
func (o *Orchestrator) Running() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// Wait blocks until the job is completed or failed, or ctx is done.
func (o *Orchestrator) Wait(ctx context.Context, id string) (*Job, error) {
	o.mu.Lock()
	done, ok := o.done[id]
	o.mu.Unlock()
	if !ok {
		return o.Job(ctx, id)
	}

	select {
	case <-done:
		return o.Job(ctx, id)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close rejects new jobs, waits for running workers and stops the applier.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.mu.Unlock()

	o.workers.Wait()
	close(o.updates)
	<-o.applierDone
}

// applyLoop is the single writer of job records.
func (o *Orchestrator) applyLoop() {
	defer close(o.applierDone)

	for u := range o.updates {
		o.mu.Lock()
		job, ok := o.jobs[u.jobID]
		if !ok || !u.apply(job) {
			o.mu.Unlock()
			continue
		}
		snapshot := job.clone()
		var done chan struct{}
		if job.Status.Terminal() {
			done = o.done[job.ID]
			if o.active == job.ID {
				o.active = ""
			}
		}
		o.mu.Unlock()

		// Records are written with a background context: a job's history
		// must not depend on the request that started it.
		if err := o.deps.Jobs.Put(context.Background(), snapshot); err != nil {
			o.logger.Error().Err(err).Str("job_id", snapshot.ID).Msg("failed to store job record")
		} else if done != nil {
			o.forget(snapshot.ID)
		}
		o.notify(snapshot)

		if done != nil {
			close(done)
		}
	}
}

// forget records a persisted terminal job and drops the oldest in-memory
// records beyond keepFinished. A job whose record failed to persist is never
// forgotten.
func (o *Orchestrator) forget(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, id)
	for len(o.finished) > o.keepFinished {
		old := o.finished[0]
		o.finished = o.finished[1:]
		delete(o.jobs, old)
		delete(o.done, old)
	}
}

func (o *Orchestrator) notify(job *Job) {
	for _, s := range o.deps.Sinks {
		s.JobUpdated(*job.clone())
	}
}

// progress reports one pipeline step.
func (o *Orchestrator) progress(jobID string, pct int, step string) {
	o.updates <- update{jobID: jobID, progress: pct, step: step, at: o.now()}
}

// run executes the pipeline of one job and reports its terminal state.
func (o *Orchestrator) run(ctx context.Context, jobID string, trainer Trainer) {
	defer o.workers.Done()

	logger := o.logger.With().Str("job_id", jobID).Str("model", trainer.Name()).Logger()
	start := o.now()
	o.updates <- update{jobID: jobID, status: StatusRunning, at: start}

	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	report, version, err := o.pipeline(ctx, jobID, trainer, logger)
	if err != nil {
		logger.Error().Err(err).Dur("elapsed", o.now().Sub(start)).Msg("training job failed")
		o.updates <- update{jobID: jobID, status: StatusFailed, step: stepFailed, err: err.Error(), at: o.now()}
		return
	}

	logger.Info().
		Int("version", version).
		Float64("rmse", report.RMSE).
		Float64("precision_at_k", report.PrecisionAtK).
		Dur("elapsed", o.now().Sub(start)).
		Msg("training job completed")
	o.updates <- update{
		jobID:    jobID,
		status:   StatusCompleted,
		progress: progressDone,
		step:     stepCompleted,
		report:   report,
		version:  version,
		at:       o.now(),
	}
}

// pipeline runs load, split, fit, evaluate, persist and registry in order.
// A panic in any step becomes a TrainingError.
func (o *Orchestrator) pipeline(ctx context.Context, jobID string, trainer Trainer, logger zerolog.Logger) (report *evaluation.Report, version int, err error) {
	step := StepLoad
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("training pipeline panicked")
			err = &recommend.TrainingError{Step: step, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()
	fail := func(cause error) (*evaluation.Report, int, error) {
		return nil, 0, &recommend.TrainingError{Step: step, Cause: cause}
	}
	start := o.now()

	o.progress(jobID, progressLoad, "Loading ratings...")
	interactions, err := o.deps.Source.LoadInteractions(ctx)
	if err != nil {
		return fail(err)
	}
	if len(interactions) == 0 {
		return fail(recommend.ErrEmptyDataset)
	}
	logger.Debug().Int("interactions", len(interactions)).Msg("ratings loaded")

	step = StepSplit
	o.progress(jobID, progressSplit, "Splitting train/test data...")
	data, err := split.ByUser(interactions, o.cfg.Split)
	if err != nil {
		return fail(err)
	}
	store, err := ratings.New(data.Train, o.cfg.Scale)
	if err != nil {
		return fail(err)
	}

	step = StepFit
	o.progress(jobID, progressFit, fmt.Sprintf("Training %s model...", trainer.Title()))
	model, err := trainer.Fit(ctx, FitInput{
		Store:  store,
		Train:  data.Train,
		Logger: logger,
		Step: func(text string) {
			o.progress(jobID, progressFit, text)
		},
	})
	if err != nil {
		return fail(err)
	}
	trainedAt := o.now()

	step = StepEvaluate
	o.progress(jobID, progressEvaluate, "Evaluating model...")
	report, err = evaluation.Evaluate(ctx, model, data, o.cfg.Evaluation)
	if err != nil {
		return fail(err)
	}

	step = StepPersist
	o.progress(jobID, progressPersist, "Saving model...")
	state, err := algorithms.Snapshot(model)
	if err != nil {
		return fail(err)
	}
	meta, err := o.deps.Artifacts.Save(ctx, model.Name(), &state, storage.ModelMetadata{
		JobID:              jobID,
		TrainedAt:          trainedAt,
		InteractionCount:   store.Len(),
		UserCount:          store.NumUsers(),
		ItemCount:          store.NumItems(),
		TrainingDurationMS: trainedAt.Sub(start).Milliseconds(),
	})
	if err != nil {
		return fail(err)
	}
	if o.cfg.KeepVersions > 0 {
		if _, err := o.deps.Artifacts.Prune(ctx, model.Name(), o.cfg.KeepVersions); err != nil {
			logger.Warn().Err(err).Msg("failed to prune old artifacts")
		}
	}

	step = StepRegistry
	o.progress(jobID, progressRegistry, "Updating model registry...")
	if o.deps.Registry != nil {
		err := o.deps.Registry.RecordModel(ctx, ModelRecord{
			Name:      model.Name(),
			Version:   meta.Version,
			JobID:     jobID,
			TrainedAt: trainedAt,
			Metrics:   report,
			Active:    o.cfg.ActivateOnComplete,
		})
		if err != nil {
			return fail(err)
		}
	}
	if o.deps.Publisher != nil {
		if err := o.deps.Publisher.Publish(model, meta.Version, o.cfg.ActivateOnComplete); err != nil {
			return fail(err)
		}
		if fs, ok := o.deps.Publisher.(FallbackSetter); ok {
			pop := algorithms.NewPopularity(algorithms.PopularityConfig{})
			if err := pop.Fit(ctx, store); err != nil {
				return fail(err)
			}
			fs.SetFallback(pop)
		}
	}

	return report, meta.Version, nil
}
