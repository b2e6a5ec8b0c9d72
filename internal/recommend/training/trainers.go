// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package training

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/animerec/internal/recommend"
	"github.com/tomtom215/animerec/internal/recommend/algorithms"
	"github.com/tomtom215/animerec/internal/recommend/ratings"
	"github.com/tomtom215/animerec/internal/recommend/split"
)

// FitInput is what a Trainer receives from the pipeline.
type FitInput struct {
	// Store is built from Train.
	Store *ratings.Store
	Train []recommend.Interaction

	Logger zerolog.Logger

	// Step updates the job's current step text without moving progress.
	Step func(text string)
}

// Trainer builds and fits one kind of model.
type Trainer interface {
	// Name is the registry name, equal to the fitted model's Name().
	Name() string

	// Title is the human-readable model name used in step texts.
	Title() string

	Fit(ctx context.Context, in FitInput) (algorithms.Model, error)
}

// TrainerFunc adapts a function to Trainer.
type TrainerFunc struct {
	ModelName  string
	ModelTitle string
	FitFunc    func(ctx context.Context, in FitInput) (algorithms.Model, error)
}

func (f TrainerFunc) Name() string  { return f.ModelName }
func (f TrainerFunc) Title() string { return f.ModelTitle }

// Fit calls FitFunc.
//
//nolint:gocritic // FitInput passed by value is intentional
func (f TrainerFunc) Fit(ctx context.Context, in FitInput) (algorithms.Model, error) {
	return f.FitFunc(ctx, in)
}

// Registry maps model names to trainers. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	trainers map[string]Trainer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{trainers: make(map[string]Trainer)}
}

// Register adds t, replacing a trainer of the same name.
func (r *Registry) Register(t Trainer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trainers[t.Name()] = t
}

// Get returns recommend.ErrUnknownModel for an unregistered name.
func (r *Registry) Get(name string) (Trainer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.trainers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", recommend.ErrUnknownModel, name)
	}
	return t, nil
}

// Names lists registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.trainers))
	for name := range r.trainers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ModelsConfig holds the hyperparameters of every built-in trainer.
type ModelsConfig struct {
	UserKNN   algorithms.KNNConfig       `json:"user_knn" koanf:"user_knn"`
	ItemKNN   algorithms.KNNConfig       `json:"item_knn" koanf:"item_knn"`
	NCF       algorithms.NCFConfig       `json:"ncf" koanf:"ncf"`
	Switching algorithms.SwitchingConfig `json:"switching" koanf:"switching"`

	// Grid drives the hybrid weight search.
	Grid algorithms.Grid `json:"grid" koanf:"grid"`

	// HybridValidation carves the weight-search validation slice out of the
	// training split.
	HybridValidation split.Options `json:"hybrid_validation" koanf:"hybrid_validation"`
}

// DefaultModelsConfig returns the standard hyperparameters.
func DefaultModelsConfig() ModelsConfig {
	return ModelsConfig{
		UserKNN:          algorithms.DefaultUserKNNConfig(),
		ItemKNN:          algorithms.DefaultItemKNNConfig(),
		NCF:              algorithms.DefaultNCFConfig(),
		Switching:        algorithms.DefaultSwitchingConfig(),
		Grid:             algorithms.DefaultGrid(),
		HybridValidation: split.Options{TestRatio: 0.1, MinRatings: 5, Seed: 7},
	}
}

// DefaultRegistry registers user_based_cf, item_based_cf, hybrid,
// switching_hybrid and neural_cf.
//
//nolint:gocritic // config passed by value is intentional
func DefaultRegistry(cfg ModelsConfig) *Registry {
	r := NewRegistry()

	r.Register(TrainerFunc{
		ModelName:  algorithms.NameUserBasedCF,
		ModelTitle: "User-Based CF",
		FitFunc: func(ctx context.Context, in FitInput) (algorithms.Model, error) {
			m := algorithms.NewUserBasedCF(cfg.UserKNN)
			return m, m.Fit(ctx, in.Store)
		},
	})

	r.Register(TrainerFunc{
		ModelName:  algorithms.NameItemBasedCF,
		ModelTitle: "Item-Based CF",
		FitFunc: func(ctx context.Context, in FitInput) (algorithms.Model, error) {
			m := algorithms.NewItemBasedCF(cfg.ItemKNN)
			return m, m.Fit(ctx, in.Store)
		},
	})

	r.Register(TrainerFunc{
		ModelName:  algorithms.NameHybrid,
		ModelTitle: "Hybrid CF",
		FitFunc: func(ctx context.Context, in FitInput) (algorithms.Model, error) {
			return fitWeightedHybrid(ctx, in, cfg)
		},
	})

	r.Register(TrainerFunc{
		ModelName:  algorithms.NameSwitchingHybrid,
		ModelTitle: "Switching Hybrid CF",
		FitFunc: func(ctx context.Context, in FitInput) (algorithms.Model, error) {
			m := algorithms.NewSwitchingHybrid(
				algorithms.NewUserBasedCF(cfg.UserKNN),
				algorithms.NewItemBasedCF(cfg.ItemKNN),
				cfg.Switching,
			)
			return m, m.Fit(ctx, in.Store)
		},
	})

	r.Register(TrainerFunc{
		ModelName:  algorithms.NameNeuralCF,
		ModelTitle: "Neural CF",
		FitFunc: func(ctx context.Context, in FitInput) (algorithms.Model, error) {
			m := algorithms.NewNeuralCF(cfg.NCF, in.Logger)
			m.OnEpoch(func(r algorithms.EpochReport) {
				in.Step(fmt.Sprintf("Training Neural CF model (epoch %d/%d, val loss %.4f)...",
					r.Epoch, r.Epochs, r.ValLoss))
			})
			return m, m.Fit(ctx, in.Store)
		},
	})

	return r
}

// fitWeightedHybrid searches blend weights on a validation slice carved from
// the training split, then refits both components on the whole split.
//
//nolint:gocritic // FitInput and config passed by value are intentional
func fitWeightedHybrid(ctx context.Context, in FitInput, cfg ModelsConfig) (algorithms.Model, error) {
	in.Step("Carving weight-search validation slice...")
	inner, err := split.ByUser(in.Train, cfg.HybridValidation)
	if err != nil {
		return nil, fmt.Errorf("validation split: %w", err)
	}
	innerStore, err := ratings.New(inner.Train, in.Store.Scale())
	if err != nil {
		return nil, fmt.Errorf("validation store: %w", err)
	}

	in.Step("Training User-Based CF...")
	user := algorithms.NewUserBasedCF(cfg.UserKNN)
	if err := user.Fit(ctx, innerStore); err != nil {
		return nil, fmt.Errorf("fit %s: %w", user.Name(), err)
	}
	in.Step("Training Item-Based CF...")
	item := algorithms.NewItemBasedCF(cfg.ItemKNN)
	if err := item.Fit(ctx, innerStore); err != nil {
		return nil, fmt.Errorf("fit %s: %w", item.Name(), err)
	}

	in.Step("Optimizing hybrid weights...")
	best, err := algorithms.OptimizeWeights(ctx, user, item, inner.Test, cfg.Grid)
	if err != nil {
		return nil, fmt.Errorf("optimize weights: %w", err)
	}
	in.Logger.Info().
		Float64("alpha", best.Alpha).
		Float64("rmse", best.RMSE).
		Int("evaluated", best.Evaluated).
		Msg("hybrid weights selected")

	in.Step("Refitting hybrid on the full training split...")
	h, err := algorithms.NewWeightedHybrid(
		algorithms.NewUserBasedCF(cfg.UserKNN),
		algorithms.NewItemBasedCF(cfg.ItemKNN),
		best.Alpha, 1-best.Alpha,
	)
	if err != nil {
		return nil, err
	}
	return h, h.Fit(ctx, in.Store)
}
