// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package training

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/animerec/internal/recommend"
	"github.com/tomtom215/animerec/internal/recommend/algorithms"
	"github.com/tomtom215/animerec/internal/recommend/ratings"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry(DefaultModelsConfig())
	want := []string{"hybrid", "item_based_cf", "neural_cf", "switching_hybrid", "user_based_cf"}

	got := r.Names()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	if _, err := r.Get("svd"); !errors.Is(err, recommend.ErrValidation) {
		t.Errorf("Get(svd) error = %v, want ErrValidation", err)
	}
}

func TestTrainers_FitNamedModels(t *testing.T) {
	cfg := testConfig().Models
	r := DefaultRegistry(cfg)
	train := []recommend.Interaction(catalog(30, 20, 12))
	store, err := ratings.New(train, recommend.DefaultRatingScale())
	if err != nil {
		t.Fatalf("ratings.New() error = %v", err)
	}

	for _, name := range r.Names() {
		t.Run(name, func(t *testing.T) {
			trainer, _ := r.Get(name)
			var steps []string
			model, err := trainer.Fit(context.Background(), FitInput{
				Store:  store,
				Train:  train,
				Logger: zerolog.Nop(),
				Step:   func(s string) { steps = append(steps, s) },
			})
			if err != nil {
				t.Fatalf("Fit() error = %v", err)
			}
			if model.Name() != name || !model.IsTrained() {
				t.Errorf("model %q trained=%v", model.Name(), model.IsTrained())
			}
			if name == algorithms.NameNeuralCF && len(steps) != cfg.NCF.Epochs {
				t.Errorf("neural_cf reported %d epoch steps, want %d", len(steps), cfg.NCF.Epochs)
			}
			if name == algorithms.NameHybrid && len(steps) == 0 {
				t.Error("hybrid reported no steps")
			}
		})
	}
}
