// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package algorithms

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/animerec/internal/recommend"
	"github.com/tomtom215/animerec/internal/recommend/ratings"
	"github.com/tomtom215/animerec/internal/recommend/similarity"
	"github.com/tomtom215/animerec/internal/recommend/storage"
)

// Snapshot converts a fitted model into its storable state.
func Snapshot(m Model) (storage.ModelState, error) {
	if m == nil || !m.IsTrained() {
		return storage.ModelState{}, recommend.ErrNotTrained
	}

	switch model := m.(type) {
	case *UserBasedCF:
		return storage.ModelState{Kind: storage.KindUserBasedCF, KNN: knnState(&model.neighborhood)}, nil
	case *ItemBasedCF:
		return storage.ModelState{Kind: storage.KindItemBasedCF, KNN: knnState(&model.neighborhood)}, nil
	case *NeuralCF:
		cfg := model.config
		return storage.ModelState{Kind: storage.KindNeuralCF, NCF: &storage.NCFState{
			EmbeddingDim:    cfg.EmbeddingDim,
			Layers:          append([]int(nil), cfg.Layers...),
			Dropout:         cfg.Dropout,
			LearningRate:    cfg.LearningRate,
			BatchSize:       cfg.BatchSize,
			Epochs:          cfg.Epochs,
			Patience:        cfg.Patience,
			ValidationRatio: cfg.ValidationRatio,
			Seed:            cfg.Seed,
			Ratings:         ratingsState(model.store),
			Weights:         model.weights(),
			BestValLoss:     model.bestValLoss,
		}}, nil
	case *WeightedHybrid:
		a, err := Snapshot(model.a)
		if err != nil {
			return storage.ModelState{}, fmt.Errorf("hybrid component %s: %w", model.a.Name(), err)
		}
		b, err := Snapshot(model.b)
		if err != nil {
			return storage.ModelState{}, fmt.Errorf("hybrid component %s: %w", model.b.Name(), err)
		}
		return storage.ModelState{Kind: storage.KindWeightedHybrid, Hybrid: &storage.HybridState{
			WeightA: model.wa,
			WeightB: model.wb,
			A:       a,
			B:       b,
		}}, nil
	case *SwitchingHybrid:
		a, err := Snapshot(model.user)
		if err != nil {
			return storage.ModelState{}, err
		}
		b, err := Snapshot(model.item)
		if err != nil {
			return storage.ModelState{}, err
		}
		return storage.ModelState{Kind: storage.KindSwitchingHybrid, Hybrid: &storage.HybridState{
			UserThreshold: model.config.UserThreshold,
			ItemThreshold: model.config.ItemThreshold,
			A:             a,
			B:             b,
		}}, nil
	default:
		return storage.ModelState{}, fmt.Errorf("%w: %s cannot be persisted", recommend.ErrValidation, m.Name())
	}
}

func knnState(n *neighborhood) *storage.KNNState {
	ptr, idx, score, self := n.sim.CSR()
	return &storage.KNNState{
		K:          n.config.K,
		Metric:     n.config.Metric,
		MinRatings: n.config.MinRatings,
		Ratings:    ratingsState(n.store),
		SimPtr:     ptr,
		SimIdx:     idx,
		SimScore:   score,
		SimSelf:    self,
	}
}

func ratingsState(store *ratings.Store) storage.Ratings {
	interactions := store.Interactions()
	out := storage.Ratings{
		Users:    make([]int, len(interactions)),
		Items:    make([]int, len(interactions)),
		Values:   make([]float64, len(interactions)),
		ScaleMin: store.Scale().Min,
		ScaleMax: store.Scale().Max,
	}
	for k, in := range interactions {
		out.Users[k] = in.UserID
		out.Items[k] = in.ItemID
		out.Values[k] = in.Rating
	}
	return out
}

func restoreStore(st *storage.Ratings) (*ratings.Store, error) {
	if len(st.Users) != len(st.Items) || len(st.Users) != len(st.Values) {
		return nil, fmt.Errorf("%w: rating triples have mismatched lengths", recommend.ErrValidation)
	}
	interactions := make([]recommend.Interaction, len(st.Users))
	for k := range st.Users {
		interactions[k] = recommend.Interaction{UserID: st.Users[k], ItemID: st.Items[k], Rating: st.Values[k]}
	}
	return ratings.New(interactions, recommend.RatingScale{Min: st.ScaleMin, Max: st.ScaleMax})
}

// Restore rebuilds a fitted model from its stored state. logger is handed to
// models that log (NCF).
//
//nolint:gocritic // logger passed by value is intentional
func Restore(state *storage.ModelState, logger zerolog.Logger) (Model, error) {
	switch state.Kind {
	case storage.KindUserBasedCF, storage.KindItemBasedCF:
		if state.KNN == nil {
			return nil, fmt.Errorf("%w: %s state is empty", recommend.ErrValidation, state.Kind)
		}
		return restoreKNN(state.Kind, state.KNN)
	case storage.KindNeuralCF:
		if state.NCF == nil {
			return nil, fmt.Errorf("%w: %s state is empty", recommend.ErrValidation, state.Kind)
		}
		st := state.NCF
		store, err := restoreStore(&st.Ratings)
		if err != nil {
			return nil, err
		}
		cfg := NCFConfig{
			EmbeddingDim:    st.EmbeddingDim,
			Layers:          st.Layers,
			Dropout:         st.Dropout,
			LearningRate:    st.LearningRate,
			BatchSize:       st.BatchSize,
			Epochs:          st.Epochs,
			Patience:        st.Patience,
			ValidationRatio: st.ValidationRatio,
			Seed:            st.Seed,
		}
		return restoreNeuralCF(cfg, logger, store, st.Weights, st.BestValLoss)
	case storage.KindWeightedHybrid, storage.KindSwitchingHybrid:
		if state.Hybrid == nil {
			return nil, fmt.Errorf("%w: %s state is empty", recommend.ErrValidation, state.Kind)
		}
		return restoreHybrid(state.Kind, state.Hybrid, logger)
	default:
		return nil, fmt.Errorf("%w: unknown model kind %q", recommend.ErrValidation, state.Kind)
	}
}

func restoreKNN(kind string, st *storage.KNNState) (Model, error) {
	store, err := restoreStore(&st.Ratings)
	if err != nil {
		return nil, err
	}
	sim, err := similarity.FromCSR(st.SimPtr, st.SimIdx, st.SimScore, st.SimSelf)
	if err != nil {
		return nil, err
	}
	cfg := KNNConfig{K: st.K, Metric: st.Metric, MinRatings: st.MinRatings}

	if kind == storage.KindUserBasedCF {
		m := NewUserBasedCF(cfg)
		if err := restoreNeighborhood(&m.neighborhood, store, sim); err != nil {
			return nil, err
		}
		return m, nil
	}
	m := NewItemBasedCF(cfg)
	if err := restoreNeighborhood(&m.neighborhood, store, sim); err != nil {
		return nil, err
	}
	return m, nil
}

//nolint:gocritic // logger passed by value is intentional
func restoreHybrid(kind string, st *storage.HybridState, logger zerolog.Logger) (Model, error) {
	a, err := Restore(&st.A, logger)
	if err != nil {
		return nil, fmt.Errorf("hybrid component: %w", err)
	}
	b, err := Restore(&st.B, logger)
	if err != nil {
		return nil, fmt.Errorf("hybrid component: %w", err)
	}

	if kind == storage.KindWeightedHybrid {
		h, err := NewWeightedHybrid(a, b, st.WeightA, st.WeightB)
		if err != nil {
			return nil, err
		}
		h.markTrained()
		return h, nil
	}

	user, okU := a.(*UserBasedCF)
	item, okI := b.(*ItemBasedCF)
	if !okU || !okI {
		return nil, fmt.Errorf("%w: switching hybrid needs user-based and item-based components", recommend.ErrValidation)
	}
	h := NewSwitchingHybrid(user, item, SwitchingConfig{UserThreshold: st.UserThreshold, ItemThreshold: st.ItemThreshold})
	if err := h.config.Validate(); err != nil {
		return nil, err
	}
	h.markTrained()
	return h, nil
}
