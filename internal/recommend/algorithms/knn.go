// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package algorithms

import (
	"context"
	"fmt"

	"github.com/tomtom215/animerec/internal/recommend"
	"github.com/tomtom215/animerec/internal/recommend/ratings"
	"github.com/tomtom215/animerec/internal/recommend/similarity"
)

// neighborhood holds what user-based and item-based CF share: the rating
// store and a similarity matrix along one axis.
type neighborhood struct {
	BaseAlgorithm
	config KNNConfig
	axis   similarity.Axis

	store *ratings.Store
	sim   *similarity.Matrix
}

func (n *neighborhood) fit(ctx context.Context, store *ratings.Store) error {
	if err := n.config.Validate(); err != nil {
		return err
	}
	if store == nil || store.Len() == 0 {
		return recommend.ErrEmptyDataset
	}
	if ContextCancelled(ctx) {
		return ctx.Err()
	}

	metric, err := similarity.ParseMetric(n.config.Metric)
	if err != nil {
		return err
	}

	sim, err := similarity.Compute(ctx, store, similarity.Options{
		Axis:       n.axis,
		Metric:     metric,
		MinSupport: n.config.MinRatings,
		Workers:    n.config.Workers,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", n.name, err)
	}

	n.store = store
	n.sim = sim
	n.markTrained()
	return nil
}

// resolve maps external ids to dense indices.
func (n *neighborhood) resolve(userID, itemID int) (u, i int, ok bool) {
	if n.store == nil {
		return 0, 0, false
	}
	u, okU := n.store.UserIndex(userID)
	i, okI := n.store.ItemIndex(itemID)
	return u, i, okU && okI
}

// Info describes the training data.
func (n *neighborhood) Info() recommend.ModelInfo {
	return storeInfo(n.name, n.store)
}

// Config returns the hyperparameters.
func (n *neighborhood) Config() KNNConfig {
	return n.config
}

// Store returns the rating store the model was fit on.
func (n *neighborhood) Store() *ratings.Store {
	return n.store
}

// Similarity returns the fitted similarity matrix.
func (n *neighborhood) Similarity() *similarity.Matrix {
	return n.sim
}

// ========== User-Based Collaborative Filtering ==========

// UserBasedCF predicts from the ratings of similar users.
//
// For target user u and item i, the neighbors are the K users most similar
// to u who rated i, restricted to positive similarity:
//
//	pred(u, i) = sum_v sim(u, v) * r(v, i) / sum_v sim(u, v)
type UserBasedCF struct {
	neighborhood
}

// NewUserBasedCF creates an untrained user-based model.
//
//nolint:gocritic // config passed by value is intentional
func NewUserBasedCF(cfg KNNConfig) *UserBasedCF {
	return &UserBasedCF{neighborhood{
		BaseAlgorithm: NewBaseAlgorithm(NameUserBasedCF),
		config:        cfg,
		axis:          similarity.UserAxis,
	}}
}

// Fit computes user-user similarities over store.
func (m *UserBasedCF) Fit(ctx context.Context, store *ratings.Store) error {
	return m.fit(ctx, store)
}

// Predict estimates the rating of itemID by userID.
func (m *UserBasedCF) Predict(userID, itemID int) recommend.Prediction {
	u, i, ok := m.resolve(userID, itemID)
	if !ok {
		return recommend.Unknown()
	}

	var num, den float64
	taken := 0
	for _, e := range m.sim.Positive(u) {
		if taken == m.config.K {
			break
		}
		r, rated := m.store.RatingAt(e.Index, i)
		if !rated {
			continue
		}
		num += e.Score * r
		den += e.Score
		taken++
	}
	return weightedAverage(num, den, m.store.Scale())
}

// ========== Item-Based Collaborative Filtering ==========

// ItemBasedCF predicts from the user's own ratings of similar items.
//
// For target user u and item i, the neighbors are the K items rated by u
// that are most similar to i, restricted to positive similarity:
//
//	pred(u, i) = sum_j sim(i, j) * r(u, j) / sum_j sim(i, j)
type ItemBasedCF struct {
	neighborhood
}

// NewItemBasedCF creates an untrained item-based model.
//
//nolint:gocritic // config passed by value is intentional
func NewItemBasedCF(cfg KNNConfig) *ItemBasedCF {
	return &ItemBasedCF{neighborhood{
		BaseAlgorithm: NewBaseAlgorithm(NameItemBasedCF),
		config:        cfg,
		axis:          similarity.ItemAxis,
	}}
}

// Fit computes item-item similarities over store.
func (m *ItemBasedCF) Fit(ctx context.Context, store *ratings.Store) error {
	return m.fit(ctx, store)
}

// Predict estimates the rating of itemID by userID.
func (m *ItemBasedCF) Predict(userID, itemID int) recommend.Prediction {
	u, i, ok := m.resolve(userID, itemID)
	if !ok {
		return recommend.Unknown()
	}

	var num, den float64
	taken := 0
	for _, e := range m.sim.Positive(i) {
		if taken == m.config.K {
			break
		}
		r, rated := m.store.RatingAt(u, e.Index)
		if !rated {
			continue
		}
		num += e.Score * r
		den += e.Score
		taken++
	}
	return weightedAverage(num, den, m.store.Scale())
}

// SimilarItems returns at most n items most similar to itemID, positive
// similarities only, the item itself excluded.
func (m *ItemBasedCF) SimilarItems(itemID, n int) []recommend.ScoredItem {
	if m.store == nil || n <= 0 {
		return []recommend.ScoredItem{}
	}
	i, ok := m.store.ItemIndex(itemID)
	if !ok {
		return []recommend.ScoredItem{}
	}

	top := m.sim.TopK(i, n)
	out := make([]recommend.ScoredItem, len(top))
	for k, e := range top {
		out[k] = recommend.ScoredItem{ItemID: m.store.ItemID(e.Index), Score: e.Score}
	}
	return out
}

// restoreNeighborhood rebuilds a fitted neighborhood from persisted parts.
func restoreNeighborhood(n *neighborhood, store *ratings.Store, sim *similarity.Matrix) error {
	if err := n.config.Validate(); err != nil {
		return err
	}
	if sim.Size() != axisSize(store, n.axis) {
		return fmt.Errorf("%w: %s similarity has %d rows, store has %d", recommend.ErrValidation,
			n.name, sim.Size(), axisSize(store, n.axis))
	}
	n.store = store
	n.sim = sim
	n.markTrained()
	return nil
}

func axisSize(store *ratings.Store, axis similarity.Axis) int {
	if axis == similarity.ItemAxis {
		return store.NumItems()
	}
	return store.NumUsers()
}
