// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package algorithms

import (
	"context"

	"github.com/tomtom215/animerec/internal/recommend"
	"github.com/tomtom215/animerec/internal/recommend/ratings"
)

// Popularity ranks items by a damped mean rating, a non-personalized
// baseline for users no personalized model knows.
//
// The score shrinks an item's mean towards the global mean:
//
//	score(i) = (n_i * mean_i + m * global) / (n_i + m)
//
// so an item needs many ratings before a high mean carries it to the top.
type Popularity struct {
	BaseAlgorithm
	damping float64

	store  *ratings.Store
	scores []float64
	ranked []int
}

// PopularityConfig contains configuration for the popularity baseline.
type PopularityConfig struct {
	// Damping is the pseudo-count m pulling item means to the global mean.
	// Default: 10.
	Damping float64 `json:"damping" koanf:"damping" validate:"gte=0"`
}

// NewPopularity creates a new popularity baseline.
func NewPopularity(cfg PopularityConfig) *Popularity {
	if cfg.Damping <= 0 {
		cfg.Damping = 10
	}
	return &Popularity{
		BaseAlgorithm: NewBaseAlgorithm(NamePopularity),
		damping:       cfg.Damping,
	}
}

// Fit computes the damped mean of every item.
func (p *Popularity) Fit(ctx context.Context, store *ratings.Store) error {
	if store == nil || store.Len() == 0 {
		return recommend.ErrEmptyDataset
	}
	if ContextCancelled(ctx) {
		return ctx.Err()
	}

	var total float64
	sums := make([]float64, store.NumItems())
	for i := range sums {
		_, values := store.ItemColumn(i)
		for _, v := range values {
			sums[i] += v
		}
		total += sums[i]
	}
	global := total / float64(store.Len())

	scale := store.Scale()
	p.scores = make([]float64, len(sums))
	top := newTopN(len(sums))
	for i, sum := range sums {
		n := float64(store.ItemCount(i))
		p.scores[i] = scale.Clip((sum + p.damping*global) / (n + p.damping))
		top.offer(i, p.scores[i])
	}

	ranked := top.items(store)
	p.ranked = make([]int, len(ranked))
	for k, it := range ranked {
		p.ranked[k], _ = store.ItemIndex(it.ItemID)
	}

	p.store = store
	p.markTrained()
	return nil
}

// Info describes the training data.
func (p *Popularity) Info() recommend.ModelInfo {
	return storeInfo(p.name, p.store)
}

// Predict returns the item's damped mean regardless of the user.
func (p *Popularity) Predict(_, itemID int) recommend.Prediction {
	if p.store == nil {
		return recommend.Unknown()
	}
	i, ok := p.store.ItemIndex(itemID)
	if !ok {
		return recommend.Unknown()
	}
	return recommend.Predicted(p.scores[i])
}

// Recommend returns the n best items, skipping the user's rated items when
// excludeRated is set and the user is known.
func (p *Popularity) Recommend(userID, n int, excludeRated bool) []recommend.ScoredItem {
	if p.store == nil || n <= 0 {
		return []recommend.ScoredItem{}
	}

	var mask []bool
	if u, ok := p.store.UserIndex(userID); ok && excludeRated {
		mask = ratedMask(p.store, u)
	}

	out := make([]recommend.ScoredItem, 0, min(n, len(p.ranked)))
	for _, i := range p.ranked {
		if len(out) == n {
			break
		}
		if mask != nil && mask[i] {
			continue
		}
		out = append(out, recommend.ScoredItem{ItemID: p.store.ItemID(i), Score: p.scores[i]})
	}
	return out
}
