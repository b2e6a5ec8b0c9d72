// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package algorithms

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/tomtom215/animerec/internal/recommend"
	"github.com/tomtom215/animerec/internal/recommend/ratings"
)

// combine blends two predictions: both ok -> weighted average, one ok -> that
// one, neither -> unknown_entity when both say so, otherwise insufficient_data.
func combine(a, b recommend.Prediction, wa, wb float64) recommend.Prediction {
	switch {
	case a.OK() && b.OK():
		return recommend.Predicted(wa*a.Rating + wb*b.Rating)
	case a.OK():
		return a
	case b.OK():
		return b
	case a.Status == recommend.StatusUnknownEntity && b.Status == recommend.StatusUnknownEntity:
		return recommend.Unknown()
	default:
		return recommend.Insufficient()
	}
}

// normalizeWeights scales wa and wb to sum to one; both zero yields 0.5 each.
func normalizeWeights(wa, wb float64) (float64, float64, error) {
	if wa < 0 || wb < 0 || math.IsNaN(wa) || math.IsNaN(wb) {
		return 0, 0, fmt.Errorf("%w: hybrid weights must be non-negative, got %v and %v", recommend.ErrValidation, wa, wb)
	}
	sum := wa + wb
	if sum == 0 {
		return 0.5, 0.5, nil
	}
	return wa / sum, wb / sum, nil
}

// ========== Weighted Hybrid ==========

// WeightedHybrid blends two predictors with fixed normalized weights.
type WeightedHybrid struct {
	BaseAlgorithm
	a, b   Model
	wa, wb float64
}

// NewWeightedHybrid creates a hybrid of a and b. Weights are normalized to
// sum to one; negative weights are rejected with ErrValidation.
func NewWeightedHybrid(a, b Model, wa, wb float64) (*WeightedHybrid, error) {
	na, nb, err := normalizeWeights(wa, wb)
	if err != nil {
		return nil, err
	}
	return &WeightedHybrid{
		BaseAlgorithm: NewBaseAlgorithm(NameHybrid),
		a:             a,
		b:             b,
		wa:            na,
		wb:            nb,
	}, nil
}

// Fit fits both component models on store.
func (h *WeightedHybrid) Fit(ctx context.Context, store *ratings.Store) error {
	if err := h.a.Fit(ctx, store); err != nil {
		return fmt.Errorf("fit %s: %w", h.a.Name(), err)
	}
	if err := h.b.Fit(ctx, store); err != nil {
		return fmt.Errorf("fit %s: %w", h.b.Name(), err)
	}
	h.markTrained()
	return nil
}

// Components returns the two blended models.
func (h *WeightedHybrid) Components() (Model, Model) {
	return h.a, h.b
}

// Weights returns the normalized blend weights.
func (h *WeightedHybrid) Weights() (float64, float64) {
	return h.wa, h.wb
}

// WithWeights returns a hybrid over the same fitted components with new weights.
func (h *WeightedHybrid) WithWeights(wa, wb float64) (*WeightedHybrid, error) {
	out, err := NewWeightedHybrid(h.a, h.b, wa, wb)
	if err != nil {
		return nil, err
	}
	out.trained = h.trained
	return out, nil
}

// Info describes the training data of the first component.
func (h *WeightedHybrid) Info() recommend.ModelInfo {
	info := h.a.Info()
	info.Name = h.name
	return info
}

// Predict blends the component predictions.
func (h *WeightedHybrid) Predict(userID, itemID int) recommend.Prediction {
	return combine(h.a.Predict(userID, itemID), h.b.Predict(userID, itemID), h.wa, h.wb)
}

// Recommend asks each component for 2n items, merges the weighted scores
// with a missing contribution counted as zero, and keeps the best n.
func (h *WeightedHybrid) Recommend(userID, n int, excludeRated bool) []recommend.ScoredItem {
	if n <= 0 {
		return []recommend.ScoredItem{}
	}
	scores := make(map[int]float64, 4*n)
	for _, it := range h.a.Recommend(userID, 2*n, excludeRated) {
		scores[it.ItemID] += h.wa * it.Score
	}
	for _, it := range h.b.Recommend(userID, 2*n, excludeRated) {
		scores[it.ItemID] += h.wb * it.Score
	}
	return rankMap(scores, n)
}

// SimilarItems delegates to the first component that can rank similar items.
func (h *WeightedHybrid) SimilarItems(itemID, n int) []recommend.ScoredItem {
	return similarFrom(itemID, n, h.a, h.b)
}

// rankMap sorts by score descending then item id ascending and truncates to n.
func rankMap(scores map[int]float64, n int) []recommend.ScoredItem {
	out := make([]recommend.ScoredItem, 0, len(scores))
	for id, s := range scores {
		out = append(out, recommend.ScoredItem{ItemID: id, Score: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ItemID < out[j].ItemID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func similarFrom(itemID, n int, models ...Model) []recommend.ScoredItem {
	for _, m := range models {
		if sp, ok := m.(recommend.SimilarItemsProvider); ok {
			return sp.SimilarItems(itemID, n)
		}
	}
	return []recommend.ScoredItem{}
}

// ========== Switching Hybrid ==========

// SwitchingHybrid picks one model per request from how much data backs it:
// an active user (at least UserThreshold ratings) is served by the user
// model, otherwise a popular item (at least ItemThreshold ratings) by the
// item model, otherwise both are blended equally.
type SwitchingHybrid struct {
	BaseAlgorithm
	config SwitchingConfig
	user   *UserBasedCF
	item   *ItemBasedCF
}

// NewSwitchingHybrid creates a switching hybrid over a user-based and an
// item-based model.
//
//nolint:gocritic // config passed by value is intentional
func NewSwitchingHybrid(user *UserBasedCF, item *ItemBasedCF, cfg SwitchingConfig) *SwitchingHybrid {
	return &SwitchingHybrid{
		BaseAlgorithm: NewBaseAlgorithm(NameSwitchingHybrid),
		config:        cfg,
		user:          user,
		item:          item,
	}
}

// Fit fits both component models on store.
func (h *SwitchingHybrid) Fit(ctx context.Context, store *ratings.Store) error {
	if err := h.config.Validate(); err != nil {
		return err
	}
	if err := h.user.Fit(ctx, store); err != nil {
		return fmt.Errorf("fit %s: %w", h.user.Name(), err)
	}
	if err := h.item.Fit(ctx, store); err != nil {
		return fmt.Errorf("fit %s: %w", h.item.Name(), err)
	}
	h.markTrained()
	return nil
}

// Config returns the thresholds.
func (h *SwitchingHybrid) Config() SwitchingConfig {
	return h.config
}

// Components returns the user-based and item-based models.
func (h *SwitchingHybrid) Components() (*UserBasedCF, *ItemBasedCF) {
	return h.user, h.item
}

// Info describes the training data.
func (h *SwitchingHybrid) Info() recommend.ModelInfo {
	info := h.user.Info()
	info.Name = h.name
	return info
}

func (h *SwitchingHybrid) userActivity(userID int) int {
	if h.user.store == nil {
		return 0
	}
	u, ok := h.user.store.UserIndex(userID)
	if !ok {
		return 0
	}
	return h.user.store.UserCount(u)
}

func (h *SwitchingHybrid) itemPopularity(itemID int) int {
	if h.item.store == nil {
		return 0
	}
	i, ok := h.item.store.ItemIndex(itemID)
	if !ok {
		return 0
	}
	return h.item.store.ItemCount(i)
}

// Predict routes the pair to the better-supported model.
func (h *SwitchingHybrid) Predict(userID, itemID int) recommend.Prediction {
	if h.userActivity(userID) >= h.config.UserThreshold {
		return h.user.Predict(userID, itemID)
	}
	if h.itemPopularity(itemID) >= h.config.ItemThreshold {
		return h.item.Predict(userID, itemID)
	}
	return combine(h.user.Predict(userID, itemID), h.item.Predict(userID, itemID), 0.5, 0.5)
}

// Recommend uses the user model for active users and the item model otherwise.
func (h *SwitchingHybrid) Recommend(userID, n int, excludeRated bool) []recommend.ScoredItem {
	if h.userActivity(userID) >= h.config.UserThreshold {
		return h.user.Recommend(userID, n, excludeRated)
	}
	return h.item.Recommend(userID, n, excludeRated)
}

// SimilarItems delegates to the item model.
func (h *SwitchingHybrid) SimilarItems(itemID, n int) []recommend.ScoredItem {
	return h.item.SimilarItems(itemID, n)
}

// ========== Weight search ==========

// Grid configures OptimizeWeights.
type Grid struct {
	// Step is the spacing of candidate alpha values in [0, 1]. Default: 0.1.
	Step float64 `json:"step" koanf:"step" validate:"gt=0,lte=1"`

	// Sample caps the number of validation interactions scored. Default: 2000.
	Sample int `json:"sample" koanf:"sample" validate:"min=1"`

	Seed int64 `json:"seed" koanf:"seed"`
}

// DefaultGrid returns a 0.1 step over at most 2000 validation ratings.
func DefaultGrid() Grid {
	return Grid{Step: 0.1, Sample: 2000, Seed: 42}
}

// WeightSearchResult is the outcome of OptimizeWeights.
type WeightSearchResult struct {
	// Alpha is the weight of the first predictor; the second gets 1-Alpha.
	Alpha float64 `json:"alpha"`
	RMSE  float64 `json:"rmse"`
	// Evaluated is the number of validation pairs that produced a prediction.
	Evaluated int `json:"evaluated"`
}

// OptimizeWeights grid-searches alpha in [0, 1] for the blend
// alpha*a + (1-alpha)*b that minimizes RMSE on validation. Ties keep the
// smaller alpha. Pairs neither model can predict are skipped.
func OptimizeWeights(ctx context.Context, a, b recommend.Predictor, validation []recommend.Interaction, grid Grid) (WeightSearchResult, error) {
	if grid.Step == 0 && grid.Sample == 0 {
		grid = DefaultGrid()
	}
	if err := validateConfig(&grid); err != nil {
		return WeightSearchResult{}, err
	}
	if len(validation) == 0 {
		return WeightSearchResult{}, recommend.ErrEmptyDataset
	}

	sample := validation
	if len(sample) > grid.Sample {
		rng := rand.New(rand.NewSource(grid.Seed)) //nolint:gosec // sampling, not security sensitive
		picked := rng.Perm(len(validation))[:grid.Sample]
		sort.Ints(picked)
		sample = make([]recommend.Interaction, len(picked))
		for k, p := range picked {
			sample[k] = validation[p]
		}
	}

	// Component predictions do not depend on alpha: compute them once.
	type pair struct {
		a, b   recommend.Prediction
		rating float64
	}
	pairs := make([]pair, 0, len(sample))
	for _, in := range sample {
		if ContextCancelled(ctx) {
			return WeightSearchResult{}, ctx.Err()
		}
		pa, pb := a.Predict(in.UserID, in.ItemID), b.Predict(in.UserID, in.ItemID)
		if pa.OK() || pb.OK() {
			pairs = append(pairs, pair{a: pa, b: pb, rating: in.Rating})
		}
	}
	if len(pairs) == 0 {
		return WeightSearchResult{}, fmt.Errorf("%w: no validation pair could be predicted", recommend.ErrInsufficientData)
	}

	steps := int(math.Round(1 / grid.Step))
	best := WeightSearchResult{RMSE: math.Inf(1), Evaluated: len(pairs)}
	for s := 0; s <= steps; s++ {
		alpha := math.Min(1, float64(s)*grid.Step)
		var sq float64
		for _, p := range pairs {
			d := combine(p.a, p.b, alpha, 1-alpha).Rating - p.rating
			sq += d * d
		}
		rmse := math.Sqrt(sq / float64(len(pairs)))
		if rmse < best.RMSE {
			best.Alpha = alpha
			best.RMSE = rmse
		}
	}
	return best, nil
}
