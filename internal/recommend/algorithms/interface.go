// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package algorithms

import (
	"container/heap"
	"context"
	"fmt"

	"github.com/tomtom215/animerec/internal/recommend"
	"github.com/tomtom215/animerec/internal/recommend/ratings"
	"github.com/tomtom215/animerec/internal/validation"
)

// Registry names of the trainable models.
const (
	NameUserBasedCF     = "user_based_cf"
	NameItemBasedCF     = "item_based_cf"
	NameHybrid          = "hybrid"
	NameSwitchingHybrid = "switching_hybrid"
	NameNeuralCF        = "neural_cf"
	NamePopularity      = "popularity"
)

// Model is a Predictor that can be fit on a rating store.
//
// Fit is called once on a fresh instance before the model is shared. After
// Fit returns, every read method is safe for concurrent use without locking.
type Model interface {
	recommend.Predictor
	recommend.Describer

	// Fit trains the model on store. It honors ctx cancellation.
	Fit(ctx context.Context, store *ratings.Store) error

	// IsTrained reports whether Fit completed successfully.
	IsTrained() bool
}

// BaseAlgorithm provides the name and trained flag shared by all models.
type BaseAlgorithm struct {
	name    string
	trained bool
}

// NewBaseAlgorithm creates a new base algorithm with the given name.
func NewBaseAlgorithm(name string) BaseAlgorithm {
	return BaseAlgorithm{name: name}
}

// Name returns the registry name of the model.
func (b *BaseAlgorithm) Name() string {
	return b.name
}

// IsTrained returns whether the model has been fit.
func (b *BaseAlgorithm) IsTrained() bool {
	return b.trained
}

func (b *BaseAlgorithm) markTrained() {
	b.trained = true
}

// ContextCancelled checks if the context has been canceled.
func ContextCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// validateConfig runs struct validation and wraps failures in ErrValidation.
func validateConfig(cfg interface{}) error {
	if verr := validation.ValidateStruct(cfg); verr != nil {
		return fmt.Errorf("%w: %s", recommend.ErrValidation, verr.Error())
	}
	return nil
}

// denominatorEpsilon guards weighted averages against vanishing weight sums.
const denominatorEpsilon = 1e-12

// weightedAverage turns accumulated sums into a clipped prediction.
func weightedAverage(num, den float64, scale recommend.RatingScale) recommend.Prediction {
	if den <= denominatorEpsilon {
		return recommend.Insufficient()
	}
	return recommend.Predicted(scale.Clip(num / den))
}

// scoredIndex is a candidate item by dense index.
type scoredIndex struct {
	index int
	score float64
}

// ranksBefore orders by descending score, then ascending index.
func ranksBefore(a, b scoredIndex) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return a.index < b.index
}

// worstFirst is a min-heap whose root is the lowest ranked candidate.
type worstFirst []scoredIndex

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return ranksBefore(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *worstFirst) Push(x interface{}) { *h = append(*h, x.(scoredIndex)) }

func (h *worstFirst) Pop() interface{} {
	old := *h
	last := old[len(old)-1]
	*h = old[:len(old)-1]
	return last
}

// topN keeps the n best candidates offered to it.
type topN struct {
	n int
	h worstFirst
}

func newTopN(n int) *topN {
	return &topN{n: n, h: make(worstFirst, 0, n)}
}

func (t *topN) offer(index int, score float64) {
	c := scoredIndex{index: index, score: score}
	if len(t.h) < t.n {
		heap.Push(&t.h, c)
		return
	}
	if ranksBefore(c, t.h[0]) {
		t.h[0] = c
		heap.Fix(&t.h, 0)
	}
}

// items drains the heap into ranked order with external item ids.
func (t *topN) items(store *ratings.Store) []recommend.ScoredItem {
	out := make([]recommend.ScoredItem, len(t.h))
	for k := len(out) - 1; k >= 0; k-- {
		c := heap.Pop(&t.h).(scoredIndex)
		out[k] = recommend.ScoredItem{ItemID: store.ItemID(c.index), Score: c.score}
	}
	return out
}

// ratedMask marks the item indices user u has rated.
func ratedMask(store *ratings.Store, u int) []bool {
	mask := make([]bool, store.NumItems())
	items, _ := store.UserRow(u)
	for _, i := range items {
		mask[i] = true
	}
	return mask
}

func storeInfo(name string, store *ratings.Store) recommend.ModelInfo {
	if store == nil {
		return recommend.ModelInfo{Name: name}
	}
	return recommend.ModelInfo{
		Name:         name,
		Users:        store.NumUsers(),
		Items:        store.NumItems(),
		Interactions: store.Len(),
	}
}

// Ensure all models implement the interface.
var (
	_ Model = (*UserBasedCF)(nil)
	_ Model = (*ItemBasedCF)(nil)
	_ Model = (*NeuralCF)(nil)
	_ Model = (*WeightedHybrid)(nil)
	_ Model = (*SwitchingHybrid)(nil)
	_ Model = (*Popularity)(nil)

	_ recommend.SimilarItemsProvider = (*ItemBasedCF)(nil)
	_ recommend.SimilarItemsProvider = (*WeightedHybrid)(nil)
	_ recommend.SimilarItemsProvider = (*SwitchingHybrid)(nil)
)
