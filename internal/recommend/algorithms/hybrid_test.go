// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package algorithms

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/animerec/internal/recommend"
	"github.com/tomtom215/animerec/internal/recommend/ratings"
)

// stubModel returns canned predictions and recommendations.
type stubModel struct {
	name    string
	predict func(userID, itemID int) recommend.Prediction
	recs    []recommend.ScoredItem
}

func (s *stubModel) Name() string                              { return s.name }
func (s *stubModel) IsTrained() bool                           { return true }
func (s *stubModel) Fit(context.Context, *ratings.Store) error { return nil }
func (s *stubModel) Info() recommend.ModelInfo                 { return recommend.ModelInfo{Name: s.name} }
func (s *stubModel) Predict(userID, itemID int) recommend.Prediction {
	return s.predict(userID, itemID)
}

func (s *stubModel) Recommend(_, n int, _ bool) []recommend.ScoredItem {
	if len(s.recs) > n {
		return s.recs[:n]
	}
	return s.recs
}

func constant(p recommend.Prediction) func(int, int) recommend.Prediction {
	return func(int, int) recommend.Prediction { return p }
}

func TestNewWeightedHybrid_Weights(t *testing.T) {
	a := &stubModel{name: "a", predict: constant(recommend.Unknown())}
	b := &stubModel{name: "b", predict: constant(recommend.Unknown())}

	tests := []struct {
		name           string
		wa, wb         float64
		wantA, wantB   float64
		wantValidation bool
	}{
		{"normalizes", 3, 1, 0.75, 0.25, false},
		{"both zero splits evenly", 0, 0, 0.5, 0.5, false},
		{"one zero", 0, 2, 0, 1, false},
		{"negative rejected", -1, 1, 0, 0, true},
		{"NaN rejected", math.NaN(), 1, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewWeightedHybrid(a, b, tt.wa, tt.wb)
			if tt.wantValidation {
				if !errors.Is(err, recommend.ErrValidation) {
					t.Errorf("error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewWeightedHybrid() error = %v", err)
			}
			wa, wb := h.Weights()
			if wa != tt.wantA || wb != tt.wantB {
				t.Errorf("Weights() = %v, %v, want %v, %v", wa, wb, tt.wantA, tt.wantB)
			}
		})
	}
}

func TestWeightedHybrid_Predict(t *testing.T) {
	tests := []struct {
		name string
		a, b recommend.Prediction
		want recommend.Prediction
	}{
		{"both predict", recommend.Predicted(8), recommend.Predicted(4), recommend.Predicted(7)},
		{"only first", recommend.Predicted(8), recommend.Insufficient(), recommend.Predicted(8)},
		{"only second", recommend.Unknown(), recommend.Predicted(4), recommend.Predicted(4)},
		{"both unknown", recommend.Unknown(), recommend.Unknown(), recommend.Unknown()},
		{"unknown and insufficient", recommend.Unknown(), recommend.Insufficient(), recommend.Insufficient()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewWeightedHybrid(
				&stubModel{name: "a", predict: constant(tt.a)},
				&stubModel{name: "b", predict: constant(tt.b)},
				0.75, 0.25)
			if err != nil {
				t.Fatalf("NewWeightedHybrid() error = %v", err)
			}
			if got := h.Predict(1, 1); got != tt.want {
				t.Errorf("Predict() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestWeightedHybrid_Recommend(t *testing.T) {
	a := &stubModel{name: "a", predict: constant(recommend.Unknown()), recs: []recommend.ScoredItem{
		{ItemID: 1, Score: 9}, {ItemID: 2, Score: 8},
	}}
	b := &stubModel{name: "b", predict: constant(recommend.Unknown()), recs: []recommend.ScoredItem{
		{ItemID: 3, Score: 10}, {ItemID: 2, Score: 6},
	}}
	h, err := NewWeightedHybrid(a, b, 1, 1)
	if err != nil {
		t.Fatalf("NewWeightedHybrid() error = %v", err)
	}

	// item 2: 4+3, item 3: 5, item 1: 4.5
	got := h.Recommend(1, 2, true)
	want := []recommend.ScoredItem{{ItemID: 2, Score: 7}, {ItemID: 3, Score: 5}}
	if len(got) != len(want) {
		t.Fatalf("Recommend() = %v, want %v", got, want)
	}
	for k := range want {
		if got[k] != want[k] {
			t.Errorf("Recommend()[%d] = %+v, want %+v", k, got[k], want[k])
		}
	}

	if got := h.Recommend(1, 0, true); len(got) != 0 {
		t.Errorf("Recommend(n=0) = %v", got)
	}
}

func TestRankMap_TiesByItemID(t *testing.T) {
	got := rankMap(map[int]float64{9: 5, 3: 5, 7: 6}, 3)
	wantIDs := []int{7, 3, 9}
	for k, id := range wantIDs {
		if got[k].ItemID != id {
			t.Errorf("rankMap()[%d] = %d, want %d", k, got[k].ItemID, id)
		}
	}
}

func TestSwitchingHybrid_Routes(t *testing.T) {
	store := newStore(t, syntheticRatings(30, 20, 10, 9))
	user := NewUserBasedCF(KNNConfig{K: 10, Metric: "cosine"})
	item := NewItemBasedCF(KNNConfig{K: 10, Metric: "cosine"})

	tests := []struct {
		name string
		cfg  SwitchingConfig
		want func(userID, itemID int) recommend.Prediction
	}{
		{
			name: "active user uses user model",
			cfg:  SwitchingConfig{UserThreshold: 10, ItemThreshold: 0},
			want: user.Predict,
		},
		{
			name: "popular item uses item model",
			cfg:  SwitchingConfig{UserThreshold: 11, ItemThreshold: 0},
			want: item.Predict,
		},
		{
			name: "otherwise blends both",
			cfg:  SwitchingConfig{UserThreshold: 1000, ItemThreshold: 1000},
			want: func(u, i int) recommend.Prediction {
				return combine(user.Predict(u, i), item.Predict(u, i), 0.5, 0.5)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSwitchingHybrid(user, item, tt.cfg)
			if err := h.Fit(context.Background(), store); err != nil {
				t.Fatalf("Fit() error = %v", err)
			}
			for _, userID := range []int{2, 11, 29} {
				for _, itemID := range []int{1, 8, 20} {
					if got, want := h.Predict(userID, itemID), tt.want(userID, itemID); got != want {
						t.Errorf("Predict(%d, %d) = %+v, want %+v", userID, itemID, got, want)
					}
				}
			}
		})
	}
}

func TestSwitchingHybrid_RecommendUsesActivity(t *testing.T) {
	store := newStore(t, syntheticRatings(30, 20, 10, 9))
	user := NewUserBasedCF(KNNConfig{K: 10, Metric: "cosine"})
	item := NewItemBasedCF(KNNConfig{K: 10, Metric: "cosine"})
	h := NewSwitchingHybrid(user, item, SwitchingConfig{UserThreshold: 11})
	if err := h.Fit(context.Background(), store); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	got := h.Recommend(3, 5, true)
	want := item.Recommend(3, 5, true)
	if len(got) != len(want) {
		t.Fatalf("Recommend() = %v, want item model %v", got, want)
	}
	for k := range want {
		if got[k] != want[k] {
			t.Errorf("Recommend()[%d] = %+v, want %+v", k, got[k], want[k])
		}
	}
}

func TestOptimizeWeights(t *testing.T) {
	validation := []recommend.Interaction{
		{UserID: 1, ItemID: 1, Rating: 8},
		{UserID: 1, ItemID: 2, Rating: 5},
		{UserID: 2, ItemID: 1, Rating: 3},
	}
	exact := &stubModel{name: "exact", predict: func(u, i int) recommend.Prediction {
		for _, in := range validation {
			if in.UserID == u && in.ItemID == i {
				return recommend.Predicted(in.Rating)
			}
		}
		return recommend.Unknown()
	}}
	biased := &stubModel{name: "biased", predict: func(u, i int) recommend.Prediction {
		p := exact.Predict(u, i)
		p.Rating += 2
		return p
	}}
	never := &stubModel{name: "never", predict: constant(recommend.Insufficient())}

	t.Run("picks the exact predictor", func(t *testing.T) {
		res, err := OptimizeWeights(context.Background(), biased, exact, validation, DefaultGrid())
		if err != nil {
			t.Fatalf("OptimizeWeights() error = %v", err)
		}
		if res.Alpha != 0 || res.RMSE != 0 || res.Evaluated != 3 {
			t.Errorf("result = %+v, want alpha 0, rmse 0, evaluated 3", res)
		}
	})

	t.Run("ties keep the smaller alpha", func(t *testing.T) {
		res, err := OptimizeWeights(context.Background(), exact, exact, validation, DefaultGrid())
		if err != nil {
			t.Fatalf("OptimizeWeights() error = %v", err)
		}
		if res.Alpha != 0 {
			t.Errorf("Alpha = %v, want 0", res.Alpha)
		}
	})

	t.Run("empty validation", func(t *testing.T) {
		_, err := OptimizeWeights(context.Background(), exact, biased, nil, DefaultGrid())
		if !errors.Is(err, recommend.ErrEmptyDataset) {
			t.Errorf("error = %v, want ErrEmptyDataset", err)
		}
	})

	t.Run("nothing predictable", func(t *testing.T) {
		_, err := OptimizeWeights(context.Background(), never, never, validation, DefaultGrid())
		if !errors.Is(err, recommend.ErrInsufficientData) {
			t.Errorf("error = %v, want ErrInsufficientData", err)
		}
	})

	t.Run("invalid grid", func(t *testing.T) {
		_, err := OptimizeWeights(context.Background(), exact, biased, validation, Grid{Step: 2, Sample: 10})
		if !errors.Is(err, recommend.ErrValidation) {
			t.Errorf("error = %v, want ErrValidation", err)
		}
	})
}

func TestHybrid_SnapshotRestore(t *testing.T) {
	store := newStore(t, syntheticRatings(25, 15, 6, 4))
	h, err := NewWeightedHybrid(
		NewUserBasedCF(KNNConfig{K: 5, Metric: "cosine"}),
		NewItemBasedCF(KNNConfig{K: 5, Metric: "adjusted_cosine"}),
		0.3, 0.7)
	if err != nil {
		t.Fatalf("NewWeightedHybrid() error = %v", err)
	}
	if err := h.Fit(context.Background(), store); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	state, err := Snapshot(h)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	restored, err := Restore(&state, zerolog.Nop())
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	for _, userID := range store.Users().IDs()[:10] {
		for _, itemID := range store.Items().IDs() {
			if got, want := restored.Predict(userID, itemID), h.Predict(userID, itemID); got != want {
				t.Fatalf("Predict(%d, %d) after restore = %+v, want %+v", userID, itemID, got, want)
			}
		}
	}
}

func TestSnapshot_Errors(t *testing.T) {
	if _, err := Snapshot(NewUserBasedCF(DefaultUserKNNConfig())); !errors.Is(err, recommend.ErrNotTrained) {
		t.Errorf("Snapshot(untrained) error = %v, want ErrNotTrained", err)
	}

	pop := NewPopularity(PopularityConfig{})
	if err := pop.Fit(context.Background(), newStore(t, fourRatings())); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if _, err := Snapshot(pop); !errors.Is(err, recommend.ErrValidation) {
		t.Errorf("Snapshot(popularity) error = %v, want ErrValidation", err)
	}
}
