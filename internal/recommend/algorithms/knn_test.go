// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package algorithms

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/animerec/internal/recommend"
)

func TestNewKNN_Names(t *testing.T) {
	if got := NewUserBasedCF(DefaultUserKNNConfig()).Name(); got != NameUserBasedCF {
		t.Errorf("user model Name() = %q, want %q", got, NameUserBasedCF)
	}
	if got := NewItemBasedCF(DefaultItemKNNConfig()).Name(); got != NameItemBasedCF {
		t.Errorf("item model Name() = %q, want %q", got, NameItemBasedCF)
	}
}

func TestKNN_FitValidation(t *testing.T) {
	store := newStore(t, fourRatings())

	tests := []struct {
		name    string
		cfg     KNNConfig
		wantErr error
	}{
		{"zero K", KNNConfig{K: 0, Metric: "cosine"}, recommend.ErrValidation},
		{"unknown metric", KNNConfig{K: 5, Metric: "pearson"}, recommend.ErrValidation},
		{"negative min ratings", KNNConfig{K: 5, Metric: "cosine", MinRatings: -1}, recommend.ErrValidation},
		{"valid", KNNConfig{K: 5, Metric: "adjusted_cosine"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewItemBasedCF(tt.cfg)
			err := m.Fit(context.Background(), store)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Fit() error = %v", err)
				}
				if !m.IsTrained() {
					t.Error("IsTrained() = false after successful Fit")
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Fit() error = %v, want %v", err, tt.wantErr)
			}
			if m.IsTrained() {
				t.Error("IsTrained() = true after failed Fit")
			}
		})
	}
}

func TestKNN_FitEmptyStore(t *testing.T) {
	m := NewUserBasedCF(DefaultUserKNNConfig())
	if err := m.Fit(context.Background(), nil); !errors.Is(err, recommend.ErrEmptyDataset) {
		t.Errorf("Fit(nil) error = %v, want ErrEmptyDataset", err)
	}
}

func TestKNN_FitCancelled(t *testing.T) {
	store := newStore(t, syntheticRatings(50, 40, 10, 1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewUserBasedCF(DefaultUserKNNConfig())
	if err := m.Fit(ctx, store); !errors.Is(err, context.Canceled) {
		t.Errorf("Fit() error = %v, want context.Canceled", err)
	}
}

func TestItemBasedCF_PredictsFromMostSimilarRatedItem(t *testing.T) {
	store := newStore(t, fourRatings())
	m := NewItemBasedCF(KNNConfig{K: 1, Metric: "cosine"})
	if err := m.Fit(context.Background(), store); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	// i3 shares a rater only with i1, so u1's rating of i1 is the single neighbor.
	got := m.Predict(1, 3)
	if !got.OK() {
		t.Fatalf("Predict(u1, i3) status = %v, want ok", got.Status)
	}
	if got.Rating != 8 {
		t.Errorf("Predict(u1, i3) = %v, want 8", got.Rating)
	}
}

func TestItemBasedCF_AdjustedCosineDropsNegativeNeighbor(t *testing.T) {
	store := newStore(t, fourRatings())
	cfg := DefaultItemKNNConfig()
	cfg.K = 1
	m := NewItemBasedCF(cfg)
	if err := m.Fit(context.Background(), store); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	// Centered by user means, u2 rated i1 above and i3 below their mean, so
	// i1 and i3 are negatively similar and u1 has no usable neighbor for i3.
	if got := m.Predict(1, 3); got.Status != recommend.StatusInsufficientData {
		t.Errorf("Predict(u1, i3) = %+v, want insufficient_data", got)
	}
}

func TestUserBasedCF_Predict(t *testing.T) {
	store := newStore(t, fourRatings())
	m := NewUserBasedCF(KNNConfig{K: 5, Metric: "cosine"})
	if err := m.Fit(context.Background(), store); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	// u2 is u1's only neighbor and rated i3 with 7.
	if got := m.Predict(1, 3); !got.OK() || got.Rating != 7 {
		t.Errorf("Predict(u1, i3) = %+v, want 7", got)
	}
}

func TestKNN_PredictFailures(t *testing.T) {
	interactions := append(fourRatings(), recommend.Interaction{UserID: 3, ItemID: 4, Rating: 5})
	store := newStore(t, interactions)

	item := NewItemBasedCF(KNNConfig{K: 5, Metric: "cosine"})
	if err := item.Fit(context.Background(), store); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	user := NewUserBasedCF(KNNConfig{K: 5, Metric: "cosine"})
	if err := user.Fit(context.Background(), store); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	tests := []struct {
		name   string
		model  Model
		userID int
		itemID int
		want   recommend.PredictionStatus
	}{
		{"item model unknown user", item, 99, 1, recommend.StatusUnknownEntity},
		{"item model unknown item", item, 1, 99, recommend.StatusUnknownEntity},
		{"item model no rated neighbor", item, 3, 1, recommend.StatusInsufficientData},
		{"user model unknown user", user, 99, 1, recommend.StatusUnknownEntity},
		{"user model isolated user", user, 3, 1, recommend.StatusInsufficientData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.model.Predict(tt.userID, tt.itemID)
			if got.Status != tt.want {
				t.Errorf("Predict() status = %v, want %v", got.Status, tt.want)
			}
			if got.Rating != 0 {
				t.Errorf("failed Predict() rating = %v, want 0", got.Rating)
			}
		})
	}
}

func TestKNN_RecommendMatchesPredict(t *testing.T) {
	store := newStore(t, syntheticRatings(60, 45, 12, 7))

	for _, metric := range []string{"cosine", "adjusted_cosine"} {
		models := []Model{
			NewUserBasedCF(KNNConfig{K: 7, Metric: metric}),
			NewItemBasedCF(KNNConfig{K: 4, Metric: metric}),
		}
		for _, m := range models {
			t.Run(m.Name()+"/"+metric, func(t *testing.T) {
				if err := m.Fit(context.Background(), store); err != nil {
					t.Fatalf("Fit() error = %v", err)
				}
				for _, userID := range []int{1, 17, 33, 60} {
					recs := m.Recommend(userID, store.NumItems(), false)
					listed := make(map[int]float64, len(recs))
					for _, it := range recs {
						listed[it.ItemID] = it.Score
					}
					for _, itemID := range store.Items().IDs() {
						p := m.Predict(userID, itemID)
						score, ok := listed[itemID]
						if p.OK() != ok {
							t.Fatalf("user %d item %d: predict ok=%v, listed=%v", userID, itemID, p.OK(), ok)
						}
						if ok && score != p.Rating {
							t.Fatalf("user %d item %d: recommend %v != predict %v", userID, itemID, score, p.Rating)
						}
					}
				}
			})
		}
	}
}

func TestKNN_RecommendOrderingAndExclusion(t *testing.T) {
	store := newStore(t, syntheticRatings(40, 30, 10, 3))
	models := []Model{
		NewUserBasedCF(KNNConfig{K: 10, Metric: "cosine"}),
		NewItemBasedCF(KNNConfig{K: 10, Metric: "cosine"}),
	}

	for _, m := range models {
		t.Run(m.Name(), func(t *testing.T) {
			if err := m.Fit(context.Background(), store); err != nil {
				t.Fatalf("Fit() error = %v", err)
			}
			const userID = 5
			rated := make(map[int]bool)
			for _, i := range store.InteractionsOf(userID) {
				rated[store.ItemID(i)] = true
			}

			recs := m.Recommend(userID, 8, true)
			if len(recs) > 8 {
				t.Fatalf("len(Recommend) = %d, want <= 8", len(recs))
			}
			for k, it := range recs {
				if rated[it.ItemID] {
					t.Errorf("rated item %d recommended with excludeRated", it.ItemID)
				}
				if k == 0 {
					continue
				}
				prev := recs[k-1]
				if prev.Score < it.Score || (prev.Score == it.Score && prev.ItemID > it.ItemID) {
					t.Errorf("position %d out of order: %+v before %+v", k, prev, it)
				}
			}

			again := m.Recommend(userID, 8, true)
			for k := range recs {
				if recs[k] != again[k] {
					t.Fatalf("Recommend not reproducible at %d: %+v vs %+v", k, recs[k], again[k])
				}
			}
		})
	}
}

func TestKNN_RecommendColdStart(t *testing.T) {
	store := newStore(t, fourRatings())
	m := NewUserBasedCF(DefaultUserKNNConfig())
	if err := m.Fit(context.Background(), store); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	recs := m.Recommend(404, 10, true)
	if recs == nil || len(recs) != 0 {
		t.Errorf("Recommend(unknown) = %v, want empty non-nil", recs)
	}
	if recs := m.Recommend(1, 0, true); len(recs) != 0 {
		t.Errorf("Recommend(n=0) = %v, want empty", recs)
	}
}

func TestKNN_UntrainedModel(t *testing.T) {
	m := NewItemBasedCF(DefaultItemKNNConfig())
	if got := m.Predict(1, 1); got.Status != recommend.StatusUnknownEntity {
		t.Errorf("untrained Predict() status = %v", got.Status)
	}
	if recs := m.Recommend(1, 5, false); len(recs) != 0 {
		t.Errorf("untrained Recommend() = %v", recs)
	}
	if sims := m.SimilarItems(1, 5); len(sims) != 0 {
		t.Errorf("untrained SimilarItems() = %v", sims)
	}
}

func TestItemBasedCF_SimilarItems(t *testing.T) {
	store := newStore(t, syntheticRatings(40, 25, 8, 11))
	m := NewItemBasedCF(KNNConfig{K: 10, Metric: "cosine"})
	if err := m.Fit(context.Background(), store); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	sims := m.SimilarItems(3, 5)
	if len(sims) == 0 || len(sims) > 5 {
		t.Fatalf("len(SimilarItems) = %d, want 1..5", len(sims))
	}
	for k, it := range sims {
		if it.ItemID == 3 {
			t.Error("SimilarItems includes the query item")
		}
		if it.Score <= 0 {
			t.Errorf("non-positive similarity %v", it.Score)
		}
		if k > 0 && sims[k-1].Score < it.Score {
			t.Errorf("SimilarItems not descending at %d", k)
		}
	}

	if got := m.SimilarItems(999, 5); len(got) != 0 {
		t.Errorf("SimilarItems(unknown) = %v, want empty", got)
	}
}

func TestKNN_MinRatingsPrunesRows(t *testing.T) {
	store := newStore(t, fourRatings())
	// Every item has fewer than 3 ratings, so no similarity survives.
	m := NewItemBasedCF(KNNConfig{K: 5, Metric: "cosine", MinRatings: 3})
	if err := m.Fit(context.Background(), store); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if got := m.Predict(1, 3); got.Status != recommend.StatusInsufficientData {
		t.Errorf("Predict() status = %v, want insufficient_data", got.Status)
	}
}
