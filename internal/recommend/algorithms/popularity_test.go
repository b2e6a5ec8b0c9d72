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

	"github.com/tomtom215/animerec/internal/recommend"
)

func TestPopularity(t *testing.T) {
	store := newStore(t, fourRatings())
	p := NewPopularity(PopularityConfig{})
	if err := p.Fit(context.Background(), store); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	// Global mean 7.5, damping 10.
	wantScores := map[int]float64{
		1: (17 + 75) / 12.0,
		2: (6 + 75) / 11.0,
		3: (7 + 75) / 11.0,
	}
	for itemID, want := range wantScores {
		got := p.Predict(42, itemID)
		if !got.OK() || math.Abs(got.Rating-want) > 1e-12 {
			t.Errorf("Predict(_, %d) = %+v, want %v", itemID, got, want)
		}
	}

	if recs := p.Recommend(99, 2, false); len(recs) != 2 || recs[0].ItemID != 1 || recs[1].ItemID != 3 {
		t.Errorf("Recommend(n=2) = %v, want ids [1 3]", recs)
	}

	tests := []struct {
		name    string
		userID  int
		exclude bool
		wantIDs []int
	}{
		{"unknown user gets the full ranking", 99, true, []int{1, 3, 2}},
		{"known user without exclusion", 1, false, []int{1, 3, 2}},
		{"known user skips rated items", 1, true, []int{3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := p.Recommend(tt.userID, 10, tt.exclude)
			if len(recs) != len(tt.wantIDs) {
				t.Fatalf("Recommend() = %v, want ids %v", recs, tt.wantIDs)
			}
			for k, id := range tt.wantIDs {
				if recs[k].ItemID != id {
					t.Errorf("Recommend()[%d] = %d, want %d", k, recs[k].ItemID, id)
				}
			}
		})
	}

	if got := p.Predict(1, 99); got.Status != recommend.StatusUnknownEntity {
		t.Errorf("Predict(unknown item) status = %v", got.Status)
	}
}

func TestPopularity_EmptyStore(t *testing.T) {
	p := NewPopularity(PopularityConfig{Damping: 5})
	if err := p.Fit(context.Background(), nil); !errors.Is(err, recommend.ErrEmptyDataset) {
		t.Errorf("Fit(nil) error = %v, want ErrEmptyDataset", err)
	}
	if recs := p.Recommend(1, 5, false); len(recs) != 0 {
		t.Errorf("untrained Recommend() = %v", recs)
	}
	if recs := p.Recommend(1, 0, false); len(recs) != 0 {
		t.Errorf("Recommend(n=0) = %v", recs)
	}
}
