// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package algorithms

import (
	"math/rand"
	"testing"

	"github.com/tomtom215/animerec/internal/recommend"
	"github.com/tomtom215/animerec/internal/recommend/ratings"
)

// newStore builds a store on the default 1-10 scale or fails the test.
func newStore(t *testing.T, interactions []recommend.Interaction) *ratings.Store {
	t.Helper()
	store, err := ratings.New(interactions, recommend.DefaultRatingScale())
	if err != nil {
		t.Fatalf("ratings.New() error = %v", err)
	}
	return store
}

// fourRatings is the two-user, three-item matrix
//
//	     i1  i2  i3
//	u1    8   6   .
//	u2    9   .   7
func fourRatings() []recommend.Interaction {
	return []recommend.Interaction{
		{UserID: 1, ItemID: 1, Rating: 8},
		{UserID: 1, ItemID: 2, Rating: 6},
		{UserID: 2, ItemID: 1, Rating: 9},
		{UserID: 2, ItemID: 3, Rating: 7},
	}
}

// syntheticRatings draws perUser distinct items for every user with integer
// ratings correlated by (user+item) parity, so neighborhoods are non-trivial.
func syntheticRatings(users, items, perUser int, seed int64) []recommend.Interaction {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // test fixture
	out := make([]recommend.Interaction, 0, users*perUser)
	for u := 1; u <= users; u++ {
		for _, k := range rng.Perm(items)[:perUser] {
			item := k + 1
			base := 3.0
			if (u+item)%2 == 0 {
				base = 7.0
			}
			r := base + float64(rng.Intn(4))
			out = append(out, recommend.Interaction{UserID: u, ItemID: item, Rating: r})
		}
	}
	return out
}
