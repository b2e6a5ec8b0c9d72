// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

// Package split partitions interactions into train and test sets for
// offline evaluation.
package split

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/tomtom215/animerec/internal/recommend"
	"github.com/tomtom215/animerec/internal/validation"
)

// Options configures ByUser.
type Options struct {
	// TestRatio is the share of each qualifying user's ratings moved to test.
	TestRatio float64 `json:"test_ratio" koanf:"test_ratio" validate:"gt=0,lt=1"`

	// MinRatings is the number of ratings a user needs to contribute to test.
	// Users below it go entirely to train.
	MinRatings int `json:"min_ratings" koanf:"min_ratings" validate:"min=2"`

	Seed int64 `json:"seed" koanf:"seed"`
}

// DefaultOptions holds out 20% of every user with at least 5 ratings.
func DefaultOptions() Options {
	return Options{TestRatio: 0.2, MinRatings: 5, Seed: 42}
}

// Split is a train/test partition of one dataset.
type Split struct {
	Train []recommend.Interaction
	Test  []recommend.Interaction
}

// ByUser holds out a per-user share of ratings so every test user also has
// training history.
//
// Users are visited in ascending id order and each qualifying user's ratings
// are shuffled with one seeded generator, so equal inputs and seeds give
// equal splits. A user with n ratings contributes floor(n*TestRatio) of them
// to test, clamped to [1, n-1]. The union of Train and Test is the input.
func ByUser(interactions []recommend.Interaction, opts Options) (Split, error) {
	if verr := validation.ValidateStruct(&opts); verr != nil {
		return Split{}, fmt.Errorf("%w: %s", recommend.ErrValidation, verr.Error())
	}
	if len(interactions) == 0 {
		return Split{}, recommend.ErrEmptyDataset
	}

	byUser := make(map[int][]recommend.Interaction)
	for _, in := range interactions {
		byUser[in.UserID] = append(byUser[in.UserID], in)
	}
	users := make([]int, 0, len(byUser))
	for u := range byUser {
		users = append(users, u)
	}
	sort.Ints(users)

	rng := rand.New(rand.NewSource(opts.Seed)) //nolint:gosec // reproducible split, not security sensitive
	out := Split{
		Train: make([]recommend.Interaction, 0, len(interactions)),
		Test:  make([]recommend.Interaction, 0, int(float64(len(interactions))*opts.TestRatio)+1),
	}

	for _, u := range users {
		rows := byUser[u]
		if len(rows) < opts.MinRatings {
			out.Train = append(out.Train, rows...)
			continue
		}

		rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		nTest := int(math.Floor(float64(len(rows)) * opts.TestRatio))
		nTest = max(1, min(nTest, len(rows)-1))

		out.Test = append(out.Test, rows[:nTest]...)
		out.Train = append(out.Train, rows[nTest:]...)
	}
	return out, nil
}
