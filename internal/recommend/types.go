// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package recommend

import (
	"fmt"
	"math"
)

// Interaction is one explicit rating of an item by a user.
type Interaction struct {
	// UserID is the external user identifier.
	UserID int `json:"user_id"`

	// ItemID is the external catalog item identifier.
	ItemID int `json:"item_id"`

	// Rating is the explicit rating inside the configured RatingScale.
	Rating float64 `json:"rating"`
}

// RatingScale is the closed interval ratings and predictions live in.
type RatingScale struct {
	// Min is the lowest valid rating. Default: 1.
	Min float64 `json:"min" koanf:"min"`

	// Max is the highest valid rating. Default: 10.
	Max float64 `json:"max" koanf:"max"`
}

// DefaultRatingScale returns the 1-10 scale used by the catalog.
func DefaultRatingScale() RatingScale {
	return RatingScale{Min: 1, Max: 10}
}

// Validate checks that the scale is a non-empty finite interval.
func (s RatingScale) Validate() error {
	if math.IsNaN(s.Min) || math.IsNaN(s.Max) || math.IsInf(s.Min, 0) || math.IsInf(s.Max, 0) {
		return fmt.Errorf("%w: rating scale must be finite", ErrValidation)
	}
	if s.Min >= s.Max {
		return fmt.Errorf("%w: rating scale min %.2f must be below max %.2f", ErrValidation, s.Min, s.Max)
	}
	return nil
}

// Contains reports whether r is a valid rating on this scale.
func (s RatingScale) Contains(r float64) bool {
	return r >= s.Min && r <= s.Max
}

// Clip clamps v into the scale.
func (s RatingScale) Clip(v float64) float64 {
	if v < s.Min {
		return s.Min
	}
	if v > s.Max {
		return s.Max
	}
	return v
}

// ScoredItem is one entry of a ranked recommendation list.
type ScoredItem struct {
	// ItemID is the external item identifier.
	ItemID int `json:"item_id"`

	// Score is the predicted rating (or blended score for hybrids).
	Score float64 `json:"score"`
}

// PredictionStatus explains the outcome of a single prediction.
type PredictionStatus int

const (
	// StatusOK means Rating holds a usable prediction.
	StatusOK PredictionStatus = iota
	// StatusUnknownEntity means the user or item is absent from the model's identifier maps.
	StatusUnknownEntity
	// StatusInsufficientData means no qualifying neighbor or signal exists for the pair.
	StatusInsufficientData
)

// String returns the wire name of the status.
func (s PredictionStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUnknownEntity:
		return "unknown_entity"
	case StatusInsufficientData:
		return "insufficient_data"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s PredictionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Err maps a failed status to its sentinel error. It returns nil for StatusOK.
func (s PredictionStatus) Err() error {
	switch s {
	case StatusOK:
		return nil
	case StatusUnknownEntity:
		return ErrUnknownEntity
	default:
		return ErrInsufficientData
	}
}

// Prediction is the result of Predictor.Predict. A failed prediction carries
// a non-OK Status and a zero Rating that must not be read as a value.
type Prediction struct {
	Rating float64          `json:"rating"`
	Status PredictionStatus `json:"status"`
}

// OK reports whether the prediction succeeded.
func (p Prediction) OK() bool {
	return p.Status == StatusOK
}

// Predicted builds a successful prediction.
func Predicted(rating float64) Prediction {
	return Prediction{Rating: rating, Status: StatusOK}
}

// Unknown builds an unknown-entity prediction.
func Unknown() Prediction {
	return Prediction{Status: StatusUnknownEntity}
}

// Insufficient builds an insufficient-data prediction.
func Insufficient() Prediction {
	return Prediction{Status: StatusInsufficientData}
}

// Predictor is the capability shared by every fitted model.
//
// Implementations are immutable once fitted and safe for concurrent use
// without locking.
type Predictor interface {
	// Name returns the registry name of the model (e.g. "item_based_cf").
	Name() string

	// Predict estimates the rating of itemID by userID.
	Predict(userID, itemID int) Prediction

	// Recommend returns at most n items ordered by descending score with
	// ties broken by ascending item index. Unknown users yield an empty list.
	Recommend(userID, n int, excludeRated bool) []ScoredItem
}

// SimilarItemsProvider is implemented by models that can rank items by
// item-item similarity.
type SimilarItemsProvider interface {
	SimilarItems(itemID, n int) []ScoredItem
}

// ModelInfo describes the data a fitted model was trained on.
type ModelInfo struct {
	Name         string `json:"name"`
	Users        int    `json:"users"`
	Items        int    `json:"items"`
	Interactions int    `json:"interactions"`
}

// Describer is implemented by models that can report ModelInfo.
type Describer interface {
	Info() ModelInfo
}
