// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package storage

// Model kinds stored in ModelState.Kind.
const (
	KindUserBasedCF     = "user_based_cf"
	KindItemBasedCF     = "item_based_cf"
	KindNeuralCF        = "neural_cf"
	KindWeightedHybrid  = "hybrid"
	KindSwitchingHybrid = "switching_hybrid"
)

// ModelState is the artifact of one fitted model. Exactly one of the state
// pointers is set, matching Kind.
type ModelState struct {
	Kind   string
	KNN    *KNNState
	NCF    *NCFState
	Hybrid *HybridState
}

// Ratings is the training matrix as parallel triples.
type Ratings struct {
	Users    []int
	Items    []int
	Values   []float64
	ScaleMin float64
	ScaleMax float64
}

// KNNState is the artifact of a user-based or item-based model.
type KNNState struct {
	K          int
	Metric     string
	MinRatings int
	Ratings    Ratings

	// Similarity matrix in row-compressed form.
	SimPtr   []int
	SimIdx   []int
	SimScore []float64
	SimSelf  []bool
}

// NCFState is the artifact of a neural collaborative filtering model.
type NCFState struct {
	EmbeddingDim    int
	Layers          []int
	Dropout         float64
	LearningRate    float64
	BatchSize       int
	Epochs          int
	Patience        int
	ValidationRatio float64
	Seed            int64

	Ratings Ratings

	// Weights holds every learned array in network order.
	Weights     [][]float64
	BestValLoss float64
}

// HybridState is the artifact of a weighted or switching hybrid.
type HybridState struct {
	WeightA float64
	WeightB float64

	UserThreshold int
	ItemThreshold int

	A ModelState
	B ModelState
}
