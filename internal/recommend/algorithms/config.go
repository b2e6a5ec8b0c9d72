// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package algorithms

// KNNConfig contains configuration for the neighborhood models.
type KNNConfig struct {
	// K is the number of neighbors that contribute to one prediction.
	K int `json:"k" koanf:"k" validate:"min=1,max=10000"`

	// Metric is "cosine" or "adjusted_cosine".
	Metric string `json:"metric" koanf:"metric" validate:"oneof=cosine adjusted_cosine"`

	// MinRatings drops rows (users or items, by axis) with fewer ratings
	// from the similarity computation.
	MinRatings int `json:"min_ratings" koanf:"min_ratings" validate:"min=0"`

	// Workers bounds similarity goroutines. Zero uses GOMAXPROCS.
	Workers int `json:"workers" koanf:"workers" validate:"min=0"`
}

// DefaultUserKNNConfig returns the user-based defaults: 50 neighbors, cosine.
func DefaultUserKNNConfig() KNNConfig {
	return KNNConfig{K: 50, Metric: "cosine"}
}

// DefaultItemKNNConfig returns the item-based defaults: 30 neighbors,
// adjusted cosine.
func DefaultItemKNNConfig() KNNConfig {
	return KNNConfig{K: 30, Metric: "adjusted_cosine"}
}

// Validate checks the configuration.
//
//nolint:gocritic // value receiver keeps configs immutable
func (c KNNConfig) Validate() error {
	return validateConfig(&c)
}

// NCFConfig contains hyperparameters of the neural collaborative filtering model.
type NCFConfig struct {
	// EmbeddingDim is the size of the GMF user and item embeddings.
	EmbeddingDim int `json:"embedding_dim" koanf:"embedding_dim" validate:"min=1,max=1024"`

	// Layers are the MLP widths. Layers[0] is split evenly between the user
	// and item MLP embeddings.
	Layers []int `json:"layers" koanf:"layers" validate:"mlp_layers"`

	// Dropout is the drop probability after every hidden layer.
	Dropout float64 `json:"dropout" koanf:"dropout" validate:"gte=0,lt=1"`

	LearningRate float64 `json:"learning_rate" koanf:"learning_rate" validate:"gt=0"`
	BatchSize    int     `json:"batch_size" koanf:"batch_size" validate:"min=2"`
	Epochs       int     `json:"epochs" koanf:"epochs" validate:"min=1"`

	// Patience is the number of epochs without validation improvement
	// before training stops.
	Patience int `json:"patience" koanf:"patience" validate:"min=1"`

	// ValidationRatio is the share of training ratings held out for early stopping.
	ValidationRatio float64 `json:"validation_ratio" koanf:"validation_ratio" validate:"gte=0,lt=1"`

	Seed int64 `json:"seed" koanf:"seed"`
}

// DefaultNCFConfig returns the standard NCF hyperparameters.
func DefaultNCFConfig() NCFConfig {
	return NCFConfig{
		EmbeddingDim:    64,
		Layers:          []int{128, 64, 32},
		Dropout:         0.2,
		LearningRate:    0.001,
		BatchSize:       256,
		Epochs:          30,
		Patience:        5,
		ValidationRatio: 0.1,
		Seed:            42,
	}
}

// Validate checks the configuration.
//
//nolint:gocritic // value receiver keeps configs immutable
func (c NCFConfig) Validate() error {
	return validateConfig(&c)
}

// HybridConfig contains the blend weights of a weighted hybrid.
type HybridConfig struct {
	UserWeight float64 `json:"user_weight" koanf:"user_weight" validate:"gte=0"`
	ItemWeight float64 `json:"item_weight" koanf:"item_weight" validate:"gte=0"`
}

// DefaultHybridConfig weights both neighborhood models equally.
func DefaultHybridConfig() HybridConfig {
	return HybridConfig{UserWeight: 0.5, ItemWeight: 0.5}
}

// SwitchingConfig contains the thresholds of a switching hybrid.
type SwitchingConfig struct {
	// UserThreshold is the rating count from which a user counts as active.
	UserThreshold int `json:"user_threshold" koanf:"user_threshold" validate:"min=0"`

	// ItemThreshold is the rating count from which an item counts as popular.
	ItemThreshold int `json:"item_threshold" koanf:"item_threshold" validate:"min=0"`
}

// DefaultSwitchingConfig returns thresholds of 20 user and 50 item ratings.
func DefaultSwitchingConfig() SwitchingConfig {
	return SwitchingConfig{UserThreshold: 20, ItemThreshold: 50}
}

// Validate checks the configuration.
//
//nolint:gocritic // value receiver keeps configs immutable
func (c SwitchingConfig) Validate() error {
	return validateConfig(&c)
}
