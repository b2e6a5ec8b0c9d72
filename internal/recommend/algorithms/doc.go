// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

// Package algorithms implements the rating predictors served by
// recommend.Service.
//
// Every model implements the Model interface: it is fit once on a
// ratings.Store and afterwards answers Predict and Recommend calls
// concurrently without locking. A model that cannot score a pair returns a
// Prediction whose Status says why (unknown user or item, no overlapping
// neighbors) instead of an error.
//
// # Models
//
// Neighborhood:
//   - UserBasedCF: weighted deviations of the K most similar users
//   - ItemBasedCF: weighted ratings of the K most similar items the user rated
//
// Neural:
//   - NeuralCF: GMF and MLP paths over learned embeddings, trained with Adam
//     and early stopping on a held-out slice
//
// Hybrids:
//   - WeightedHybrid: fixed normalized blend of two models, with the weights
//     chosen by grid search at training time
//   - SwitchingHybrid: per-request choice between the user and item models
//     from how many ratings back the user and the item
//
// Baseline:
//   - Popularity: damped mean rating, served to users no other model knows
//
// # Usage
//
//	store, _ := ratings.New(interactions, recommend.DefaultRatingScale())
//	model := algorithms.NewItemBasedCF(algorithms.DefaultItemKNNConfig())
//	if err := model.Fit(ctx, store); err != nil {
//	    return err
//	}
//	pred := model.Predict(userID, itemID)
//
// # Persistence
//
// Snapshot turns a fitted model into a storage.ModelState and Restore
// rebuilds it without refitting. Hybrids snapshot their component models.
//
// # See Also
//
//   - internal/recommend/similarity: cosine and adjusted cosine
//   - internal/recommend/training: trainers and the job pipeline
//   - internal/recommend/storage: artifact files
package algorithms
