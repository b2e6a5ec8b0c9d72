// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

// Package recommend holds the shared vocabulary of the recommendation engine
// and the serving context that answers requests.
//
// # Architecture
//
// The engine is split into leaf packages that data flows through bottom-up:
//
//   - ratings: sparse rating store with dense identifier remapping
//   - similarity: cosine and adjusted-cosine neighbor matrices
//   - algorithms: user/item KNN, neural CF, hybrids, popularity
//   - split and evaluation: offline train/test measurement
//   - storage: versioned model artifacts on disk
//   - training: the orchestrator that runs jobs and publishes results
//
// This package imports none of them. Fitted models reach it through the
// Predictor interface.
//
// # Predictions
//
// Predict never returns an error for a missing signal. A Prediction carries
// a status (ok, unknown_entity, insufficient_data) and its Rating is only
// meaningful when the status is ok.
//
// # Usage
//
//	svc, err := recommend.NewService(recommend.DefaultConfig(), logger)
//	if err != nil {
//	    return err
//	}
//	svc.SetFallback(popularity)
//	_ = svc.Publish(model, version, true)
//
//	resp, err := svc.Recommend(recommend.RecommendRequest{UserID: 7, N: 20})
//
// # Thread Safety
//
// Fitted models are immutable. The Service keeps the served models in an
// atomic pointer, so reads never block and a retrain swaps the whole set
// at once. Publish and SetActive are serialized among themselves.
package recommend
