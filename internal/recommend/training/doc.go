// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

// Package training runs model training jobs in the background.
//
// A job loads ratings, splits them per user, fits the requested model on the
// training part, evaluates it on the held-out part, saves the artifact,
// records it in the model registry and publishes it for serving. Progress
// moves through 5, 15, 25, 60, 80, 90 and 100 percent.
//
// Only one job runs at a time. Job records are written by a single applier
// goroutine; callers read them with Job, Jobs and Wait.
package training
