// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/animerec/internal/recommend"
	"github.com/tomtom215/animerec/internal/validation"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 8 << 20

// TrainRequest starts a training job.
type TrainRequest struct {
	ModelName string `json:"model_name" validate:"required,max=64"`
}

// SelectModelRequest changes the serving model.
type SelectModelRequest struct {
	ModelName string `json:"model_name" validate:"required,max=64"`
}

// RatingInput is one rating in an upsert request.
type RatingInput struct {
	UserID int     `json:"user_id" validate:"min=1"`
	ItemID int     `json:"item_id" validate:"min=1"`
	Rating float64 `json:"rating"`
}

// RatingsRequest upserts a batch of ratings.
type RatingsRequest struct {
	Ratings []RatingInput `json:"ratings" validate:"required,min=1,max=50000,dive"`
}

// PredictQuery holds the predict query parameters.
type PredictQuery struct {
	UserID int    `json:"user_id" validate:"min=1"`
	ItemID int    `json:"item_id" validate:"min=1"`
	Model  string `json:"model" validate:"max=64"`
}

// RecommendQuery holds the recommend query parameters.
type RecommendQuery struct {
	UserID       int    `json:"user_id" validate:"min=1"`
	N            int    `json:"n" validate:"min=0"`
	Model        string `json:"model" validate:"max=64"`
	IncludeRated bool   `json:"include_rated"`
}

// SimilarQuery holds the similar-items query parameters.
type SimilarQuery struct {
	ItemID int    `json:"item_id" validate:"min=1"`
	N      int    `json:"n" validate:"min=0"`
	Model  string `json:"model" validate:"max=64"`
}

// interactions converts validated input, rejecting ratings outside scale.
func (req *RatingsRequest) interactions(scale recommend.RatingScale) ([]recommend.Interaction, error) {
	out := make([]recommend.Interaction, len(req.Ratings))
	for i, in := range req.Ratings {
		if !scale.Contains(in.Rating) {
			return nil, fmt.Errorf("%w: ratings[%d].rating %v outside [%v, %v]",
				recommend.ErrValidation, i, in.Rating, scale.Min, scale.Max)
		}
		out[i] = recommend.Interaction{UserID: in.UserID, ItemID: in.ItemID, Rating: in.Rating}
	}
	return out, nil
}

// decodeJSON reads one JSON document into v and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", recommend.ErrValidation)
		}
		return fmt.Errorf("%w: invalid JSON body: %v", recommend.ErrValidation, err)
	}
	return validated(v)
}

// intParam parses an integer URL or query parameter. Missing values return def.
func intParam(value, name string, def int) (int, error) {
	if value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", recommend.ErrValidation, name, value)
	}
	return n, nil
}

func boolParam(value, name string) (bool, error) {
	if value == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean, got %q", recommend.ErrValidation, name, value)
	}
	return b, nil
}

func parsePredictQuery(r *http.Request) (PredictQuery, error) {
	q := r.URL.Query()
	var out PredictQuery
	var err error
	if out.UserID, err = intParam(q.Get("user_id"), "user_id", 0); err != nil {
		return out, err
	}
	if out.ItemID, err = intParam(q.Get("item_id"), "item_id", 0); err != nil {
		return out, err
	}
	out.Model = q.Get("model")
	return out, validated(&out)
}

func parseRecommendQuery(r *http.Request) (RecommendQuery, error) {
	q := r.URL.Query()
	var out RecommendQuery
	var err error
	if out.UserID, err = intParam(chi.URLParam(r, "userID"), "user_id", 0); err != nil {
		return out, err
	}
	if out.N, err = intParam(q.Get("n"), "n", 0); err != nil {
		return out, err
	}
	if out.IncludeRated, err = boolParam(q.Get("include_rated"), "include_rated"); err != nil {
		return out, err
	}
	out.Model = q.Get("model")
	return out, validated(&out)
}

func parseSimilarQuery(r *http.Request) (SimilarQuery, error) {
	q := r.URL.Query()
	var out SimilarQuery
	var err error
	if out.ItemID, err = intParam(chi.URLParam(r, "itemID"), "item_id", 0); err != nil {
		return out, err
	}
	if out.N, err = intParam(q.Get("n"), "n", 0); err != nil {
		return out, err
	}
	out.Model = q.Get("model")
	return out, validated(&out)
}

// validated returns nil or a *validation.RequestValidationError as error.
func validated(v interface{}) error {
	if verr := validation.ValidateStruct(v); verr != nil {
		return verr
	}
	return nil
}
