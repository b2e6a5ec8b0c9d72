// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package api

import (
	"net/http"

	"github.com/tomtom215/animerec/internal/logging"
	"github.com/tomtom215/animerec/internal/recommend"
)

// PredictResponse is the body of GET /api/v1/predict.
type PredictResponse struct {
	UserID int                        `json:"user_id"`
	ItemID int                        `json:"item_id"`
	Model  string                     `json:"model"`
	Rating *float64                   `json:"rating"`
	Status recommend.PredictionStatus `json:"status"`
}

// SimilarResponse is the body of GET /api/v1/similar/items/{itemID}.
type SimilarResponse struct {
	ItemID int                    `json:"item_id"`
	Model  string                 `json:"model"`
	Items  []recommend.ScoredItem `json:"items"`
}

// Predict handles GET /api/v1/predict. A prediction the model cannot make is
// still a 200: rating is null and status names the reason.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	q, err := parsePredictQuery(r)
	if err != nil {
		writeDomainError(rw, err)
		return
	}

	p, model, err := h.service.Predict(q.Model, q.UserID, q.ItemID)
	if err != nil {
		writeDomainError(rw, err)
		return
	}

	resp := PredictResponse{UserID: q.UserID, ItemID: q.ItemID, Model: model, Status: p.Status}
	if p.OK() {
		rating := p.Rating
		resp.Rating = &rating
	}
	rw.Success(resp)
}

// Recommend handles GET /api/v1/recommend/users/{userID}.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	q, err := parseRecommendQuery(r)
	if err != nil {
		writeDomainError(rw, err)
		return
	}

	resp, err := h.service.Recommend(recommend.RecommendRequest{
		RequestID:    logging.RequestIDFromContext(r.Context()),
		UserID:       q.UserID,
		N:            q.N,
		Model:        q.Model,
		IncludeRated: q.IncludeRated,
	})
	if err != nil {
		writeDomainError(rw, err)
		return
	}
	rw.List(resp, len(resp.Items))
}

// SimilarItems handles GET /api/v1/similar/items/{itemID}.
func (h *Handler) SimilarItems(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	q, err := parseSimilarQuery(r)
	if err != nil {
		writeDomainError(rw, err)
		return
	}

	items, model, err := h.service.SimilarItems(q.Model, q.ItemID, q.N)
	if err != nil {
		writeDomainError(rw, err)
		return
	}
	rw.List(SimilarResponse{ItemID: q.ItemID, Model: model, Items: items}, len(items))
}
