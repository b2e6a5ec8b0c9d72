// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// UpsertRatings handles POST /api/v1/ratings. Duplicate user/item pairs in
// one request collapse to the last occurrence.
func (h *Handler) UpsertRatings(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireDB(rw) {
		return
	}

	var req RatingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(rw, err)
		return
	}
	rows, err := req.interactions(h.cfg.Recommend.Scale)
	if err != nil {
		writeDomainError(rw, err)
		return
	}

	n, err := h.db.UpsertRatings(r.Context(), rows)
	if err != nil {
		rw.InternalError(ErrCodeDatabaseError, err)
		return
	}
	rw.Success(map[string]int{"received": len(rows), "stored": n})
}

// RatingStats handles GET /api/v1/ratings/stats.
func (h *Handler) RatingStats(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireDB(rw) {
		return
	}

	st, err := h.db.RatingStats(r.Context())
	if err != nil {
		rw.InternalError(ErrCodeDatabaseError, err)
		return
	}
	rw.Success(st)
}

// DeleteUserRatings handles DELETE /api/v1/ratings/users/{userID}. Served
// models keep the user until the next retrain.
func (h *Handler) DeleteUserRatings(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireDB(rw) {
		return
	}

	userID, err := intParam(chi.URLParam(r, "userID"), "user_id", 0)
	if err != nil {
		writeDomainError(rw, err)
		return
	}

	n, err := h.db.DeleteUserRatings(r.Context(), userID)
	if err != nil {
		rw.InternalError(ErrCodeDatabaseError, err)
		return
	}
	if n == 0 {
		rw.NotFound("no ratings for user")
		return
	}
	rw.Success(map[string]int64{"deleted": n})
}
