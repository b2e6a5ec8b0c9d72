// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/animerec/internal/logging"
	"github.com/tomtom215/animerec/internal/recommend"
	"github.com/tomtom215/animerec/internal/recommend/evaluation"
	"github.com/tomtom215/animerec/internal/recommend/training"
)

// ModelsResponse is the body of GET /api/v1/models.
type ModelsResponse struct {
	Active     string                  `json:"active"`
	Trainable  []string                `json:"trainable"`
	Served     []recommend.ModelStatus `json:"served"`
	Registered []training.ModelRecord  `json:"registered,omitempty"`
}

// CompareResponse is the body of GET /api/v1/models/compare.
type CompareResponse struct {
	Best    map[string]string             `json:"best"`
	Reports map[string]*evaluation.Report `json:"reports"`
}

// ListModels handles GET /api/v1/models. Registered versions are included
// when a database is configured.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	resp := ModelsResponse{
		Active:    h.service.Active(),
		Trainable: h.trainer.Models(),
		Served:    h.service.Models(),
	}
	if h.db != nil {
		registered, err := h.db.LatestModels(r.Context())
		if err != nil {
			rw.InternalError(ErrCodeDatabaseError, err)
			return
		}
		resp.Registered = registered
	}
	rw.Success(resp)
}

// SelectModel handles PUT /api/v1/models/active. The model must be loaded in
// the serving context. The choice is persisted in the registry so it
// survives restarts.
func (h *Handler) SelectModel(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	var req SelectModelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(rw, err)
		return
	}

	if err := h.service.SetActive(req.ModelName); err != nil {
		writeDomainError(rw, err)
		return
	}

	if h.db != nil {
		err := h.db.SetActiveModel(r.Context(), req.ModelName)
		switch {
		case errors.Is(err, recommend.ErrUnknownModel):
			logging.Ctx(r.Context()).Warn().Str("model", req.ModelName).
				Msg("active model has no registry entry; selection not persisted")
		case err != nil:
			rw.InternalError(ErrCodeDatabaseError, err)
			return
		}
	}

	logging.Ctx(r.Context()).Info().Str("model", req.ModelName).Msg("active model changed")
	rw.Success(map[string]string{"active": req.ModelName})
}

// CompareModels handles GET /api/v1/models/compare. It ranks the newest
// registered report of every model and names the best model per metric.
func (h *Handler) CompareModels(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireDB(rw) {
		return
	}

	reports, err := h.db.LatestReports(r.Context())
	if err != nil {
		rw.InternalError(ErrCodeDatabaseError, err)
		return
	}
	if len(reports) == 0 {
		writeDomainError(rw, recommend.ErrNotTrained)
		return
	}
	rw.Success(CompareResponse{Best: evaluation.Compare(reports), Reports: reports})
}

// ModelHistory handles GET /api/v1/models/{name}/history.
func (h *Handler) ModelHistory(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireDB(rw) {
		return
	}

	name := chi.URLParam(r, "name")
	records, err := h.db.ModelHistory(r.Context(), name)
	if err != nil {
		rw.InternalError(ErrCodeDatabaseError, err)
		return
	}
	if len(records) == 0 {
		rw.NotFound("no registered versions of " + name)
		return
	}
	rw.List(records, len(records))
}
