// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/animerec/internal/logging"
	"github.com/tomtom215/animerec/internal/recommend/training"
)

const (
	defaultJobsLimit = 10
	maxJobsLimit     = 100
)

// TrainResponse is the body of POST /api/v1/train.
type TrainResponse struct {
	JobID     string          `json:"job_id"`
	ModelName string          `json:"model_name"`
	Status    training.Status `json:"status"`
}

// Train handles POST /api/v1/train. The job runs in the background; progress
// is available from the job endpoint and the websocket.
func (h *Handler) Train(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	var req TrainRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(rw, err)
		return
	}

	job, err := h.trainer.Submit(r.Context(), req.ModelName)
	if err != nil {
		writeDomainError(rw, err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("job_id", job.ID).
		Str("model", job.ModelName).
		Msg("training job submitted")
	w.Header().Set("Location", "/api/v1/jobs/"+job.ID)
	rw.Accepted(TrainResponse{JobID: job.ID, ModelName: job.ModelName, Status: job.Status})
}

// GetJob handles GET /api/v1/jobs/{jobID}.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	job, err := h.trainer.Job(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeDomainError(rw, err)
		return
	}
	rw.Success(job)
}

// ListJobs handles GET /api/v1/jobs?limit=. Jobs are newest first.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	limit, err := intParam(r.URL.Query().Get("limit"), "limit", defaultJobsLimit)
	if err != nil {
		writeDomainError(rw, err)
		return
	}
	if limit < 1 {
		limit = defaultJobsLimit
	}
	limit = min(limit, maxJobsLimit)

	jobs, err := h.trainer.Jobs(r.Context(), limit)
	if err != nil {
		writeDomainError(rw, err)
		return
	}
	if jobs == nil {
		jobs = []*training.Job{}
	}
	rw.List(jobs, len(jobs))
}
