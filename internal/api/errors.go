// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/animerec/internal/recommend"
	"github.com/tomtom215/animerec/internal/recommend/training"
	"github.com/tomtom215/animerec/internal/validation"
)

// writeDomainError maps engine errors onto HTTP statuses. ErrUnknownModel is
// checked before ErrValidation because it wraps it.
func writeDomainError(rw *ResponseWriter, err error) {
	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		writeValidationError(rw, verr)
	case errors.Is(err, recommend.ErrUnknownModel), errors.Is(err, recommend.ErrJobNotFound):
		rw.NotFound(err.Error())
	case errors.Is(err, recommend.ErrValidation):
		rw.Error(http.StatusBadRequest, ErrCodeValidationFailed, err.Error())
	case errors.Is(err, recommend.ErrConflictingJob):
		rw.Conflict(err.Error())
	case errors.Is(err, recommend.ErrNotTrained):
		rw.ServiceUnavailable(ErrCodeNotTrained, err.Error())
	case errors.Is(err, training.ErrClosed):
		rw.ServiceUnavailable(ErrCodeServiceUnavailable, err.Error())
	default:
		rw.InternalError(ErrCodeInternalError, err)
	}
}

func writeValidationError(rw *ResponseWriter, verr *validation.RequestValidationError) {
	apiErr := verr.ToAPIError()
	rw.ErrorWithDetails(http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
}
