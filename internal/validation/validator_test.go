// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package validation

import (
	"strings"
	"testing"
)

type hyperparams struct {
	K      int     `json:"k" validate:"min=1,max=1000"`
	Metric string  `json:"metric" validate:"oneof=cosine adjusted_cosine"`
	Ratio  float64 `json:"test_ratio" validate:"gt=0,lt=1"`
	Layers []int   `json:"layers" validate:"mlp_layers"`
}

func validHyperparams() hyperparams {
	return hyperparams{K: 50, Metric: "cosine", Ratio: 0.2, Layers: []int{128, 64, 32}}
}

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 == nil {
		t.Fatal("GetValidator() returned nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same instance")
	}
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*hyperparams)
		wantField string
		wantTag   string
	}{
		{name: "valid", mutate: func(*hyperparams) {}},
		{name: "k below minimum", mutate: func(h *hyperparams) { h.K = 0 }, wantField: "k", wantTag: "min"},
		{name: "unknown metric", mutate: func(h *hyperparams) { h.Metric = "jaccard" }, wantField: "metric", wantTag: "oneof"},
		{name: "ratio of one", mutate: func(h *hyperparams) { h.Ratio = 1 }, wantField: "test_ratio", wantTag: "lt"},
		{name: "odd first layer", mutate: func(h *hyperparams) { h.Layers = []int{127, 64} }, wantField: "layers", wantTag: "mlp_layers"},
		{name: "single layer", mutate: func(h *hyperparams) { h.Layers = []int{128} }, wantField: "layers", wantTag: "mlp_layers"},
		{name: "zero layer", mutate: func(h *hyperparams) { h.Layers = []int{128, 0} }, wantField: "layers", wantTag: "mlp_layers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := validHyperparams()
			tt.mutate(&h)

			verr := ValidateStruct(&h)
			if tt.wantField == "" {
				if verr != nil {
					t.Fatalf("ValidateStruct() = %v, want nil", verr)
				}
				return
			}
			if verr == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			errs := verr.Errors()
			if len(errs) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(errs), verr)
			}
			if errs[0].Field() != tt.wantField {
				t.Errorf("Field() = %q, want %q", errs[0].Field(), tt.wantField)
			}
			if errs[0].Tag() != tt.wantTag {
				t.Errorf("Tag() = %q, want %q", errs[0].Tag(), tt.wantTag)
			}
		})
	}
}

func TestRequestValidationError_ToAPIError(t *testing.T) {
	h := validHyperparams()
	h.K = 0
	h.Metric = "bogus"

	verr := ValidateStruct(&h)
	if verr == nil {
		t.Fatal("expected validation error")
	}

	apiErr := verr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if !strings.Contains(apiErr.Message, "k must be at least 1") {
		t.Errorf("Message = %q, want k minimum message", apiErr.Message)
	}
	if !strings.Contains(apiErr.Message, "metric must be one of") {
		t.Errorf("Message = %q, want metric oneof message", apiErr.Message)
	}
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 2 {
		t.Errorf("Details[fields] = %v, want two entries", apiErr.Details["fields"])
	}
}

func TestRequestValidationError_Empty(t *testing.T) {
	ve := &RequestValidationError{}
	if ve.Error() != "validation failed" {
		t.Errorf("Error() = %q", ve.Error())
	}
	if ve.ToAPIError().Message != "Validation failed" {
		t.Errorf("ToAPIError().Message = %q", ve.ToAPIError().Message)
	}
}
