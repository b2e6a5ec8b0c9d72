// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/animerec/internal/logging"
	"github.com/tomtom215/animerec/internal/metrics"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	var seenRequest, seenCorrelation string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenRequest = logging.RequestIDFromContext(r.Context())
		seenCorrelation = logging.CorrelationIDFromContext(r.Context())
	}))

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated", "", false},
		{"propagated", "upstream-123", true},
		{"oversized replaced", strings.Repeat("x", 200), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			got := rec.Header().Get(RequestIDHeader)
			if got == "" || got != seenRequest {
				t.Fatalf("header %q, context %q", got, seenRequest)
			}
			if tt.keep != (got == tt.incoming) {
				t.Errorf("request id = %q, incoming %q", got, tt.incoming)
			}
			if seenCorrelation == "" {
				t.Error("correlation id not set")
			}
		})
	}
}

func TestPrometheusMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics)
	r.Get("/items/{itemID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues("GET", "/items/{itemID}", "418"))
	for _, path := range []string{"/items/1", "/items/2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	after := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues("GET", "/items/{itemID}", "418"))
	if after-before != 2 {
		t.Errorf("counter delta = %v, want 2", after-before)
	}
}

func TestRateLimited(t *testing.T) {
	rec := httptest.NewRecorder()
	RateLimited(rec, httptest.NewRequest(http.MethodGet, "/api/v1/models", nil))
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Errorf("code = %d, headers = %v", rec.Code, rec.Header())
	}
}

func TestLatencyTracker_Window(t *testing.T) {
	t.Parallel()

	tr := NewLatencyTracker(3, 0)
	for i := 1; i <= 5; i++ {
		tr.Record(RequestSample{Route: "/a", Method: "GET", Status: 200, DurationMS: float64(i)})
	}
	if tr.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", tr.Len())
	}
	stats := tr.Stats()
	if len(stats) != 1 {
		t.Fatalf("Stats() = %+v", stats)
	}
	s := stats[0]
	if s.Requests != 3 || s.MaxMS != 5 || s.MeanMS != 4 || s.P50MS != 4 {
		t.Errorf("stats = %+v", s)
	}
}

func TestLatencyTracker_Middleware(t *testing.T) {
	t.Parallel()

	tr := NewLatencyTracker(100, time.Hour)
	r := chi.NewRouter()
	r.Use(tr.Middleware)
	r.Get("/ok", func(w http.ResponseWriter, _ *http.Request) {})
	r.Get("/fail", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	for i := 0; i < 3; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	stats := tr.Stats()
	if len(stats) != 2 {
		t.Fatalf("Stats() = %+v", stats)
	}
	if stats[0].Route != "GET /ok" || stats[0].Requests != 3 || stats[0].Errors != 0 {
		t.Errorf("busiest route = %+v", stats[0])
	}
	if stats[1].Route != "GET /fail" || stats[1].Errors != 1 {
		t.Errorf("failing route = %+v", stats[1])
	}
}
