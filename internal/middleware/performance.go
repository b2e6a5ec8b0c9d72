// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package middleware

import (
	"net/http"
	"sort"
	"sync"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"gonum.org/v1/gonum/stat"

	"github.com/tomtom215/animerec/internal/logging"
)

// DefaultSlowThreshold is the latency above which a request is logged as slow.
const DefaultSlowThreshold = time.Second

// RequestSample is one observed request.
type RequestSample struct {
	Route      string
	Method     string
	Status     int
	DurationMS float64
	At         time.Time
}

// RouteStats aggregates the samples of one method and route.
type RouteStats struct {
	Route    string  `json:"route"`
	Requests int     `json:"requests"`
	Errors   int     `json:"errors"`
	MeanMS   float64 `json:"mean_ms"`
	P50MS    float64 `json:"p50_ms"`
	P95MS    float64 `json:"p95_ms"`
	P99MS    float64 `json:"p99_ms"`
	MaxMS    float64 `json:"max_ms"`
}

// LatencyTracker keeps the most recent requests in a ring buffer.
type LatencyTracker struct {
	mu      sync.RWMutex
	samples []RequestSample
	next    int
	full    bool
	slow    time.Duration
}

// NewLatencyTracker keeps up to window samples. A non-positive slow
// threshold disables slow request logging.
func NewLatencyTracker(window int, slow time.Duration) *LatencyTracker {
	if window < 1 {
		window = 1
	}
	return &LatencyTracker{
		samples: make([]RequestSample, window),
		slow:    slow,
	}
}

// Record adds a sample, overwriting the oldest once the window is full.
func (t *LatencyTracker) Record(s RequestSample) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.samples[t.next] = s
	t.next++
	if t.next == len(t.samples) {
		t.next = 0
		t.full = true
	}
}

// Len returns the number of samples currently held.
func (t *LatencyTracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.full {
		return len(t.samples)
	}
	return t.next
}

// Stats returns per-route aggregates, busiest route first.
func (t *LatencyTracker) Stats() []RouteStats {
	t.mu.RLock()
	held := t.samples[:t.next]
	if t.full {
		held = t.samples
	}
	byRoute := make(map[string][]float64)
	errs := make(map[string]int)
	for _, s := range held {
		key := s.Method + " " + s.Route
		byRoute[key] = append(byRoute[key], s.DurationMS)
		if s.Status >= 500 {
			errs[key]++
		}
	}
	t.mu.RUnlock()

	out := make([]RouteStats, 0, len(byRoute))
	for route, durations := range byRoute {
		sort.Float64s(durations)
		out = append(out, RouteStats{
			Route:    route,
			Requests: len(durations),
			Errors:   errs[route],
			MeanMS:   stat.Mean(durations, nil),
			P50MS:    stat.Quantile(0.50, stat.Empirical, durations, nil),
			P95MS:    stat.Quantile(0.95, stat.Empirical, durations, nil),
			P99MS:    stat.Quantile(0.99, stat.Empirical, durations, nil),
			MaxMS:    durations[len(durations)-1],
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Requests != out[j].Requests {
			return out[i].Requests > out[j].Requests
		}
		return out[i].Route < out[j].Route
	})
	return out
}

// Middleware records every request passing through it.
func (t *LatencyTracker) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := RoutePattern(r)
		t.Record(RequestSample{
			Route:      route,
			Method:     r.Method,
			Status:     status,
			DurationMS: float64(elapsed.Microseconds()) / 1000,
			At:         start,
		})

		if t.slow > 0 && elapsed > t.slow {
			logging.Ctx(r.Context()).Warn().
				Str("method", r.Method).
				Str("route", route).
				Dur("duration", elapsed).
				Dur("threshold", t.slow).
				Msg("Slow request detected")
		}
	})
}
