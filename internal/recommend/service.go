// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package recommend

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Observer receives serving measurements. The metrics package implements it.
type Observer interface {
	ObservePrediction(model string, status PredictionStatus)
	ObserveRecommend(model string, fallback bool, elapsed time.Duration)
}

// LoadedModel is one fitted predictor held by the service.
type LoadedModel struct {
	Predictor Predictor
	Version   int
	LoadedAt  time.Time
}

// ModelSet is an immutable snapshot of the models being served.
// Retrains publish a new set; readers never see a partial update.
type ModelSet struct {
	Active     string
	Models     map[string]LoadedModel
	Fallback   Predictor
	Generation uint64
}

// ModelStatus describes one served model.
type ModelStatus struct {
	Name     string     `json:"name"`
	Version  int        `json:"version"`
	Active   bool       `json:"active"`
	LoadedAt time.Time  `json:"loaded_at"`
	Info     *ModelInfo `json:"info,omitempty"`
}

// RecommendRequest asks for a ranked list for one user.
type RecommendRequest struct {
	RequestID string
	UserID    int
	N         int

	// Model selects a loaded model by name. Empty means the active model.
	Model string

	// IncludeRated keeps items the user already rated.
	IncludeRated bool
}

// RecommendResponse is the result of Service.Recommend.
type RecommendResponse struct {
	Items        []ScoredItem `json:"items"`
	Model        string       `json:"model"`
	ModelVersion int          `json:"model_version"`
	Fallback     bool         `json:"fallback"`
	CacheHit     bool         `json:"cache_hit"`
	RequestID    string       `json:"request_id"`
	LatencyMS    int64        `json:"latency_ms"`
}

// ServiceStats are cumulative request counters.
type ServiceStats struct {
	Requests    int64 `json:"requests"`
	CacheHits   int64 `json:"cache_hits"`
	CacheMisses int64 `json:"cache_misses"`
	Fallbacks   int64 `json:"fallbacks"`
	Errors      int64 `json:"errors"`
}

// Service is the serving context. Predictions read the current ModelSet
// without locking; writers are serialized by publishMu.
type Service struct {
	config   *Config
	logger   zerolog.Logger
	observer Observer

	models    atomic.Pointer[ModelSet]
	publishMu sync.Mutex

	requestCount atomic.Int64
	cacheHits    atomic.Int64
	cacheMisses  atomic.Int64
	fallbacks    atomic.Int64
	errorCount   atomic.Int64

	cache   map[string]cacheEntry
	cacheMu sync.RWMutex
}

type cacheEntry struct {
	response  *RecommendResponse
	expiresAt time.Time
}

// NewService creates a service with no models loaded.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewService(cfg *Config, logger zerolog.Logger) (*Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &Service{
		config: cfg,
		logger: logger.With().Str("component", "recommend").Logger(),
		cache:  make(map[string]cacheEntry),
	}
	s.models.Store(&ModelSet{Models: map[string]LoadedModel{}})
	return s, nil
}

// SetObserver installs the measurement sink. Call before serving traffic.
func (s *Service) SetObserver(o Observer) {
	s.observer = o
}

// Config returns a copy of the serving configuration.
func (s *Service) Config() *Config {
	return s.config.Clone()
}

// Snapshot returns the current model set. Callers must not modify it.
func (s *Service) Snapshot() *ModelSet {
	return s.models.Load()
}

// update copies the current set, applies fn and publishes the result.
func (s *Service) update(fn func(next *ModelSet) error) error {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	cur := s.models.Load()
	next := &ModelSet{
		Active:     cur.Active,
		Models:     make(map[string]LoadedModel, len(cur.Models)+1),
		Fallback:   cur.Fallback,
		Generation: cur.Generation + 1,
	}
	for name, m := range cur.Models {
		next.Models[name] = m
	}
	if err := fn(next); err != nil {
		return err
	}

	s.models.Store(next)
	s.clearCache()
	return nil
}

// Publish makes p available under its name, replacing any older version.
// The model becomes active when activate is set or nothing is active yet.
func (s *Service) Publish(p Predictor, version int, activate bool) error {
	if p == nil {
		return fmt.Errorf("%w: nil predictor", ErrValidation)
	}
	name := p.Name()
	err := s.update(func(next *ModelSet) error {
		next.Models[name] = LoadedModel{Predictor: p, Version: version, LoadedAt: time.Now()}
		if activate || next.Active == "" {
			next.Active = name
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("model", name).
		Int("version", version).
		Str("active", s.Active()).
		Msg("published model")
	return nil
}

// SetFallback installs the predictor used for users the active model
// cannot serve.
func (s *Service) SetFallback(p Predictor) {
	_ = s.update(func(next *ModelSet) error {
		next.Fallback = p
		return nil
	})
}

// SetActive selects the model used when a request names none.
func (s *Service) SetActive(name string) error {
	err := s.update(func(next *ModelSet) error {
		if _, ok := next.Models[name]; !ok {
			return fmt.Errorf("%w: %q is not loaded", ErrUnknownModel, name)
		}
		next.Active = name
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info().Str("model", name).Msg("active model changed")
	return nil
}

// Active returns the name of the active model, or "" when none is loaded.
func (s *Service) Active() string {
	return s.models.Load().Active
}

// Models lists the served models sorted by name.
func (s *Service) Models() []ModelStatus {
	set := s.models.Load()
	out := make([]ModelStatus, 0, len(set.Models))
	for name, m := range set.Models {
		st := ModelStatus{
			Name:     name,
			Version:  m.Version,
			Active:   name == set.Active,
			LoadedAt: m.LoadedAt,
		}
		if d, ok := m.Predictor.(Describer); ok {
			info := d.Info()
			st.Info = &info
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// resolve picks the named model, or the active one for an empty name.
func (set *ModelSet) resolve(name string) (string, LoadedModel, error) {
	if name == "" {
		name = set.Active
	}
	if name == "" {
		return "", LoadedModel{}, ErrNotTrained
	}
	m, ok := set.Models[name]
	if !ok {
		return "", LoadedModel{}, fmt.Errorf("%w: %q is not loaded", ErrUnknownModel, name)
	}
	return name, m, nil
}

// Predict estimates one rating with the named (or active) model.
// A failed prediction is reported through the Prediction status, not the error.
func (s *Service) Predict(model string, userID, itemID int) (Prediction, string, error) {
	s.requestCount.Add(1)
	name, m, err := s.models.Load().resolve(model)
	if err != nil {
		s.errorCount.Add(1)
		return Prediction{}, "", err
	}

	p := m.Predictor.Predict(userID, itemID)
	if s.observer != nil {
		s.observer.ObservePrediction(name, p.Status)
	}
	return p, name, nil
}

// Recommend returns the top list for one user. When the model has nothing
// for the user and a fallback is installed, the fallback ranking is served
// and Fallback is set on the response.
func (s *Service) Recommend(req RecommendRequest) (*RecommendResponse, error) {
	start := time.Now()
	s.requestCount.Add(1)

	req = s.prepareRequest(req)
	logger := s.createRequestLogger(req)

	set := s.models.Load()
	name, m, err := set.resolve(req.Model)
	if err != nil {
		s.errorCount.Add(1)
		return nil, err
	}

	key := cacheKey(set.Generation, name, req)
	if resp := s.tryGetCachedResponse(key, req.RequestID, start); resp != nil {
		logger.Debug().Msg("cache hit")
		return resp, nil
	}

	resp := &RecommendResponse{
		Model:        name,
		ModelVersion: m.Version,
		RequestID:    req.RequestID,
	}
	resp.Items = m.Predictor.Recommend(req.UserID, req.N, !req.IncludeRated)
	if len(resp.Items) == 0 && set.Fallback != nil && s.config.PopularityFallback {
		resp.Items = set.Fallback.Recommend(req.UserID, req.N, !req.IncludeRated)
		resp.Fallback = true
		s.fallbacks.Add(1)
	}
	if resp.Items == nil {
		resp.Items = []ScoredItem{}
	}
	resp.LatencyMS = time.Since(start).Milliseconds()

	s.storeCache(key, resp)
	if s.observer != nil {
		s.observer.ObserveRecommend(name, resp.Fallback, time.Since(start))
	}

	logger.Debug().
		Str("model", name).
		Int("returned", len(resp.Items)).
		Bool("fallback", resp.Fallback).
		Msg("recommendation complete")
	return resp, nil
}

// SimilarItems ranks items by similarity to itemID with a model that
// supports it.
func (s *Service) SimilarItems(model string, itemID, n int) ([]ScoredItem, string, error) {
	s.requestCount.Add(1)
	name, m, err := s.models.Load().resolve(model)
	if err != nil {
		s.errorCount.Add(1)
		return nil, "", err
	}
	sp, ok := m.Predictor.(SimilarItemsProvider)
	if !ok {
		s.errorCount.Add(1)
		return nil, name, fmt.Errorf("%w: model %q does not rank similar items", ErrValidation, name)
	}
	items := sp.SimilarItems(itemID, s.clampN(n))
	if items == nil {
		items = []ScoredItem{}
	}
	return items, name, nil
}

// Stats returns the cumulative request counters.
func (s *Service) Stats() ServiceStats {
	return ServiceStats{
		Requests:    s.requestCount.Load(),
		CacheHits:   s.cacheHits.Load(),
		CacheMisses: s.cacheMisses.Load(),
		Fallbacks:   s.fallbacks.Load(),
		Errors:      s.errorCount.Load(),
	}
}

func (s *Service) clampN(n int) int {
	if n <= 0 {
		return s.config.Limits.DefaultN
	}
	return min(n, s.config.Limits.MaxN)
}

// prepareRequest applies defaults and generates a request ID if needed.
func (s *Service) prepareRequest(req RecommendRequest) RecommendRequest {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	req.N = s.clampN(req.N)
	return req
}

func (s *Service) createRequestLogger(req RecommendRequest) zerolog.Logger {
	return s.logger.With().
		Str("request_id", req.RequestID).
		Int("user_id", req.UserID).
		Logger()
}

func cacheKey(generation uint64, model string, req RecommendRequest) string {
	return fmt.Sprintf("rec:%d:%s:%d:%d:%t", generation, model, req.UserID, req.N, req.IncludeRated)
}

// tryGetCachedResponse returns a copy of a live cache entry, or nil.
func (s *Service) tryGetCachedResponse(key, requestID string, start time.Time) *RecommendResponse {
	if !s.config.Cache.Enabled {
		return nil
	}

	s.cacheMu.RLock()
	entry, ok := s.cache[key]
	s.cacheMu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		s.cacheMisses.Add(1)
		return nil
	}

	s.cacheHits.Add(1)
	resp := *entry.response
	resp.Items = append([]ScoredItem(nil), entry.response.Items...)
	resp.CacheHit = true
	resp.RequestID = requestID
	resp.LatencyMS = time.Since(start).Milliseconds()
	return &resp
}

func (s *Service) storeCache(key string, resp *RecommendResponse) {
	if !s.config.Cache.Enabled {
		return
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if len(s.cache) >= s.config.Cache.MaxEntries {
		s.evictExpiredLocked()
	}
	if len(s.cache) >= s.config.Cache.MaxEntries {
		return
	}
	stored := *resp
	stored.Items = append([]ScoredItem(nil), resp.Items...)
	s.cache[key] = cacheEntry{
		response:  &stored,
		expiresAt: time.Now().Add(s.config.Cache.TTL),
	}
}

func (s *Service) clearCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	clear(s.cache)
}

// evictExpiredLocked removes expired cache entries.
// Must be called with cacheMu held.
func (s *Service) evictExpiredLocked() {
	now := time.Now()
	for key, entry := range s.cache {
		if now.After(entry.expiresAt) {
			delete(s.cache, key)
		}
	}
}
