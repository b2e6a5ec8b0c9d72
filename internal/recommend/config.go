// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package recommend

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Config contains the serving configuration of the recommendation service.
type Config struct {
	// Scale is the rating interval of the catalog.
	Scale RatingScale `json:"scale" koanf:"scale"`

	// Limits contains operational limits.
	Limits LimitsConfig `json:"limits" koanf:"limits"`

	// Cache contains caching parameters for recommendation lists.
	Cache CacheConfig `json:"cache" koanf:"cache"`

	// PopularityFallback serves the popularity ranking to users the active
	// model cannot recommend for.
	PopularityFallback bool `json:"popularity_fallback" koanf:"popularity_fallback"`

	// DefaultModel is activated at startup when a stored version exists.
	DefaultModel string `json:"default_model" koanf:"default_model"`
}

// LimitsConfig contains operational limits.
type LimitsConfig struct {
	// DefaultN is the list length used when a request asks for none.
	// Default: 10.
	DefaultN int `json:"default_n" koanf:"default_n"`

	// MaxN caps the list length of one request.
	// Default: 100.
	MaxN int `json:"max_n" koanf:"max_n"`
}

// CacheConfig contains caching parameters.
type CacheConfig struct {
	// Enabled controls whether recommendation lists are cached.
	// Default: true.
	Enabled bool `json:"enabled" koanf:"enabled"`

	// TTL is the cache entry time-to-live.
	// Default: 5m.
	TTL time.Duration `json:"ttl" koanf:"ttl"`

	// MaxEntries is the maximum number of cached entries.
	// Default: 10000.
	MaxEntries int `json:"max_entries" koanf:"max_entries"`
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() *Config {
	return &Config{
		Scale: DefaultRatingScale(),
		Limits: LimitsConfig{
			DefaultN: 10,
			MaxN:     100,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        5 * time.Minute,
			MaxEntries: 10000,
		},
		PopularityFallback: true,
		DefaultModel:       "hybrid",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.Scale.Validate(); err != nil {
		return err
	}
	if c.Limits.DefaultN < 1 {
		return fmt.Errorf("%w: limits.default_n must be positive, got %d", ErrValidation, c.Limits.DefaultN)
	}
	if c.Limits.MaxN < c.Limits.DefaultN {
		return fmt.Errorf("%w: limits.max_n must be >= limits.default_n, got %d < %d",
			ErrValidation, c.Limits.MaxN, c.Limits.DefaultN)
	}
	if c.Cache.Enabled {
		if c.Cache.TTL <= 0 {
			return fmt.Errorf("%w: cache.ttl must be positive, got %v", ErrValidation, c.Cache.TTL)
		}
		if c.Cache.MaxEntries < 1 {
			return fmt.Errorf("%w: cache.max_entries must be positive, got %d", ErrValidation, c.Cache.MaxEntries)
		}
	}
	return nil
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// MarshalJSON renders the cache TTL as a duration string.
func (c *Config) MarshalJSON() ([]byte, error) {
	type Alias Config
	type cacheJSON struct {
		Enabled    bool   `json:"enabled"`
		TTL        string `json:"ttl"`
		MaxEntries int    `json:"max_entries"`
	}
	return json.Marshal(&struct {
		*Alias
		Cache cacheJSON `json:"cache"`
	}{
		Alias: (*Alias)(c),
		Cache: cacheJSON{
			Enabled:    c.Cache.Enabled,
			TTL:        c.Cache.TTL.String(),
			MaxEntries: c.Cache.MaxEntries,
		},
	})
}
