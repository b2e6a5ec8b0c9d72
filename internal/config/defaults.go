// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package config

import (
	"net"
	"strconv"
	"time"

	"github.com/tomtom215/animerec/internal/recommend"
	"github.com/tomtom215/animerec/internal/recommend/training"
)

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8090,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   300,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Database: DatabaseConfig{
			Path:      "/data/animerec.duckdb",
			MaxMemory: "1GB",
		},
		Storage: StorageConfig{
			ModelDir: "/data/models",
			JobsDir:  "/data/jobs",
		},
		Events: EventsConfig{
			Topic: "training.jobs",
		},
		Recommend: *recommend.DefaultConfig(),
		Training:  training.DefaultConfig(),
		Breaker:   training.DefaultBreakerConfig(),
		Scheduler: SchedulerConfig{
			Enabled:  false,
			Interval: 24 * time.Hour,
			Models:   []string{"hybrid"},
		},
	}
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Default returns the built-in configuration without reading a file or the
// environment.
func Default() *Config {
	cfg := defaultConfig()
	cfg.Training.Scale = cfg.Recommend.Scale
	return cfg
}
