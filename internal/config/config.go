// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

// Package config loads the server configuration.
//
// Sources are layered with koanf: built-in defaults, then an optional YAML
// file, then environment variables. Each section maps onto the configuration
// type of the package it drives, so the recommend and training sections
// decode straight into recommend.Config and training.Config.
package config

import (
	"time"

	"github.com/tomtom215/animerec/internal/recommend"
	"github.com/tomtom215/animerec/internal/recommend/training"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig           `koanf:"server"`
	Logging   LoggingConfig          `koanf:"logging"`
	Database  DatabaseConfig         `koanf:"database"`
	Storage   StorageConfig          `koanf:"storage"`
	Events    EventsConfig           `koanf:"events"`
	Recommend recommend.Config       `koanf:"recommend"`
	Training  training.Config        `koanf:"training"`
	Breaker   training.BreakerConfig `koanf:"breaker"`
	Scheduler SchedulerConfig        `koanf:"scheduler"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path of the DuckDB file. ":memory:" keeps everything in memory.
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`

	// SeedDemoData fills an empty ratings table with a small synthetic
	// catalog so a fresh install can train immediately.
	SeedDemoData bool `koanf:"seed_demo_data"`
}

// StorageConfig holds on-disk locations for model artifacts and job records.
type StorageConfig struct {
	ModelDir string `koanf:"model_dir"`

	// JobsDir is the Badger directory for training job records. Empty keeps
	// job records in memory.
	JobsDir string `koanf:"jobs_dir"`
}

// EventsConfig holds job event publishing settings.
type EventsConfig struct {
	Topic string `koanf:"topic"`

	// NATSURL forwards job events to a NATS server. Only used by binaries
	// built with the nats tag.
	NATSURL string `koanf:"nats_url"`
}

// SchedulerConfig drives periodic retraining.
type SchedulerConfig struct {
	Enabled        bool          `koanf:"enabled"`
	Interval       time.Duration `koanf:"interval"`
	TrainOnStartup bool          `koanf:"train_on_startup"`
	Models         []string      `koanf:"models"`
}

// Addr returns host:port for the HTTP listener.
func (s ServerConfig) Addr() string {
	return joinHostPort(s.Host, s.Port)
}
